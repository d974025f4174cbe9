// Package session holds the state of one interactive modelling session: the
// named objects built so far and the chat transcript.
package session

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"topovibe/pkg/geometry"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Item is a named object as listed by Items.
type Item struct {
	Name   string
	Object geometry.Topology
}

// Session is the object store plus chat history. Items keep their insertion
// order; re-adding an existing name replaces the object in place.
type Session struct {
	items    *orderedmap.OrderedMap[string, geometry.Topology]
	messages []Message
	mu       sync.RWMutex
}

// New creates an empty session.
func New() *Session {
	return &Session{
		items:    orderedmap.New[string, geometry.Topology](),
		messages: make([]Message, 0),
	}
}

// Add stores obj under name, overwriting any previous entry.
func (s *Session) Add(name string, obj geometry.Topology) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(name, obj)
	return fmt.Sprintf("Object '%s' saved.", name)
}

// Get looks up an object by name.
func (s *Session) Get(name string) (geometry.Topology, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Get(name)
}

// Names returns the object names in insertion order.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, s.items.Len())
	for pair := s.items.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Items returns an ordered snapshot of the stored objects.
func (s *Session) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, s.items.Len())
	for pair := s.items.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, Item{Name: pair.Key, Object: pair.Value})
	}
	return items
}

// Len returns the number of stored objects.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Len()
}

// ClearItems removes every object. The chat history is untouched.
func (s *Session) ClearItems() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = orderedmap.New[string, geometry.Topology]()
}

// AddMessage appends a chat turn and returns it.
func (s *Session) AddMessage(role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Message{Role: role, Content: content}
	s.messages = append(s.messages, entry)
	return entry
}

// Messages returns a copy of the chat history.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	return cp
}

// ClearMessages empties the chat history. Objects are untouched.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, 0)
}

// Context binds a tool invocation to the active session.
type Context struct {
	Session *Session
}
