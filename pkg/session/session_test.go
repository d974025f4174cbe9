package session_test

import (
	"slices"
	"sync"
	"testing"

	"topovibe/pkg/geometry"
	"topovibe/pkg/session"
)

func TestSession_AddGet(t *testing.T) {
	s := session.New()
	v := geometry.AssignName(geometry.VertexByCoordinates(1, 2, 3), "p")

	if got := s.Add("p", v); got != "Object 'p' saved." {
		t.Errorf("Add() = %q", got)
	}

	obj, ok := s.Get("p")
	if !ok {
		t.Fatal("Get() did not find stored object")
	}
	if obj != v {
		t.Error("Get() returned a different object")
	}

	if obj, ok := s.Get("missing"); ok || obj != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, false", obj, ok)
	}
}

func TestSession_NamesKeepInsertionOrder(t *testing.T) {
	s := session.New()
	for _, name := range []string{"c", "a", "b"} {
		s.Add(name, geometry.VertexByCoordinates(0, 0, 0))
	}
	s.Add("a", geometry.VertexByCoordinates(9, 9, 9))

	want := []string{"c", "a", "b"}
	if got := s.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	obj, _ := s.Get("a")
	if c := obj.(*geometry.Vertex).Coordinates(); c != [3]float64{9, 9, 9} {
		t.Errorf("overwrite kept old object: %v", c)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	items := s.Items()
	if len(items) != 3 || items[0].Name != "c" {
		t.Errorf("Items() = %+v", items)
	}
}

func TestSession_Messages(t *testing.T) {
	s := session.New()

	entry := s.AddMessage(session.RoleUser, "make a cube")
	if entry.Role != session.RoleUser || entry.Content != "make a cube" {
		t.Errorf("AddMessage() = %+v", entry)
	}
	s.AddMessage(session.RoleAssistant, "done")

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Messages() len = %d, want 2", len(msgs))
	}

	msgs[0].Content = "mutated"
	if s.Messages()[0].Content != "make a cube" {
		t.Error("Messages() returned a live reference")
	}
}

func TestSession_ClearIsolation(t *testing.T) {
	tests := []struct {
		name      string
		clear     func(*session.Session)
		wantItems int
		wantMsgs  int
	}{
		{name: "clear items keeps messages", clear: (*session.Session).ClearItems, wantItems: 0, wantMsgs: 1},
		{name: "clear messages keeps items", clear: (*session.Session).ClearMessages, wantItems: 1, wantMsgs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New()
			s.Add("v", geometry.VertexByCoordinates(0, 0, 0))
			s.AddMessage(session.RoleUser, "hi")

			tt.clear(s)
			tt.clear(s)

			if s.Len() != tt.wantItems {
				t.Errorf("items = %d, want %d", s.Len(), tt.wantItems)
			}
			if len(s.Messages()) != tt.wantMsgs {
				t.Errorf("messages = %d, want %d", len(s.Messages()), tt.wantMsgs)
			}
		})
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := session.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add("v", geometry.VertexByCoordinates(float64(i), 0, 0))
			s.AddMessage(session.RoleUser, "x")
			_ = s.Names()
			_ = s.Messages()
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if len(s.Messages()) != 50 {
		t.Errorf("messages = %d, want 50", len(s.Messages()))
	}
}
