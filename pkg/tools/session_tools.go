package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"topovibe/pkg/api"
	"topovibe/pkg/geometry"
	"topovibe/pkg/session"
)

// ListItemsTool lists the names of every object in the session.
type ListItemsTool struct {
	sc session.Context
}

func NewListItemsTool(sc session.Context) *ListItemsTool { return &ListItemsTool{sc: sc} }

func (t *ListItemsTool) Name() string { return "list_session_items" }
func (t *ListItemsTool) Description() string {
	return "Lists the names of all objects created in the current session."
}
func (t *ListItemsTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *ListItemsTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	names := t.sc.Session.Names()
	if len(names) == 0 {
		return api.NewTextResult("The session is empty."), nil
	}
	var sb strings.Builder
	sb.WriteString("Current session items:")
	for _, n := range names {
		sb.WriteString("\n- ")
		sb.WriteString(n)
	}
	return api.NewTextResult(sb.String()), nil
}

// ObjectInfoTool describes a single object.
type ObjectInfoTool struct {
	sc session.Context
}

func NewObjectInfoTool(sc session.Context) *ObjectInfoTool { return &ObjectInfoTool{sc: sc} }

func (t *ObjectInfoTool) Name() string { return "get_object_info" }
func (t *ObjectInfoTool) Description() string {
	return "Returns the type and basic geometric information of the object with the given name."
}
func (t *ObjectInfoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Name of the object to inspect.",
			},
		},
		"required": []string{"name"},
	}
}

func (t *ObjectInfoTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	var in struct {
		Name string
	}
	if err := decodeArgs(t.Name(), args, []string{"name"}, &in); err != nil {
		return api.NewTextResult(errorText(err)), nil
	}

	obj, ok := t.sc.Session.Get(in.Name)
	if !ok {
		return api.NewTextResult(fmt.Sprintf("No object found with the name '%s'.", in.Name)), nil
	}
	return api.NewTextResult(Describe(in.Name, obj)), nil
}

// Describe renders the info text for obj. Vertices report their coordinates;
// other kinds report their type followed by a short measurement summary.
func Describe(name string, obj geometry.Topology) string {
	if v, ok := obj.(*geometry.Vertex); ok {
		return fmt.Sprintf("Object '%s' is a Vertex located at coordinates %s.", name, formatCoordinates(v))
	}

	head := fmt.Sprintf("Object '%s' is of type '%s'.", name, obj.Kind())
	switch o := obj.(type) {
	case *geometry.Edge:
		return fmt.Sprintf("%s It runs from %s to %s with a length of %s.",
			head, formatCoordinates(o.Start), formatCoordinates(o.End), formatNumber(o.Length()))
	case *geometry.Wire:
		state := "open"
		if o.IsClosed() {
			state = "closed"
		}
		return fmt.Sprintf("%s It has %d vertices and is %s.", head, len(o.Vertices()), state)
	case *geometry.Face:
		return fmt.Sprintf("%s It has %d vertices and an area of %s.", head, len(o.Vertices()), formatNumber(o.Area()))
	case *geometry.Cell:
		return fmt.Sprintf("%s It has %d vertices, %d faces and a volume of %s.",
			head, len(o.Vertices()), len(o.Faces()), formatNumber(o.Volume()))
	}
	return head
}

func formatCoordinates(v *geometry.Vertex) string {
	c := v.Coordinates()
	return fmt.Sprintf("[%s, %s, %s]", formatNumber(c[0]), formatNumber(c[1]), formatNumber(c[2]))
}

// formatNumber rounds to four decimals and drops trailing zeros.
func formatNumber(f float64) string {
	r := math.Round(f*1e4) / 1e4
	if r == 0 {
		r = 0 // normalize -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// ClearSessionTool removes every object but keeps the chat history.
type ClearSessionTool struct {
	sc session.Context
}

func NewClearSessionTool(sc session.Context) *ClearSessionTool { return &ClearSessionTool{sc: sc} }

func (t *ClearSessionTool) Name() string { return "clear_session" }
func (t *ClearSessionTool) Description() string {
	return "Deletes every object in the current session. The conversation is kept."
}
func (t *ClearSessionTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *ClearSessionTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	t.sc.Session.ClearItems()
	return api.NewTextResult("The session has been deleted"), nil
}
