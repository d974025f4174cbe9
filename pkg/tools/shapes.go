package tools

import (
	"context"
	"fmt"

	"topovibe/pkg/api"
	"topovibe/pkg/geometry"
	"topovibe/pkg/session"

	"github.com/google/uuid"
)

// buildFunc decodes the arguments of one shape tool and constructs the
// shape. It returns the requested name, empty when the model gave none.
type buildFunc func(args map[string]any) (geometry.Topology, string, error)

// ShapeTool creates one kind of geometry and registers it in the session.
type ShapeTool struct {
	name        string
	kind        string // lower case, used in default names and confirmations
	description string
	parameters  map[string]any
	build       buildFunc
	sc          session.Context
}

func (t *ShapeTool) Name() string               { return t.name }
func (t *ShapeTool) Description() string        { return t.description }
func (t *ShapeTool) Parameters() map[string]any { return t.parameters }

// Execute never returns a Go error for bad input: the model receives an
// "Error: ..." text and the session is left unchanged.
func (t *ShapeTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	obj, name, err := t.build(args)
	if err != nil {
		return api.NewTextResult(errorText(err)), nil
	}
	if name == "" {
		name = fmt.Sprintf("%s %s", t.kind, uuid.NewString())
	}

	obj = geometry.AssignName(obj, name)
	t.sc.Session.Add(name, obj)

	return &ToolResult{
		Content: []ContentBlock{{Type: "text", Text: confirmation(t.kind, name)}},
		Details: map[string]any{"name": name, "kind": string(obj.Kind())},
	}, nil
}

func confirmation(kind, name string) string {
	article := "A"
	switch kind[0] {
	case 'a', 'e', 'i', 'o', 'u':
		article = "An"
	}
	return fmt.Sprintf("%s %s with name %s has been created and registered", article, kind, name)
}

func coordinateSchema(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "number"},
		"minItems":    1,
		"maxItems":    3,
		"description": desc,
	}
}

func pointsSchema(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       coordinateSchema("[x, y, z] coordinates of one point."),
		"description": desc,
	}
}

func numberSchema(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	properties["name"] = map[string]any{
		"type":        "string",
		"description": "Optional custom name of the object.",
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// NewVertexTool: create_vertex(position?, name?)
func NewVertexTool(sc session.Context) *ShapeTool {
	const name = "create_vertex"
	return &ShapeTool{
		name:        name,
		kind:        "vertex",
		description: "Creates a vertex (a point) at the given position.",
		parameters: objectSchema(map[string]any{
			"position": coordinateSchema("[x, y, z] coordinates of the vertex, by default [0, 0, 0]."),
		}),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Position []float64
				Name     string
			}
			if err := decodeArgs(name, args, nil, &in); err != nil {
				return nil, "", err
			}
			v, err := vertexFromCoordinates(in.Position)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			return v, in.Name, nil
		},
	}
}

// NewEdgeTool: create_edge(start, end, name?)
func NewEdgeTool(sc session.Context) *ShapeTool {
	const name = "create_edge"
	required := []string{"start", "end"}
	return &ShapeTool{
		name:        name,
		kind:        "edge",
		description: "Creates an edge (a straight line segment) between a start and an end point.",
		parameters: objectSchema(map[string]any{
			"start": coordinateSchema("[x, y, z] coordinates of the start point."),
			"end":   coordinateSchema("[x, y, z] coordinates of the end point."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Start, End []float64
				Name       string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			start, err := vertexFromCoordinates(in.Start)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			end, err := vertexFromCoordinates(in.End)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			e, err := geometry.EdgeByVertices(start, end)
			if err != nil {
				return nil, "", err
			}
			return e, in.Name, nil
		},
	}
}

// NewWireTool: create_wire(points, is_closed?, name?)
func NewWireTool(sc session.Context) *ShapeTool {
	const name = "create_wire"
	required := []string{"points"}
	return &ShapeTool{
		name:        name,
		kind:        "wire",
		description: "Creates a wire (a polyline) through a list of at least two points. The wire is closed by default.",
		parameters: objectSchema(map[string]any{
			"points": pointsSchema("A list of [x, y, z] coordinates the wire passes through."),
			"is_closed": map[string]any{
				"type":        "boolean",
				"description": "Whether the last point connects back to the first, by default true.",
			},
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Points   [][]float64
				IsClosed *bool `mapstructure:"is_closed"`
				Name     string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			if len(in.Points) < 2 {
				return nil, "", textError("Error: At least two points are required to create a wire.")
			}
			vs, err := verticesFromPoints(in.Points)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			closed := in.IsClosed == nil || *in.IsClosed
			w, err := geometry.WireByVertices(vs, closed)
			if err != nil {
				return nil, "", err
			}
			return w, in.Name, nil
		},
	}
}

// NewFaceTool: create_face(points, name?)
func NewFaceTool(sc session.Context) *ShapeTool {
	const name = "create_face"
	required := []string{"points"}
	return &ShapeTool{
		name:        name,
		kind:        "face",
		description: "Creates a planar face bounded by a list of at least three points.",
		parameters: objectSchema(map[string]any{
			"points": pointsSchema("A list of at least three [x, y, z] coordinates forming the face boundary."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Points [][]float64
				Name   string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			if len(in.Points) < 3 {
				return nil, "", textError("Error: At least three points are required to create a face.")
			}
			vs, err := verticesFromPoints(in.Points)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			f, err := geometry.FaceByVertices(vs)
			if err != nil {
				return nil, "", err
			}
			return f, in.Name, nil
		},
	}
}

// NewRectangleTool: create_rectangle(length, width, origin?, name?)
func NewRectangleTool(sc session.Context) *ShapeTool {
	const name = "create_rectangle"
	required := []string{"length", "width"}
	return &ShapeTool{
		name:        name,
		kind:        "rectangle",
		description: "Creates a rectangular face given length and width, centered on the origin.",
		parameters: objectSchema(map[string]any{
			"length": numberSchema("Length of the rectangle along the Y axis."),
			"width":  numberSchema("Width of the rectangle along the X axis."),
			"origin": coordinateSchema("[x, y, z] coordinates of the center, by default [0, 0, 0]."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Length, Width float64
				Origin        []float64
				Name          string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			origin, err := optionalOrigin(in.Origin)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			f, err := geometry.FaceRectangle(origin, in.Width, in.Length)
			if err != nil {
				return nil, "", err
			}
			return f, in.Name, nil
		},
	}
}

// NewCircleTool: create_circle(radius, origin?, name?)
func NewCircleTool(sc session.Context) *ShapeTool {
	const name = "create_circle"
	required := []string{"radius"}
	return &ShapeTool{
		name:        name,
		kind:        "circle",
		description: "Creates a circular face given its radius.",
		parameters: objectSchema(map[string]any{
			"radius": numberSchema("Radius of the circle."),
			"origin": coordinateSchema("[x, y, z] coordinates of the center, by default [0, 0, 0]."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Radius float64
				Origin []float64
				Name   string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			origin, err := optionalOrigin(in.Origin)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			f, err := geometry.FaceCircle(origin, in.Radius, geometry.DefaultSides)
			if err != nil {
				return nil, "", err
			}
			return f, in.Name, nil
		},
	}
}

// NewCubeTool: create_cube(size, origin?, name?)
func NewCubeTool(sc session.Context) *ShapeTool {
	const name = "create_cube"
	required := []string{"size"}
	return &ShapeTool{
		name:        name,
		kind:        "cube",
		description: "Creates a cube given the length of its edges.",
		parameters: objectSchema(map[string]any{
			"size":   numberSchema("Edge length of the cube."),
			"origin": coordinateSchema("[x, y, z] coordinates of the center, by default [0, 0, 0]."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Size   float64
				Origin []float64
				Name   string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			origin, err := optionalOrigin(in.Origin)
			if err != nil {
				return nil, "", invalidArgs(name, err)
			}
			c, err := geometry.CellCube(origin, in.Size)
			if err != nil {
				return nil, "", err
			}
			return c, in.Name, nil
		},
	}
}

// NewPrismTool: create_prism(width, length, height, name?)
func NewPrismTool(sc session.Context) *ShapeTool {
	const name = "create_prism"
	required := []string{"width", "length", "height"}
	return &ShapeTool{
		name:        name,
		kind:        "prism",
		description: "Creates a prism with a rectangular base given width, length and height.",
		parameters: objectSchema(map[string]any{
			"width":  numberSchema("Width of the base rectangle."),
			"length": numberSchema("Length of the base rectangle."),
			"height": numberSchema("Height of the prism."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Width, Length, Height float64
				Name                  string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			c, err := geometry.CellPrism(nil, in.Width, in.Length, in.Height)
			if err != nil {
				return nil, "", err
			}
			return c, in.Name, nil
		},
	}
}

// NewCylinderTool: create_cylinder(radius, height, name?)
func NewCylinderTool(sc session.Context) *ShapeTool {
	const name = "create_cylinder"
	required := []string{"radius", "height"}
	return &ShapeTool{
		name:        name,
		kind:        "cylinder",
		description: "Creates a cylinder given radius and height.",
		parameters: objectSchema(map[string]any{
			"radius": numberSchema("Radius of the cylinder."),
			"height": numberSchema("Height of the cylinder."),
		}, required...),
		sc: sc,
		build: func(args map[string]any) (geometry.Topology, string, error) {
			var in struct {
				Radius, Height float64
				Name           string
			}
			if err := decodeArgs(name, args, required, &in); err != nil {
				return nil, "", err
			}
			c, err := geometry.CellCylinder(nil, in.Radius, in.Height, geometry.DefaultSides)
			if err != nil {
				return nil, "", err
			}
			return c, in.Name, nil
		},
	}
}
