package geometry_test

import (
	"errors"
	"math"
	"testing"

	"topovibe/pkg/geometry"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEdgeByVertices(t *testing.T) {
	e, err := geometry.EdgeByVertices(geometry.VertexByCoordinates(0, 0, 0), geometry.VertexByCoordinates(3, 4, 0))
	if err != nil {
		t.Fatalf("EdgeByVertices failed: %v", err)
	}
	if !approx(e.Length(), 5) {
		t.Errorf("Length() = %v, want 5", e.Length())
	}

	_, err = geometry.EdgeByVertices(geometry.VertexByCoordinates(1, 1, 1), geometry.VertexByCoordinates(1, 1, 1))
	if !errors.Is(err, geometry.ErrDegenerate) {
		t.Errorf("coincident endpoints: error = %v, want ErrDegenerate", err)
	}
}

func TestWireByVertices(t *testing.T) {
	pts := []*geometry.Vertex{
		geometry.VertexByCoordinates(0, 0, 0),
		geometry.VertexByCoordinates(1, 0, 0),
		geometry.VertexByCoordinates(1, 1, 0),
	}

	tests := []struct {
		name      string
		close     bool
		wantEdges int
	}{
		{name: "open", close: false, wantEdges: 2},
		{name: "closed", close: true, wantEdges: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := geometry.WireByVertices(pts, tt.close)
			if err != nil {
				t.Fatalf("WireByVertices failed: %v", err)
			}
			if got := len(w.Edges()); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
			if got := len(w.Vertices()); got != 3 {
				t.Errorf("vertices = %d, want 3", got)
			}
			if w.IsClosed() != tt.close {
				t.Errorf("IsClosed() = %v, want %v", w.IsClosed(), tt.close)
			}
		})
	}

	if _, err := geometry.WireByVertices(pts[:1], true); !errors.Is(err, geometry.ErrTooFewVertices) {
		t.Errorf("single vertex: error = %v, want ErrTooFewVertices", err)
	}
}

func TestFaceByVertices(t *testing.T) {
	f, err := geometry.FaceByVertices([]*geometry.Vertex{
		geometry.VertexByCoordinates(0, 0, 0),
		geometry.VertexByCoordinates(2, 0, 0),
		geometry.VertexByCoordinates(2, 3, 0),
		geometry.VertexByCoordinates(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("FaceByVertices failed: %v", err)
	}
	if !approx(f.Area(), 6) {
		t.Errorf("Area() = %v, want 6", f.Area())
	}

	_, err = geometry.FaceByVertices([]*geometry.Vertex{
		geometry.VertexByCoordinates(0, 0, 0),
		geometry.VertexByCoordinates(1, 0, 0),
		geometry.VertexByCoordinates(2, 0, 0),
	})
	if !errors.Is(err, geometry.ErrDegenerate) {
		t.Errorf("collinear points: error = %v, want ErrDegenerate", err)
	}
}

func TestFaceByVertices_NonPlanar(t *testing.T) {
	tests := []struct {
		name   string
		pts    [][3]float64
		planar bool
	}{
		{"lifted corner", [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 1}, {0, 1, 0}}, false},
		{"within tolerance", [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 1e-6}, {0, 1, 0}}, true},
		{"tilted plane", [][3]float64{{0, 0, 0}, {1, 0, 1}, {1, 1, 1}, {0, 1, 0}}, true},
		{"vertical plane", [][3]float64{{0, 2, 0}, {3, 2, 0}, {3, 2, 3}, {0, 2, 3}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geometry.FaceByVertices(vertices(tt.pts))
			if tt.planar && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.planar && !errors.Is(err, geometry.ErrDegenerate) {
				t.Errorf("error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func vertices(pts [][3]float64) []*geometry.Vertex {
	out := make([]*geometry.Vertex, len(pts))
	for i, p := range pts {
		out[i] = geometry.VertexByCoordinates(p[0], p[1], p[2])
	}
	return out
}

func triangleArea(a, b, c *geometry.Vertex) float64 {
	ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
	cx, cy, cz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
	return math.Sqrt(cx*cx+cy*cy+cz*cz) / 2
}

func TestFaceTriangles(t *testing.T) {
	u := [][3]float64{{0, 0, 0}, {3, 0, 0}, {3, 3, 0}, {2, 3, 0}, {2, 1, 0}, {1, 1, 0}, {1, 3, 0}, {0, 3, 0}}
	reversed := make([][3]float64, len(u))
	for i, p := range u {
		reversed[len(u)-1-i] = p
	}
	upright := make([][3]float64, len(u))
	for i, p := range u {
		upright[i] = [3]float64{p[0], 5, p[1]}
	}

	tests := []struct {
		name  string
		pts   [][3]float64
		area  float64
		count int
	}{
		{"square", [][3]float64{{0, 0, 0}, {2, 0, 0}, {2, 3, 0}, {0, 3, 0}}, 6, 2},
		{"u shape", u, 7, 6},
		{"u shape clockwise", reversed, 7, 6},
		{"u shape in xz plane", upright, 7, 6},
		{"l shape", [][3]float64{{0, 0, 0}, {2, 0, 0}, {2, 1, 0}, {1, 1, 0}, {1, 2, 0}, {0, 2, 0}}, 3, 4},
		{"collinear midpoint", [][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {2, 1, 0}, {0, 1, 0}}, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := geometry.FaceByVertices(vertices(tt.pts))
			if err != nil {
				t.Fatalf("FaceByVertices: %v", err)
			}
			vs := f.Vertices()
			tris := f.Triangles()
			if len(tris) != tt.count {
				t.Errorf("got %d triangles, want %d", len(tris), tt.count)
			}
			var sum float64
			for _, tri := range tris {
				sum += triangleArea(vs[tri[0]], vs[tri[1]], vs[tri[2]])
			}
			if !approx(sum, tt.area) || !approx(f.Area(), tt.area) {
				t.Errorf("triangle area sum = %v, face area = %v, want %v", sum, f.Area(), tt.area)
			}
		})
	}
}

func TestFaceRectangleAndCircle(t *testing.T) {
	r, err := geometry.FaceRectangle(geometry.VertexByCoordinates(5, 5, 1), 2, 4)
	if err != nil {
		t.Fatalf("FaceRectangle failed: %v", err)
	}
	if !approx(r.Area(), 8) {
		t.Errorf("rectangle Area() = %v, want 8", r.Area())
	}
	for _, v := range r.Vertices() {
		if v.Z != 1 {
			t.Errorf("rectangle vertex z = %v, want 1", v.Z)
		}
	}

	c, err := geometry.FaceCircle(nil, 1, 0)
	if err != nil {
		t.Fatalf("FaceCircle failed: %v", err)
	}
	if got := len(c.Vertices()); got != geometry.DefaultSides {
		t.Errorf("circle vertices = %d, want %d", got, geometry.DefaultSides)
	}

	if _, err := geometry.FaceCircle(nil, -1, 0); !errors.Is(err, geometry.ErrInvalidSize) {
		t.Errorf("negative radius: error = %v, want ErrInvalidSize", err)
	}
}

func TestCells(t *testing.T) {
	cube, err := geometry.CellCube(nil, 2)
	if err != nil {
		t.Fatalf("CellCube failed: %v", err)
	}
	if got := len(cube.Vertices()); got != 8 {
		t.Errorf("cube vertices = %d, want 8", got)
	}
	if got := len(cube.Edges()); got != 12 {
		t.Errorf("cube edges = %d, want 12", got)
	}
	if got := len(cube.Faces()); got != 6 {
		t.Errorf("cube faces = %d, want 6", got)
	}
	if !approx(cube.Volume(), 8) {
		t.Errorf("cube Volume() = %v, want 8", cube.Volume())
	}

	prism, err := geometry.CellPrism(nil, 1, 2, 3)
	if err != nil {
		t.Fatalf("CellPrism failed: %v", err)
	}
	if !approx(prism.Volume(), 6) {
		t.Errorf("prism Volume() = %v, want 6", prism.Volume())
	}

	cyl, err := geometry.CellCylinder(nil, 1, 2, 0)
	if err != nil {
		t.Fatalf("CellCylinder failed: %v", err)
	}
	if got := len(cyl.Faces()); got != geometry.DefaultSides+2 {
		t.Errorf("cylinder faces = %d, want %d", got, geometry.DefaultSides+2)
	}
	// A regular 16-gon of circumradius 1 has area 8*sin(pi/8).
	want := 8 * math.Sin(2*math.Pi/16) * 2
	if !approx(cyl.Volume(), want) {
		t.Errorf("cylinder Volume() = %v, want %v", cyl.Volume(), want)
	}
}

func TestAssignName(t *testing.T) {
	v := geometry.VertexByCoordinates(1, 2, 3)
	named := geometry.AssignName(v, "p1")

	if got := geometry.NameOf(named); got != "p1" {
		t.Errorf("NameOf(named) = %q, want %q", got, "p1")
	}
	if got := geometry.NameOf(v); got != "" {
		t.Errorf("original was modified: NameOf = %q", got)
	}
	if named.Kind() != geometry.KindVertex {
		t.Errorf("Kind() = %v, want Vertex", named.Kind())
	}
	if c := named.(*geometry.Vertex).Coordinates(); c != [3]float64{1, 2, 3} {
		t.Errorf("Coordinates() = %v", c)
	}

	d := named.Dictionary()
	d["name"] = "changed"
	if got := geometry.NameOf(named); got != "p1" {
		t.Errorf("Dictionary() leaked internal state, name = %q", got)
	}
}

func TestDictionaryByKeysValues(t *testing.T) {
	if _, err := geometry.DictionaryByKeysValues([]string{"a", "b"}, []any{1}); err == nil {
		t.Error("expected error on length mismatch")
	}
	d, err := geometry.DictionaryByKeysValues([]string{"a"}, []any{1})
	if err != nil {
		t.Fatalf("DictionaryByKeysValues failed: %v", err)
	}
	if d.ValueAtKey("a") != 1 {
		t.Errorf("ValueAtKey(a) = %v", d.ValueAtKey("a"))
	}
}

func TestClusterByTopologies(t *testing.T) {
	cube, _ := geometry.CellCube(nil, 1)
	v := geometry.VertexByCoordinates(0, 0, 0)
	c := geometry.ClusterByTopologies([]geometry.Topology{cube, nil, v})

	if got := len(c.Members()); got != 2 {
		t.Errorf("members = %d, want 2", got)
	}
	if got := len(c.Vertices()); got != 9 {
		t.Errorf("vertices = %d, want 9", got)
	}
	if got := len(c.Faces()); got != 6 {
		t.Errorf("faces = %d, want 6", got)
	}
}
