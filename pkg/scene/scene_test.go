package scene_test

import (
	"math"
	"testing"

	"topovibe/pkg/geometry"
	"topovibe/pkg/scene"
	"topovibe/pkg/session"
)

func countTraces(sc scene.Scene) map[string]int {
	counts := make(map[string]int)
	for _, t := range sc.Data {
		key := t.Type
		if t.Mode != "" {
			key += "/" + t.Mode
		}
		counts[key]++
	}
	return counts
}

func TestBuild_Empty(t *testing.T) {
	sc := scene.Build(nil)
	if !sc.Empty {
		t.Error("empty session should produce an empty scene")
	}
	if sc.Data == nil || len(sc.Data) != 0 {
		t.Errorf("expected empty non-nil trace list, got %v", sc.Data)
	}
	if sc.Layout.Height != scene.Height || sc.Layout.Scene.AspectMode != "data" {
		t.Errorf("layout = %+v", sc.Layout)
	}
}

func TestBuild_Traces(t *testing.T) {
	s := session.New()
	s.Add("v", geometry.AssignName(geometry.VertexByCoordinates(1, 2, 3), "v"))
	e, _ := geometry.EdgeByVertices(geometry.VertexByCoordinates(0, 0, 0), geometry.VertexByCoordinates(1, 0, 0))
	s.Add("e", geometry.AssignName(e, "e"))
	cube, _ := geometry.CellCube(nil, 1)
	s.Add("c", geometry.AssignName(cube, "c"))

	tests := []struct {
		name  string
		items []session.Item
		want  map[string]int
	}{
		{"vertex", s.Items()[:1], map[string]int{"scatter3d/markers": 1}},
		{"edge", s.Items()[1:2], map[string]int{"scatter3d/lines": 1, "scatter3d/markers": 1}},
		{"cube", s.Items()[2:], map[string]int{"mesh3d": 6, "scatter3d/lines": 1, "scatter3d/markers": 1}},
		{"all", s.Items(), map[string]int{"mesh3d": 6, "scatter3d/lines": 2, "scatter3d/markers": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := scene.Build(tt.items)
			got := countTraces(sc)
			for k, n := range tt.want {
				if got[k] != n {
					t.Errorf("%s traces = %d, want %d (all: %v)", k, got[k], n, got)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("unexpected trace kinds: %v", got)
			}
		})
	}
}

func TestBuild_Theme(t *testing.T) {
	cube, _ := geometry.CellCube(nil, 2)
	sc := scene.Build([]session.Item{{Name: "c", Object: geometry.AssignName(cube, "c")}})

	for _, tr := range sc.Data {
		switch {
		case tr.Type == "mesh3d":
			if tr.Opacity != scene.FaceOpacity || !tr.FlatShading {
				t.Errorf("mesh style = %+v", tr)
			}
			if len(tr.I) != 2 {
				t.Errorf("square face should give 2 triangles, got %d", len(tr.I))
			}
		case tr.Mode == "lines":
			if tr.Line.Width != scene.EdgeWidth || tr.Line.Color != scene.EdgeColor || tr.Opacity != scene.EdgeOpacity {
				t.Errorf("line style = %+v", tr.Line)
			}
			// 12 edges, each as two points plus a null separator.
			if len(tr.X) != 36 || tr.X[2] != nil {
				t.Errorf("line points = %d", len(tr.X))
			}
		case tr.Mode == "markers":
			if tr.Marker.Size != scene.VertexSize || tr.Marker.Color != scene.VertexColor {
				t.Errorf("marker style = %+v", tr.Marker)
			}
			if len(tr.X) != 8 {
				t.Errorf("cube should have 8 markers, got %d", len(tr.X))
			}
		}
		if tr.Name != "c" {
			t.Errorf("trace name = %q", tr.Name)
		}
	}
}

func TestInventory(t *testing.T) {
	s := session.New()
	s.Add("p", geometry.VertexByCoordinates(0, 0, 0))
	f, _ := geometry.FaceRectangle(nil, 1, 1)
	s.Add("r", f)

	rows := scene.Inventory(s.Items())
	want := []scene.InventoryRow{{Name: "p", Type: "Vertex"}, {Name: "r", Type: "Face"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestBuild_ConcaveFaceMesh(t *testing.T) {
	outline := [][2]float64{{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}}
	vs := make([]*geometry.Vertex, len(outline))
	for i, p := range outline {
		vs[i] = geometry.VertexByCoordinates(p[0], p[1], 0)
	}
	f, err := geometry.FaceByVertices(vs)
	if err != nil {
		t.Fatalf("FaceByVertices: %v", err)
	}
	s := session.New()
	s.Add("u", geometry.AssignName(f, "u"))

	var mesh *scene.Trace
	sc := scene.Build(s.Items())
	for i := range sc.Data {
		if sc.Data[i].Type == "mesh3d" {
			mesh = &sc.Data[i]
		}
	}
	if mesh == nil {
		t.Fatal("no mesh3d trace for the face")
	}
	if len(mesh.I) != 6 || len(mesh.J) != 6 || len(mesh.K) != 6 {
		t.Fatalf("triangle count = %d/%d/%d, want 6", len(mesh.I), len(mesh.J), len(mesh.K))
	}

	// 網格面積須等於多邊形面積，扇形三角化在凹角處會多出 4
	var area float64
	for n := range mesh.I {
		a, b, c := mesh.I[n], mesh.J[n], mesh.K[n]
		ux, uy := *mesh.X[b]-*mesh.X[a], *mesh.Y[b]-*mesh.Y[a]
		vx, vy := *mesh.X[c]-*mesh.X[a], *mesh.Y[c]-*mesh.Y[a]
		area += math.Abs(ux*vy-uy*vx) / 2
	}
	if math.Abs(area-7) > 1e-9 {
		t.Errorf("mesh area = %v, want 7", area)
	}
}
