// Package scene turns the session's objects into plotly style traces for
// the web viewer.
package scene

import (
	"topovibe/pkg/geometry"
	"topovibe/pkg/session"
)

// Theme colors and sizes shared by every scene.
const (
	BackgroundColor = "#0E1117"
	GridColor       = "#333333"
	ZeroLineColor   = "#444444"
	FontColor       = "#FAFAFA"
	Height          = 750

	FaceOpacity = 0.1
	FaceColor   = "#4FC3F7"

	EdgeWidth   = 3
	EdgeColor   = "#F5F5F4"
	EdgeOpacity = 0.8

	VertexSize  = 7
	VertexColor = "#FF7043"
)

// Trace is one plotly trace. Line traces separate edges with null points.
type Trace struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	LegendGroup string     `json:"legendgroup"`
	ShowLegend  bool       `json:"showlegend"`
	Mode        string     `json:"mode,omitempty"`
	X           []*float64 `json:"x"`
	Y           []*float64 `json:"y"`
	Z           []*float64 `json:"z"`
	I           []int      `json:"i,omitempty"`
	J           []int      `json:"j,omitempty"`
	K           []int      `json:"k,omitempty"`
	Color       string     `json:"color,omitempty"`
	Opacity     float64    `json:"opacity,omitempty"`
	FlatShading bool       `json:"flatshading,omitempty"`
	Line        *Line      `json:"line,omitempty"`
	Marker      *Marker    `json:"marker,omitempty"`
}

type Line struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

type Marker struct {
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

type Axis struct {
	Title          string `json:"title"`
	GridColor      string `json:"gridcolor"`
	ZeroLineColor  string `json:"zerolinecolor"`
	ShowBackground bool   `json:"showbackground"`
	Background     string `json:"backgroundcolor"`
}

type Font struct {
	Color string `json:"color"`
}

type SceneLayout struct {
	AspectMode string `json:"aspectmode"`
	XAxis      Axis   `json:"xaxis"`
	YAxis      Axis   `json:"yaxis"`
	ZAxis      Axis   `json:"zaxis"`
}

type Layout struct {
	Height       int         `json:"height"`
	PaperBGColor string      `json:"paper_bgcolor"`
	PlotBGColor  string      `json:"plot_bgcolor"`
	Font         Font        `json:"font"`
	Scene        SceneLayout `json:"scene"`
}

// InventoryRow is one line of the object table.
type InventoryRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Scene is everything the viewer needs to draw the session.
type Scene struct {
	Empty     bool           `json:"empty"`
	Data      []Trace        `json:"data"`
	Layout    Layout         `json:"layout"`
	Inventory []InventoryRow `json:"inventory"`
}

// Inventory lists name and kind of every item in order.
func Inventory(items []session.Item) []InventoryRow {
	rows := make([]InventoryRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, InventoryRow{Name: it.Name, Type: string(it.Object.Kind())})
	}
	return rows
}

// Build combines items into one cluster and emits, per object, a mesh trace
// for each face, one line trace for its edges and one marker trace for its
// vertices.
func Build(items []session.Item) Scene {
	sc := Scene{
		Empty:     len(items) == 0,
		Data:      []Trace{},
		Layout:    DefaultLayout(),
		Inventory: Inventory(items),
	}

	members := make([]geometry.Topology, 0, len(items))
	for _, it := range items {
		members = append(members, it.Object)
	}
	cluster := geometry.ClusterByTopologies(members)

	for i, m := range cluster.Members() {
		name := geometry.NameOf(m)
		if name == "" {
			name = items[i].Name
		}
		sc.Data = append(sc.Data, objectTraces(name, m)...)
	}
	return sc
}

func objectTraces(name string, obj geometry.Topology) []Trace {
	var traces []Trace

	for _, f := range obj.Faces() {
		traces = append(traces, faceTrace(name, f))
	}

	if edges := obj.Edges(); len(edges) > 0 {
		t := Trace{
			Type:        "scatter3d",
			Mode:        "lines",
			Name:        name,
			LegendGroup: name,
			Opacity:     EdgeOpacity,
			Line:        &Line{Width: EdgeWidth, Color: EdgeColor},
		}
		for _, e := range edges {
			t.appendPoint(e.Start)
			t.appendPoint(e.End)
			t.X, t.Y, t.Z = append(t.X, nil), append(t.Y, nil), append(t.Z, nil)
		}
		traces = append(traces, t)
	}

	if vs := obj.Vertices(); len(vs) > 0 {
		t := Trace{
			Type:        "scatter3d",
			Mode:        "markers",
			Name:        name,
			LegendGroup: name,
			ShowLegend:  true,
			Marker:      &Marker{Size: VertexSize, Color: VertexColor},
		}
		for _, v := range vs {
			t.appendPoint(v)
		}
		traces = append(traces, t)
	}

	return traces
}

// faceTrace meshes the face with its ear clipped triangles so concave
// outlines render without covering area outside the boundary.
func faceTrace(name string, f *geometry.Face) Trace {
	t := Trace{
		Type:        "mesh3d",
		Name:        name,
		LegendGroup: name,
		Color:       FaceColor,
		Opacity:     FaceOpacity,
		FlatShading: true,
	}
	vs := f.Vertices()
	for _, v := range vs {
		t.appendPoint(v)
	}
	for _, tri := range f.Triangles() {
		t.I = append(t.I, tri[0])
		t.J = append(t.J, tri[1])
		t.K = append(t.K, tri[2])
	}
	return t
}

func (t *Trace) appendPoint(v *geometry.Vertex) {
	x, y, z := v.X, v.Y, v.Z
	t.X = append(t.X, &x)
	t.Y = append(t.Y, &y)
	t.Z = append(t.Z, &z)
}

// DefaultLayout is the dark theme used by the viewer.
func DefaultLayout() Layout {
	axis := func(title string) Axis {
		return Axis{
			Title:          title,
			GridColor:      GridColor,
			ZeroLineColor:  ZeroLineColor,
			ShowBackground: true,
			Background:     BackgroundColor,
		}
	}
	return Layout{
		Height:       Height,
		PaperBGColor: BackgroundColor,
		PlotBGColor:  BackgroundColor,
		Font:         Font{Color: FontColor},
		Scene: SceneLayout{
			AspectMode: "data",
			XAxis:      axis("X"),
			YAxis:      axis("Y"),
			ZAxis:      axis("Z"),
		},
	}
}
