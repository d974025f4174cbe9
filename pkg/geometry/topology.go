// Package geometry is the small topology kernel behind the shape tools.
// It models vertices, edges, wires, faces, cells and clusters the way
// topologic-style kernels do: every higher-order entity is built from the
// lower ones, and every entity can carry a key/value Dictionary.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Kind names the topology class of an entity.
type Kind string

const (
	KindVertex  Kind = "Vertex"
	KindEdge    Kind = "Edge"
	KindWire    Kind = "Wire"
	KindFace    Kind = "Face"
	KindCell    Kind = "Cell"
	KindCluster Kind = "Cluster"
)

// Tolerance is the distance under which two points are considered coincident.
const Tolerance = 1e-4

var (
	ErrTooFewVertices = errors.New("not enough vertices")
	ErrDegenerate     = errors.New("degenerate geometry")
	ErrInvalidSize    = errors.New("dimensions must be positive")
)

// Topology is implemented by every entity the kernel produces.
type Topology interface {
	Kind() Kind
	// Vertices returns the distinct vertices in construction order.
	Vertices() []*Vertex
	// Edges returns the distinct edges in construction order.
	Edges() []*Edge
	// Faces returns the faces, empty for entities below Face.
	Faces() []*Face
	Dictionary() Dictionary

	withDictionary(d Dictionary) Topology
}

type base struct {
	dict Dictionary
}

func (b base) Dictionary() Dictionary {
	return b.dict.clone()
}

// Vertex is a point in 3D space.
type Vertex struct {
	base
	X, Y, Z float64
}

// VertexByCoordinates creates a vertex.
func VertexByCoordinates(x, y, z float64) *Vertex {
	return &Vertex{X: x, Y: y, Z: z}
}

func (v *Vertex) Kind() Kind          { return KindVertex }
func (v *Vertex) Vertices() []*Vertex { return []*Vertex{v} }
func (v *Vertex) Edges() []*Edge      { return nil }
func (v *Vertex) Faces() []*Face      { return nil }
func (v *Vertex) Coordinates() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func (v *Vertex) withDictionary(d Dictionary) Topology {
	cp := *v
	cp.dict = d
	return &cp
}

// Distance returns the euclidean distance between two vertices.
func Distance(a, b *Vertex) float64 {
	return math.Sqrt(sq(a.X-b.X) + sq(a.Y-b.Y) + sq(a.Z-b.Z))
}

// Edge is a straight segment between two vertices.
type Edge struct {
	base
	Start, End *Vertex
}

// EdgeByVertices creates an edge. Coincident endpoints are rejected.
func EdgeByVertices(start, end *Vertex) (*Edge, error) {
	if start == nil || end == nil {
		return nil, ErrTooFewVertices
	}
	if Distance(start, end) < Tolerance {
		return nil, ErrDegenerate
	}
	return &Edge{Start: start, End: end}, nil
}

func (e *Edge) Kind() Kind          { return KindEdge }
func (e *Edge) Vertices() []*Vertex { return []*Vertex{e.Start, e.End} }
func (e *Edge) Edges() []*Edge      { return []*Edge{e} }
func (e *Edge) Faces() []*Face      { return nil }
func (e *Edge) Length() float64     { return Distance(e.Start, e.End) }

func (e *Edge) withDictionary(d Dictionary) Topology {
	cp := *e
	cp.dict = d
	return &cp
}

// Wire is a connected chain of edges.
type Wire struct {
	base
	edges  []*Edge
	closed bool
}

// WireByVertices chains consecutive vertices with edges. When close is set
// and there are at least three vertices, a closing edge joins the last vertex
// back to the first. Consecutive coincident vertices are rejected.
func WireByVertices(vertices []*Vertex, close bool) (*Wire, error) {
	if len(vertices) < 2 {
		return nil, ErrTooFewVertices
	}
	w := &Wire{}
	for i := 0; i < len(vertices)-1; i++ {
		e, err := EdgeByVertices(vertices[i], vertices[i+1])
		if err != nil {
			return nil, err
		}
		w.edges = append(w.edges, e)
	}
	if close && len(vertices) >= 3 {
		last, first := vertices[len(vertices)-1], vertices[0]
		if Distance(last, first) >= Tolerance {
			e, _ := EdgeByVertices(last, first)
			w.edges = append(w.edges, e)
		}
		w.closed = true
	}
	return w, nil
}

func (w *Wire) Kind() Kind     { return KindWire }
func (w *Wire) Edges() []*Edge { return append([]*Edge(nil), w.edges...) }
func (w *Wire) Faces() []*Face { return nil }
func (w *Wire) IsClosed() bool { return w.closed }

func (w *Wire) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(w.edges)+1)
	for i, e := range w.edges {
		if i == 0 {
			out = append(out, e.Start)
		}
		if w.closed && i == len(w.edges)-1 {
			break
		}
		out = append(out, e.End)
	}
	return out
}

func (w *Wire) withDictionary(d Dictionary) Topology {
	cp := *w
	cp.dict = d
	return &cp
}

// Face is a planar region bounded by a closed wire.
type Face struct {
	base
	outer *Wire
}

// FaceByVertices closes the vertices into a wire and builds a face from it.
// The vertices must lie in one plane.
func FaceByVertices(vertices []*Vertex) (*Face, error) {
	if len(vertices) < 3 {
		return nil, ErrTooFewVertices
	}
	w, err := WireByVertices(vertices, true)
	if err != nil {
		return nil, err
	}
	f := &Face{outer: w}
	if f.Area() < Tolerance*Tolerance {
		return nil, ErrDegenerate
	}
	if d := f.planeDeviation(); d > Tolerance {
		return nil, fmt.Errorf("%w: vertices are not coplanar (off by %.4g)", ErrDegenerate, d)
	}
	return f, nil
}

// planeDeviation is the largest distance of a boundary vertex from the plane
// through the first vertex with the Newell normal.
func (f *Face) planeDeviation() float64 {
	n := f.Normal()
	length := math.Sqrt(sq(n[0]) + sq(n[1]) + sq(n[2]))
	vs := f.outer.Vertices()
	p0 := vs[0]
	var worst float64
	for _, v := range vs[1:] {
		d := math.Abs((v.X-p0.X)*n[0]+(v.Y-p0.Y)*n[1]+(v.Z-p0.Z)*n[2]) / length
		worst = math.Max(worst, d)
	}
	return worst
}

func (f *Face) Kind() Kind          { return KindFace }
func (f *Face) Vertices() []*Vertex { return f.outer.Vertices() }
func (f *Face) Edges() []*Edge      { return f.outer.Edges() }
func (f *Face) Faces() []*Face      { return []*Face{f} }

// ExternalBoundary returns the wire bounding the face.
func (f *Face) ExternalBoundary() *Wire { return f.outer }

// Normal returns the Newell normal of the boundary; its length is twice the area.
func (f *Face) Normal() [3]float64 {
	vs := f.outer.Vertices()
	var n [3]float64
	for i := range vs {
		a, b := vs[i], vs[(i+1)%len(vs)]
		n[0] += (a.Y - b.Y) * (a.Z + b.Z)
		n[1] += (a.Z - b.Z) * (a.X + b.X)
		n[2] += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// Area returns the area enclosed by the boundary.
func (f *Face) Area() float64 {
	n := f.Normal()
	return math.Sqrt(sq(n[0])+sq(n[1])+sq(n[2])) / 2
}

// Triangles splits the face into triangles given as index triples into
// Vertices(). Concave boundaries are handled by ear clipping in the face plane.
func (f *Face) Triangles() [][3]int {
	vs := f.Vertices()
	pts := projectToPlane(vs, f.Normal())

	idx := make([]int, len(vs))
	for i := range idx {
		idx[i] = i
	}
	// 統一為逆時針，凸角的外積才會是正值
	if signedArea(pts) < 0 {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	eps := Tolerance * Tolerance
	tris := make([][3]int, 0, len(vs)-2)
	for len(idx) > 3 {
		ear := -1
		collinear := -1
		for i := range idx {
			a, b, c := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			turn := cross2(pts[a], pts[b], pts[c])
			if math.Abs(turn) <= eps {
				collinear = i
				continue
			}
			if turn < 0 {
				continue // reflex
			}
			if !containsAny(pts, idx, a, b, c) {
				ear = i
				break
			}
		}

		switch {
		case ear >= 0:
			n := len(idx)
			tris = append(tris, [3]int{idx[(ear+n-1)%n], idx[ear], idx[(ear+1)%n]})
			idx = append(idx[:ear:ear], idx[ear+1:]...)
		case collinear >= 0:
			// 共線頂點不貢獻面積，直接移除
			idx = append(idx[:collinear:collinear], idx[collinear+1:]...)
		default:
			// Numerically hopeless; fan out what is left.
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
			}
			return tris
		}
	}
	if len(idx) == 3 && math.Abs(cross2(pts[idx[0]], pts[idx[1]], pts[idx[2]])) > eps {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	return tris
}

func (f *Face) withDictionary(d Dictionary) Topology {
	cp := *f
	cp.dict = d
	return &cp
}

// Cell is a closed solid bounded by faces whose normals point outward.
type Cell struct {
	base
	faces []*Face
}

func (c *Cell) Kind() Kind     { return KindCell }
func (c *Cell) Faces() []*Face { return append([]*Face(nil), c.faces...) }

func (c *Cell) Vertices() []*Vertex {
	seen := make(map[*Vertex]bool)
	var out []*Vertex
	for _, f := range c.faces {
		for _, v := range f.Vertices() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Edges returns each boundary edge once even though adjacent faces both
// reference it.
func (c *Cell) Edges() []*Edge {
	type key [2]*Vertex
	seen := make(map[key]bool)
	var out []*Edge
	for _, f := range c.faces {
		for _, e := range f.Edges() {
			k := key{e.Start, e.End}
			if !seen[k] && !seen[key{e.End, e.Start}] {
				seen[k] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// Volume is computed with the divergence theorem over fan triangulated faces.
func (c *Cell) Volume() float64 {
	var vol float64
	for _, f := range c.faces {
		vs := f.Vertices()
		for i := 1; i+1 < len(vs); i++ {
			vol += dot(vs[0], cross(vs[i], vs[i+1]))
		}
	}
	return math.Abs(vol) / 6
}

func (c *Cell) withDictionary(d Dictionary) Topology {
	cp := *c
	cp.dict = d
	return &cp
}

// Cluster groups arbitrary topologies for display.
type Cluster struct {
	base
	members []Topology
}

// ClusterByTopologies groups the given topologies. Nil entries are skipped.
func ClusterByTopologies(members []Topology) *Cluster {
	c := &Cluster{}
	for _, m := range members {
		if m != nil {
			c.members = append(c.members, m)
		}
	}
	return c
}

func (c *Cluster) Kind() Kind          { return KindCluster }
func (c *Cluster) Members() []Topology { return append([]Topology(nil), c.members...) }

func (c *Cluster) Vertices() []*Vertex {
	var out []*Vertex
	for _, m := range c.members {
		out = append(out, m.Vertices()...)
	}
	return out
}

func (c *Cluster) Edges() []*Edge {
	var out []*Edge
	for _, m := range c.members {
		out = append(out, m.Edges()...)
	}
	return out
}

func (c *Cluster) Faces() []*Face {
	var out []*Face
	for _, m := range c.members {
		out = append(out, m.Faces()...)
	}
	return out
}

func (c *Cluster) withDictionary(d Dictionary) Topology {
	cp := *c
	cp.dict = d
	return &cp
}

func sq(x float64) float64 { return x * x }

// projectToPlane drops the coordinate the normal is most aligned with.
func projectToPlane(vs []*Vertex, n [3]float64) [][2]float64 {
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(n[i]) > math.Abs(n[k]) {
			k = i
		}
	}
	ax, ay := (k+1)%3, (k+2)%3
	pts := make([][2]float64, len(vs))
	for i, v := range vs {
		c := v.Coordinates()
		pts[i] = [2]float64{c[ax], c[ay]}
	}
	return pts
}

func signedArea(pts [][2]float64) float64 {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p[0]*q[1] - q[0]*p[1]
	}
	return a / 2
}

func cross2(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// containsAny reports whether a remaining vertex other than a, b, c lies
// inside or on the triangle abc.
func containsAny(pts [][2]float64, idx []int, a, b, c int) bool {
	for _, p := range idx {
		if p == a || p == b || p == c {
			continue
		}
		if pts[p] == pts[a] || pts[p] == pts[b] || pts[p] == pts[c] {
			continue
		}
		d1 := cross2(pts[a], pts[b], pts[p])
		d2 := cross2(pts[b], pts[c], pts[p])
		d3 := cross2(pts[c], pts[a], pts[p])
		if d1 >= 0 && d2 >= 0 && d3 >= 0 {
			return true
		}
	}
	return false
}

func cross(a, b *Vertex) *Vertex {
	return &Vertex{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func dot(a, b *Vertex) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}
