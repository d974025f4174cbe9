package geometry

import "math"

// DefaultSides is the number of segments used to approximate circles.
const DefaultSides = 16

func originOrZero(origin *Vertex) *Vertex {
	if origin == nil {
		return VertexByCoordinates(0, 0, 0)
	}
	return origin
}

// FaceRectangle creates a rectangle in the XY plane centered on origin, with
// width along X and length along Y. A nil origin means the world origin.
func FaceRectangle(origin *Vertex, width, length float64) (*Face, error) {
	if width <= 0 || length <= 0 {
		return nil, ErrInvalidSize
	}
	o := originOrZero(origin)
	return FaceByVertices(rectangleRing(o, width, length, o.Z))
}

// FaceCircle creates a regular polygon approximating a circle in the XY
// plane centered on origin.
func FaceCircle(origin *Vertex, radius float64, sides int) (*Face, error) {
	if radius <= 0 {
		return nil, ErrInvalidSize
	}
	if sides < 3 {
		sides = DefaultSides
	}
	o := originOrZero(origin)
	return FaceByVertices(circleRing(o, radius, sides, o.Z))
}

// CellPrism creates a box centered on origin.
func CellPrism(origin *Vertex, width, length, height float64) (*Cell, error) {
	if width <= 0 || length <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	o := originOrZero(origin)
	return extrude(rectangleRing(o, width, length, o.Z-height/2), height)
}

// CellCube creates a cube of the given edge size centered on origin.
func CellCube(origin *Vertex, size float64) (*Cell, error) {
	return CellPrism(origin, size, size, size)
}

// CellCylinder creates a faceted cylinder centered on origin with its axis
// along Z.
func CellCylinder(origin *Vertex, radius, height float64, sides int) (*Cell, error) {
	if radius <= 0 || height <= 0 {
		return nil, ErrInvalidSize
	}
	if sides < 3 {
		sides = DefaultSides
	}
	o := originOrZero(origin)
	return extrude(circleRing(o, radius, sides, o.Z-height/2), height)
}

// rectangleRing returns the rectangle corners counter-clockwise seen from +Z.
func rectangleRing(o *Vertex, width, length, z float64) []*Vertex {
	hw, hl := width/2, length/2
	return []*Vertex{
		VertexByCoordinates(o.X-hw, o.Y-hl, z),
		VertexByCoordinates(o.X+hw, o.Y-hl, z),
		VertexByCoordinates(o.X+hw, o.Y+hl, z),
		VertexByCoordinates(o.X-hw, o.Y+hl, z),
	}
}

// circleRing returns polygon vertices counter-clockwise seen from +Z.
func circleRing(o *Vertex, radius float64, sides int, z float64) []*Vertex {
	ring := make([]*Vertex, sides)
	for i := range ring {
		a := 2 * math.Pi * float64(i) / float64(sides)
		ring[i] = VertexByCoordinates(o.X+radius*math.Cos(a), o.Y+radius*math.Sin(a), z)
	}
	return ring
}

// extrude sweeps a counter-clockwise base ring along +Z. The returned faces
// share vertices so the cell reports each corner once.
func extrude(bottom []*Vertex, height float64) (*Cell, error) {
	n := len(bottom)
	top := make([]*Vertex, n)
	for i, v := range bottom {
		top[i] = VertexByCoordinates(v.X, v.Y, v.Z+height)
	}

	reversed := make([]*Vertex, n)
	for i, v := range bottom {
		reversed[n-1-i] = v
	}

	cell := &Cell{}
	floor, err := FaceByVertices(reversed)
	if err != nil {
		return nil, err
	}
	cell.faces = append(cell.faces, floor)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		side, err := FaceByVertices([]*Vertex{bottom[i], bottom[j], top[j], top[i]})
		if err != nil {
			return nil, err
		}
		cell.faces = append(cell.faces, side)
	}

	lid, err := FaceByVertices(top)
	if err != nil {
		return nil, err
	}
	cell.faces = append(cell.faces, lid)
	return cell, nil
}
