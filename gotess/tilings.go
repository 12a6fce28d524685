package gotess

import "fmt"

// NewRegularTiling returns the descriptor of the regular {p,q} tessellation:
// one p-gon shape with q tiles around every vertex.  All edges are
// equivalent, so the cycle length is 1 and every gluing lands on edge 0.
func NewRegularTiling(p, q int) *Tiling {
	sh := Shape{
		ID:            0,
		Connections:   make([]Connection, p),
		VertexValence: make([]int, p),
		CycleLength:   1,
	}
	for i := 0; i < p; i++ {
		sh.Connections[i] = Connection{Sid: 0, Eid: 0}
		sh.VertexValence[i] = q
	}
	return &Tiling{
		Name:   fmt.Sprintf("{%d,%d}", p, q),
		Shapes: []Shape{sh},
	}
}

// NewTriheptagonal returns the two-shape 3.7.3.7 tessellation: triangles and
// heptagons alternating around every degree-4 vertex.
func NewTriheptagonal() *Tiling {
	tri := Shape{
		ID:            0,
		Connections:   make([]Connection, 3),
		VertexValence: make([]int, 3),
		CycleLength:   1,
	}
	for i := 0; i < 3; i++ {
		tri.Connections[i] = Connection{Sid: 1, Eid: 0}
		tri.VertexValence[i] = 4
	}
	hept := Shape{
		ID:            1,
		Connections:   make([]Connection, 7),
		VertexValence: make([]int, 7),
		CycleLength:   1,
	}
	for i := 0; i < 7; i++ {
		hept.Connections[i] = Connection{Sid: 0, Eid: 0}
		hept.VertexValence[i] = 4
	}
	return &Tiling{
		Name:   "3.7.3.7",
		Shapes: []Shape{tri, hept},
	}
}
