package layout

import (
	"math"
	"testing"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
)

var vp = Viewport{Width: 800, Height: 600}

func TestReconcileFirstLoadSpiral(t *testing.T) {
	nodes := []*graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	Reconcile(nodes, nil, vp)

	// index 0 sits on the center
	assert.Equal(t, 400.0, nodes[0].X)
	assert.Equal(t, 300.0, nodes[0].Y)

	// index 2: radius 2*(300/3), angle 2*0.618
	wantX := 400 + 200*math.Cos(1.236)
	wantY := 300 + 200*math.Sin(1.236)
	assert.InDelta(t, wantX, nodes[2].X, 1e-9)
	assert.InDelta(t, wantY, nodes[2].Y, 1e-9)

	for _, n := range nodes {
		assert.Equal(t, n.X, n.PX, "node %s should start at rest", n.ID)
		assert.Equal(t, n.Y, n.PY, "node %s should start at rest", n.ID)
	}
}

func TestReconcileCarriesPositionsByIdentity(t *testing.T) {
	outgoing := []*graph.Node{
		{ID: "A", X: 10, Y: 20, PX: 11, PY: 21},
		{ID: "B", X: 30, Y: 40, PX: 29, PY: 41},
	}
	incoming := []*graph.Node{{ID: "C"}, {ID: "A"}}
	Reconcile(incoming, outgoing, vp)

	a := incoming[1]
	assert.Equal(t, [4]float64{10, 20, 11, 21}, [4]float64{a.X, a.Y, a.PX, a.PY})

	// C is new at index 0 and lands on the center
	assert.Equal(t, 400.0, incoming[0].X)
	assert.Equal(t, 300.0, incoming[0].Y)
}

func TestReconcileDoesNotTouchOutgoing(t *testing.T) {
	outgoing := []*graph.Node{{ID: "A", X: 1, Y: 2, PX: 3, PY: 4}}
	Reconcile([]*graph.Node{{ID: "A"}}, outgoing, vp)
	assert.Equal(t, graph.Node{ID: "A", X: 1, Y: 2, PX: 3, PY: 4}, *outgoing[0])
}

func TestPlacementIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		x1, y1 := Place(i, 7.5, vp)
		x2, y2 := Place(i, 7.5, vp)
		assert.Equal(t, x1, x2)
		assert.Equal(t, y1, y2)
	}
}

func TestPlacementDoesNotOverlap(t *testing.T) {
	nodes := make([]*graph.Node, 40)
	for i := range nodes {
		nodes[i] = &graph.Node{ID: string(rune('a' + i))}
	}
	Reconcile(nodes, nil, vp)

	seen := make(map[[2]float64]bool)
	for _, n := range nodes {
		p := [2]float64{math.Round(n.X*1e6) / 1e6, math.Round(n.Y*1e6) / 1e6}
		assert.False(t, seen[p], "node %s overlaps another", n.ID)
		seen[p] = true
	}
}

func TestReconcileEmpty(t *testing.T) {
	Reconcile(nil, []*graph.Node{{ID: "A"}}, vp)
}
