package render

import (
	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/scene"
)

// Simulation is the force layout engine driving node positions. The engine
// owns X, Y, PX and PY of the nodes it is given and calls the tick
// listeners after every step.
type Simulation interface {
	SetNodes(nodes []*graph.Node)
	SetLinks(links []*graph.Link)
	Start()
	OnTick(fn func())
	Drag() scene.DragHandler
}

// Static is a headless engine that never moves nodes on its own: Start
// emits a single tick and drags place the node under the pointer.
type Static struct {
	nodes []*graph.Node
	links []*graph.Link
	ticks []func()

	// Starts counts calls to Start.
	Starts int
}

var _ Simulation = (*Static)(nil)

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) SetNodes(nodes []*graph.Node) { s.nodes = nodes }
func (s *Static) SetLinks(links []*graph.Link) { s.links = links }
func (s *Static) OnTick(fn func())             { s.ticks = append(s.ticks, fn) }

func (s *Static) Nodes() []*graph.Node { return s.nodes }
func (s *Static) Links() []*graph.Link { return s.links }

func (s *Static) Start() {
	s.Starts++
	s.tick()
}

func (s *Static) Drag() scene.DragHandler {
	return staticDrag{s}
}

func (s *Static) tick() {
	for _, fn := range s.ticks {
		fn()
	}
}

type staticDrag struct{ s *Static }

func (d staticDrag) DragStart(string) {}
func (d staticDrag) DragEnd(string)   {}

func (d staticDrag) DragMove(key string, x, y float64) {
	for _, n := range d.s.nodes {
		if n.ID == key {
			n.X, n.Y, n.PX, n.PY = x, y, x, y
			d.s.tick()
			return
		}
	}
}
