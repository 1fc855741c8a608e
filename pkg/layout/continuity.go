// Package layout carries node positions across dataset generations.
package layout

import (
	"math"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

// GoldenAngle is the spiral step between consecutive new nodes (phi-1
// radians). Its irrationality keeps the spiral from repeating.
const GoldenAngle = 0.618

// Viewport is the size of the drawing area.
type Viewport struct {
	Width  float64
	Height float64
}

// Center returns the middle of the viewport.
func (v Viewport) Center() (x, y float64) {
	return v.Width / 2, v.Height / 2
}

// Reconcile positions the incoming nodes. A node whose id is present in
// outgoing keeps that node's position and previous position verbatim; any
// other node is placed on a golden-angle spiral around the viewport center
// by its index in incoming, with zero initial velocity.
func Reconcile(incoming, outgoing []*graph.Node, vp Viewport) {
	previous := make(map[string]*graph.Node, len(outgoing))
	for _, n := range outgoing {
		previous[n.ID] = n
	}

	if len(incoming) == 0 {
		return
	}
	deltaRadius := vp.Height / 2 / float64(len(incoming))

	for i, n := range incoming {
		if old, ok := previous[n.ID]; ok {
			n.X, n.Y = old.X, old.Y
			n.PX, n.PY = old.PX, old.PY
			continue
		}
		n.X, n.Y = Place(i, deltaRadius, vp)
		n.PX, n.PY = n.X, n.Y
	}
}

// Place returns the spiral position of the i-th node.
func Place(i int, deltaRadius float64, vp Viewport) (x, y float64) {
	cx, cy := vp.Center()
	angle := GoldenAngle * float64(i)
	radius := float64(i) * deltaRadius
	return cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)
}
