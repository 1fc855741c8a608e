// Package render binds relationship datasets to a scene surface: the keyed
// enter/update/exit join with its fade transitions, the per-tick position
// projection and node highlighting.
package render

import (
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/scene"
)

// JoinStats counts the outcome of one Apply.
type JoinStats struct {
	NodesEntered int
	NodesUpdated int
	NodesExited  int
	LinksEntered int
	LinksUpdated int
	LinksExited  int
}

type boundNode struct {
	id       scene.ID
	node     *graph.Node
	attrs    scene.Attrs // last values written, to skip no-op updates
	selected bool
}

type boundLink struct {
	id       scene.ID
	link     *graph.Link
	attrs    scene.Attrs
	selected bool
}

// Renderer keeps a surface in step with the latest dataset.
type Renderer struct {
	surface scene.Surface
	sim     Simulation
	logger  *zap.Logger
	onClick func(*graph.Node)

	current   *graph.Dataset
	nodes     map[string]*boundNode
	nodeOrder []string
	links     map[graph.LinkKey]*boundLink
	linkOrder []graph.LinkKey
}

// New returns a renderer drawing into surface and driving sim. The
// renderer registers its tick projection with sim.
func New(surface scene.Surface, sim Simulation, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{
		surface: surface,
		sim:     sim,
		logger:  logger,
		nodes:   make(map[string]*boundNode),
		links:   make(map[graph.LinkKey]*boundLink),
	}
	sim.OnTick(r.Tick)
	return r
}

// OnClick sets the handler invoked when a node element is clicked.
func (r *Renderer) OnClick(fn func(*graph.Node)) {
	r.onClick = fn
}

// Nodes returns the nodes of the dataset currently bound, with their live
// positions.
func (r *Renderer) Nodes() []*graph.Node {
	if r.current == nil {
		return nil
	}
	return r.current.Nodes
}

// Dataset returns the dataset currently bound, or nil.
func (r *Renderer) Dataset() *graph.Dataset {
	return r.current
}

// Apply joins ds against the elements already drawn and restarts the
// simulation with its nodes and links. The links of ds must be resolved.
func (r *Renderer) Apply(ds *graph.Dataset) JoinStats {
	var stats JoinStats
	r.applyNodes(ds.Nodes, &stats)
	r.applyLinks(ds.Links, &stats)
	r.current = ds

	r.logger.Debug("dataset applied",
		zap.Int("nodesEntered", stats.NodesEntered),
		zap.Int("nodesUpdated", stats.NodesUpdated),
		zap.Int("nodesExited", stats.NodesExited),
		zap.Int("linksEntered", stats.LinksEntered),
		zap.Int("linksUpdated", stats.LinksUpdated),
		zap.Int("linksExited", stats.LinksExited),
	)

	r.sim.SetNodes(ds.Nodes)
	r.sim.SetLinks(ds.Links)
	r.sim.Start()
	r.flush()
	return stats
}

func nodeKey(n *graph.Node) string        { return n.ID }
func linkKey(l *graph.Link) graph.LinkKey { return l.Key() }

func nodeStyle(n *graph.Node) scene.Attrs {
	return scene.Attrs{
		scene.AttrRadius: scene.Num(Radius(n.Value)),
		scene.AttrFill:   Fill(n.Value),
		scene.AttrLabel:  n.Name,
	}
}

func linkStyle(l *graph.Link) scene.Attrs {
	return scene.Attrs{
		scene.AttrStrokeWidth: scene.Num(StrokeWidth(l.Value)),
	}
}

func (r *Renderer) applyNodes(nodes []*graph.Node, stats *JoinStats) {
	j := scene.Diff(r.nodeOrder, nodes, nodeKey)

	for _, n := range j.Duplicate {
		r.logger.Warn("duplicate node in dataset", zap.String("id", n.ID))
	}

	for _, key := range j.Exit {
		bn := r.nodes[key]
		r.surface.Animate(bn.id, scene.Attrs{scene.AttrOpacity: "0"}, ExitDuration, true)
		delete(r.nodes, key)
		stats.NodesExited++
	}

	for _, n := range j.Update {
		bn := r.nodes[n.ID]
		bn.node = n
		if changed := diffAttrs(bn.attrs, nodeStyle(n)); len(changed) > 0 {
			r.surface.Set(bn.id, changed)
		}
		stats.NodesUpdated++
	}

	for _, n := range j.Enter {
		attrs := nodeStyle(n)
		attrs[scene.AttrTransform] = scene.Translate(n.X, n.Y)
		attrs[scene.AttrOpacity] = "0"

		bn := &boundNode{node: n, attrs: scene.Attrs{}}
		bn.id = r.surface.Create(scene.KindNode, n.ID, attrs)
		for k, v := range attrs {
			bn.attrs[k] = v
		}
		bn.attrs[scene.AttrOpacity] = "1"

		key := n.ID
		r.surface.Bind(bn.id, scene.Handlers{
			Click: func() { r.click(key) },
			Drag:  r.sim.Drag(),
		})
		r.surface.Animate(bn.id, scene.Attrs{scene.AttrOpacity: "1"}, NodeEnterDuration, false)
		r.nodes[key] = bn
		stats.NodesEntered++
	}

	r.nodeOrder = r.nodeOrder[:0]
	for _, n := range nodes {
		if bn, ok := r.nodes[n.ID]; ok && bn.node == n {
			r.nodeOrder = append(r.nodeOrder, n.ID)
		}
	}
}

func (r *Renderer) applyLinks(links []*graph.Link, stats *JoinStats) {
	j := scene.Diff(r.linkOrder, links, linkKey)

	for _, l := range j.Duplicate {
		r.logger.Warn("duplicate link in dataset", zap.Stringer("key", l.Key()))
	}

	for _, key := range j.Exit {
		bl := r.links[key]
		r.surface.Animate(bl.id, scene.Attrs{scene.AttrOpacity: "0"}, ExitDuration, true)
		delete(r.links, key)
		stats.LinksExited++
	}

	for _, l := range j.Update {
		bl := r.links[l.Key()]
		bl.link = l
		if changed := diffAttrs(bl.attrs, linkStyle(l)); len(changed) > 0 {
			r.surface.Set(bl.id, changed)
		}
		stats.LinksUpdated++
	}

	for _, l := range j.Enter {
		attrs := linkStyle(l)
		for k, v := range endpoints(l) {
			attrs[k] = v
		}
		attrs[scene.AttrOpacity] = "0"

		bl := &boundLink{link: l, attrs: scene.Attrs{}}
		bl.id = r.surface.Create(scene.KindLink, l.Key().String(), attrs)
		for k, v := range attrs {
			bl.attrs[k] = v
		}
		bl.attrs[scene.AttrOpacity] = "1"
		r.surface.Animate(bl.id, scene.Attrs{scene.AttrOpacity: "1"}, LinkEnterDuration, false)
		r.links[l.Key()] = bl
		stats.LinksEntered++
	}

	r.linkOrder = r.linkOrder[:0]
	for _, l := range links {
		if bl, ok := r.links[l.Key()]; ok && bl.link == l {
			r.linkOrder = append(r.linkOrder, l.Key())
		}
	}
}

func endpoints(l *graph.Link) scene.Attrs {
	a := scene.Attrs{}
	if l.Source != nil {
		a[scene.AttrX1] = scene.Num(l.Source.X)
		a[scene.AttrY1] = scene.Num(l.Source.Y)
	}
	if l.Target != nil {
		a[scene.AttrX2] = scene.Num(l.Target.X)
		a[scene.AttrY2] = scene.Num(l.Target.Y)
	}
	return a
}

// diffAttrs records want into have and returns the entries that changed.
func diffAttrs(have, want scene.Attrs) scene.Attrs {
	var changed scene.Attrs
	for k, v := range want {
		if have[k] == v {
			continue
		}
		if changed == nil {
			changed = scene.Attrs{}
		}
		changed[k] = v
		have[k] = v
	}
	return changed
}

// Tick projects the live node positions onto the surface: node transforms
// and link endpoints. It reads the domain data and never writes it.
func (r *Renderer) Tick() {
	for _, key := range r.linkOrder {
		bl := r.links[key]
		if changed := diffAttrs(bl.attrs, endpoints(bl.link)); len(changed) > 0 {
			r.surface.Set(bl.id, changed)
		}
	}
	for _, key := range r.nodeOrder {
		bn := r.nodes[key]
		want := scene.Attrs{scene.AttrTransform: scene.Translate(bn.node.X, bn.node.Y)}
		if changed := diffAttrs(bn.attrs, want); len(changed) > 0 {
			r.surface.Set(bn.id, changed)
		}
	}
	r.flush()
}

func (r *Renderer) click(key string) {
	bn, ok := r.nodes[key]
	if !ok || r.onClick == nil {
		return
	}
	r.onClick(bn.node)
}

// Highlight marks the node id and every link touching it as selected and
// clears the mark everywhere else. An empty id clears all marks.
func (r *Renderer) Highlight(id string) {
	for key, bn := range r.nodes {
		r.mark(bn.id, &bn.selected, key == id && id != "")
	}
	for _, bl := range r.links {
		r.mark(bl.id, &bl.selected, id != "" && bl.link.Touches(id))
	}
	r.flush()
}

// ClearHighlight removes every selection mark.
func (r *Renderer) ClearHighlight() {
	r.Highlight("")
}

// Selected returns the ids of the nodes currently marked selected.
func (r *Renderer) Selected() []string {
	var ids []string
	for key, bn := range r.nodes {
		if bn.selected {
			ids = append(ids, key)
		}
	}
	return ids
}

func (r *Renderer) mark(id scene.ID, state *bool, on bool) {
	if *state == on {
		return
	}
	*state = on
	r.surface.Class(id, scene.ClassSelected, on)
}

func (r *Renderer) flush() {
	f, ok := r.surface.(scene.Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		r.logger.Warn("surface flush failed", zap.Error(err))
	}
}
