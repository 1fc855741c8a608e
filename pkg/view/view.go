// Package view assembles the graph view: renderer, selection, sidebar and
// the filter-driven loader, all owned by a single Loop.
package view

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/render"
	"github.com/anthonybishopric/relgraph/pkg/scene"
	"github.com/anthonybishopric/relgraph/pkg/selection"
)

// Fetcher is the data source behind a view.
type Fetcher interface {
	DatasetFetcher
	selection.DetailFetcher
}

// Options configures a View.
type Options struct {
	Surface    scene.Surface
	Simulation render.Simulation
	Content    selection.ContentView
	Panel      selection.PanelView
	Errors     ErrorReporter
	Fetcher    Fetcher
	Viewport   layout.Viewport
	Logger     *zap.Logger

	// Loop to run on; a new one is created when nil.
	Loop *Loop

	Applied func(ds *graph.Dataset, stats render.JoinStats)
}

// View is one graph view with its state. Except for SetFilter and the
// accessors of Loop, its methods must run on the loop.
type View struct {
	Loop         *Loop
	Renderer     *render.Renderer
	Selection    *selection.Controller
	Panel        *selection.Panel
	Orchestrator *Orchestrator

	mu      sync.Mutex
	filters graph.FilterSet
}

func New(opts Options) *View {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Loop == nil {
		opts.Loop = NewLoop()
	}

	v := &View{
		Loop:    opts.Loop,
		filters: graph.FilterSet{},
	}
	v.Renderer = render.New(opts.Surface, opts.Simulation, opts.Logger.Named("render"))
	v.Panel = selection.NewPanel(opts.Panel)

	var sink selection.ErrorSink
	if opts.Errors != nil {
		sink = opts.Errors
	}
	v.Selection = selection.NewController(selection.Config{
		Highlighter: v.Renderer,
		Details:     opts.Fetcher,
		Content:     opts.Content,
		Panel:       v.Panel,
		Poster:      v.Loop,
		Errors:      sink,
		Logger:      opts.Logger.Named("selection"),
	})
	v.Renderer.OnClick(v.Selection.Select)

	v.Orchestrator = NewOrchestrator(OrchestratorConfig{
		Filters:   v,
		Fetcher:   opts.Fetcher,
		Renderer:  v.Renderer,
		Selection: v.Selection,
		Viewport:  opts.Viewport,
		Poster:    v.Loop,
		Errors:    opts.Errors,
		Logger:    opts.Logger.Named("loader"),
		Applied:   opts.Applied,
	})
	return v
}

// Filters returns a copy of the current filter values.
func (v *View) Filters() graph.FilterSet {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(graph.FilterSet, len(v.filters))
	for k, val := range v.filters {
		out[k] = val
	}
	return out
}

// SetFilters replaces the filter values. Safe from any goroutine.
func (v *View) SetFilters(fs graph.FilterSet) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filters = make(graph.FilterSet, len(fs))
	for k, val := range fs {
		v.filters[k] = val
	}
}

// Pending reports whether a dataset or detail fetch is in flight.
func (v *View) Pending() bool {
	return v.Orchestrator.Pending() || v.Selection.Pending()
}

// Settle runs the loop until no fetch is in flight.
func (v *View) Settle(ctx context.Context) error {
	v.Loop.RunPending()
	for v.Pending() {
		if err := v.Loop.RunNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close cancels every fetch in flight.
func (v *View) Close() {
	v.Orchestrator.Close()
	v.Selection.Close()
}
