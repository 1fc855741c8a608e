package view

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/render"
)

// FilterSource reports the current value of every filter control.
type FilterSource interface {
	Filters() graph.FilterSet
}

// FilterFunc adapts a function to FilterSource.
type FilterFunc func() graph.FilterSet

func (f FilterFunc) Filters() graph.FilterSet { return f() }

// DatasetFetcher loads the dataset matching a filter set.
type DatasetFetcher interface {
	Dataset(ctx context.Context, filters graph.FilterSet) (*graph.Dataset, error)
}

// ErrorReporter shows a failure to the user.
type ErrorReporter interface {
	ReportError(err error)
}

// ErrorFunc adapts a function to ErrorReporter.
type ErrorFunc func(err error)

func (f ErrorFunc) ReportError(err error) { f(err) }

// Retainer keeps or drops its selection when a new dataset is shown.
type Retainer interface {
	Retain(ds *graph.Dataset)
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Filters   FilterSource
	Fetcher   DatasetFetcher
	Renderer  *render.Renderer
	Selection Retainer
	Viewport  layout.Viewport
	Poster    interface{ Post(func()) }
	Errors    ErrorReporter
	Logger    *zap.Logger

	// Applied, when set, is called after each dataset is drawn.
	Applied func(ds *graph.Dataset, stats render.JoinStats)
}

// Orchestrator loads datasets for the current filters and hands them to
// the renderer. Only the most recent load is ever applied.
type Orchestrator struct {
	cfg OrchestratorConfig

	token  uint64
	cancel context.CancelFunc
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg}
}

// Pending reports whether a load is in flight.
func (o *Orchestrator) Pending() bool {
	return o.cancel != nil
}

// LoadFiltered fetches the dataset for the current filters. A load still
// in flight is cancelled. Must be called on the loop.
func (o *Orchestrator) LoadFiltered(ctx context.Context) {
	filters := o.cfg.Filters.Filters()

	o.abort()
	o.token++
	token := o.token
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.cfg.Logger.Debug("loading dataset", zap.String("query", filters.Query()), zap.Uint64("token", token))
	go func() {
		ds, err := o.cfg.Fetcher.Dataset(ctx, filters)
		o.cfg.Poster.Post(func() {
			o.finish(ctx, token, ds, err)
		})
	}()
}

func (o *Orchestrator) finish(ctx context.Context, token uint64, ds *graph.Dataset, err error) {
	if token != o.token {
		o.cfg.Logger.Debug("dropping stale dataset", zap.Uint64("token", token), zap.Uint64("current", o.token))
		return
	}
	cancelled := ctx.Err() != nil
	o.abort()

	if err != nil {
		if cancelled && errors.Is(err, context.Canceled) {
			return
		}
		o.cfg.Logger.Warn("dataset load failed", zap.Error(err))
		o.report(fmt.Errorf("load graph data: %w", err))
		return
	}
	if err := ds.Resolve(); err != nil {
		o.cfg.Logger.Warn("rejecting dataset", zap.Error(err))
		o.report(fmt.Errorf("load graph data: %w", err))
		return
	}

	layout.Reconcile(ds.Nodes, o.cfg.Renderer.Nodes(), o.cfg.Viewport)
	stats := o.cfg.Renderer.Apply(ds)
	if o.cfg.Selection != nil {
		o.cfg.Selection.Retain(ds)
	}

	o.cfg.Logger.Info("dataset applied",
		zap.Int("nodes", len(ds.Nodes)),
		zap.Int("links", len(ds.Links)),
		zap.Int("entered", stats.NodesEntered),
		zap.Int("exited", stats.NodesExited),
	)
	if o.cfg.Applied != nil {
		o.cfg.Applied(ds, stats)
	}
}

// Close cancels any load in flight.
func (o *Orchestrator) Close() {
	o.abort()
}

func (o *Orchestrator) abort() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) report(err error) {
	if o.cfg.Errors != nil {
		o.cfg.Errors.ReportError(err)
	}
}
