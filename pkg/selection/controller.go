// Package selection implements node selection: the single selected node,
// its highlight, the sequenced detail lookup and the sidebar that shows it.
package selection

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

// State is the selection state.
type State int

const (
	Unselected State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "unselected"
}

// Highlighter marks the selected node and its incident links.
type Highlighter interface {
	Highlight(id string)
	ClearHighlight()
}

// DetailFetcher looks up the stories an actor appears in.
type DetailFetcher interface {
	Details(ctx context.Context, participant string) ([]graph.DetailRecord, error)
}

// ContentView shows the sidebar content.
type ContentView interface {
	SetContent(html template.HTML)
}

// Poster runs a function on the goroutine that owns the view state.
type Poster interface {
	Post(fn func())
}

// ErrorSink reports failures to the user.
type ErrorSink interface {
	ReportError(err error)
}

// Config wires a Controller to its collaborators.
type Config struct {
	Highlighter Highlighter
	Details     DetailFetcher
	Content     ContentView
	Panel       *Panel
	Poster      Poster
	Errors      ErrorSink
	Logger      *zap.Logger
}

// Controller is the selection state machine. All methods must be called
// on the goroutine behind Poster.
type Controller struct {
	cfg Config

	state    State
	selected string

	token  uint64
	cancel context.CancelFunc
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{cfg: cfg}
}

// State returns the current state and the selected node id.
func (c *Controller) State() (State, string) {
	return c.state, c.selected
}

// Pending reports whether a detail lookup is in flight.
func (c *Controller) Pending() bool {
	return c.cancel != nil
}

// Select makes n the selected node, highlights it with its links and
// starts the detail lookup. A lookup still running for an earlier
// selection is cancelled and its result dropped.
func (c *Controller) Select(n *graph.Node) {
	c.cfg.Highlighter.Highlight(n.ID)
	c.state = Selected
	c.selected = n.ID

	c.abort()
	c.token++
	token := c.token
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	node := *n
	go func() {
		records, err := c.cfg.Details.Details(ctx, node.ID)
		c.cfg.Poster.Post(func() {
			c.finish(ctx, token, &node, records, err)
		})
	}()
}

func (c *Controller) finish(ctx context.Context, token uint64, n *graph.Node, records []graph.DetailRecord, err error) {
	if token != c.token {
		c.cfg.Logger.Debug("dropping stale detail response", zap.String("participant", n.ID))
		return
	}
	cancelled := ctx.Err() != nil
	c.abort()

	if err != nil {
		if cancelled && errors.Is(err, context.Canceled) {
			return
		}
		c.cfg.Logger.Warn("detail lookup failed", zap.String("participant", n.ID), zap.Error(err))
		c.report(fmt.Errorf("load stories for %s: %w", n.Name, err))
		return
	}

	html, err := RenderDetail(n, records)
	if err != nil {
		c.report(fmt.Errorf("render stories for %s: %w", n.Name, err))
		return
	}
	c.cfg.Content.SetContent(html)
	c.cfg.Panel.Expand()
}

// Retain keeps the selection if its node is part of ds and clears it
// otherwise. A kept selection is re-highlighted so links new to ds are
// marked too.
func (c *Controller) Retain(ds *graph.Dataset) {
	if c.state != Selected {
		return
	}
	if ds.Has(c.selected) {
		c.cfg.Highlighter.Highlight(c.selected)
		return
	}
	c.cfg.Logger.Debug("selected node left the dataset", zap.String("id", c.selected))
	c.Clear()
}

// Clear returns to the unselected state.
func (c *Controller) Clear() {
	c.abort()
	c.token++
	c.state = Unselected
	c.selected = ""
	c.cfg.Highlighter.ClearHighlight()
}

// Close cancels any running lookup.
func (c *Controller) Close() {
	c.abort()
}

func (c *Controller) abort() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) report(err error) {
	if c.cfg.Errors != nil {
		c.cfg.Errors.ReportError(err)
	}
}
