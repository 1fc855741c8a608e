package selection

import (
	"context"
	"errors"
	"html/template"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

type queue struct {
	ch chan func()
}

func newQueue() *queue { return &queue{ch: make(chan func(), 16)} }

func (q *queue) Post(fn func()) { q.ch <- fn }

// next runs the next posted continuation.
func (q *queue) next(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no continuation posted")
	}
}

type highlighter struct {
	selected string
	calls    int
}

func (h *highlighter) Highlight(id string) { h.selected = id; h.calls++ }
func (h *highlighter) ClearHighlight()     { h.selected = "" }

type content struct {
	html []template.HTML
}

func (c *content) SetContent(html template.HTML) { c.html = append(c.html, html) }

type panelView struct {
	widths []int
}

func (p *panelView) AnimatePanel(width int, overflow string, d time.Duration) {
	p.widths = append(p.widths, width)
}

type errorSink struct {
	errs []error
}

func (e *errorSink) ReportError(err error) { e.errs = append(e.errs, err) }

// fetcher answers each participant from a gate the test releases.
type fetcher struct {
	mu    sync.Mutex
	gates map[string]chan result
}

type result struct {
	records []graph.DetailRecord
	err     error
}

func newFetcher() *fetcher { return &fetcher{gates: map[string]chan result{}} }

func (f *fetcher) gate(id string) chan result {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[id]
	if !ok {
		ch = make(chan result, 1)
		f.gates[id] = ch
	}
	return ch
}

func (f *fetcher) Details(ctx context.Context, participant string) ([]graph.DetailRecord, error) {
	select {
	case r := <-f.gate(participant):
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fixture struct {
	q     *queue
	hl    *highlighter
	body  *content
	view  *panelView
	panel *Panel
	errs  *errorSink
	fetch *fetcher
	c     *Controller
}

func newFixture() *fixture {
	f := &fixture{
		q:     newQueue(),
		hl:    &highlighter{},
		body:  &content{},
		view:  &panelView{},
		errs:  &errorSink{},
		fetch: newFetcher(),
	}
	f.panel = NewPanel(f.view)
	f.c = NewController(Config{
		Highlighter: f.hl,
		Details:     f.fetch,
		Content:     f.body,
		Panel:       f.panel,
		Poster:      f.q,
		Errors:      f.errs,
	})
	return f
}

func TestSelectShowsDetails(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	f.c.Select(&graph.Node{ID: "1", Name: "Alice", Value: 3})
	state, id := f.c.State()
	assert.Equal(t, Selected, state)
	assert.Equal(t, "1", id)
	assert.Equal(t, "1", f.hl.selected)

	f.fetch.gate("1") <- result{records: []graph.DetailRecord{}}
	f.q.next(t)

	require.Len(t, f.body.html, 1)
	html := string(f.body.html[0])
	assert.Contains(t, html, "<em>Alice</em>")
	assert.Contains(t, html, "3 times in the following 0 stories:")
	assert.Equal(t, Expanded, f.panel.State())
	assert.Equal(t, []int{ExpandedWidth}, f.view.widths)
	assert.Empty(t, f.errs.errs)
}

func TestSelectListsStories(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	f.c.Select(&graph.Node{ID: "7", Name: "Bob", Value: 1})
	f.fetch.gate("7") <- result{records: []graph.DetailRecord{
		{Name: "Harbor fire", URL: "http://example.com/fire", Appearances: 2},
		{Name: "Council vote", URL: "/stories/4", Appearances: 1},
	}}
	f.q.next(t)

	require.Len(t, f.body.html, 1)
	html := string(f.body.html[0])
	assert.Contains(t, html, "1 time in the following 2 stories:")
	assert.Contains(t, html, `<a href="http://example.com/fire">Harbor fire</a>`)
	assert.Contains(t, html, "(2 matches)")
	assert.Contains(t, html, "(1 match)")
	assert.Contains(t, html, `href="/stories/4"`)
}

func TestSecondSelectionWins(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	f.c.Select(&graph.Node{ID: "1", Name: "Alice", Value: 3})
	f.c.Select(&graph.Node{ID: "2", Name: "Carol", Value: 2})
	assert.Equal(t, "2", f.hl.selected)

	// The first lookup is cancelled and its continuation is dropped.
	f.q.next(t)
	assert.Empty(t, f.body.html)
	assert.Empty(t, f.errs.errs)

	f.fetch.gate("2") <- result{records: []graph.DetailRecord{}}
	f.q.next(t)
	require.Len(t, f.body.html, 1)
	assert.Contains(t, string(f.body.html[0]), "<em>Carol</em>")
}

func TestStaleResponseDropped(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	f.fetch.gate("1") <- result{records: []graph.DetailRecord{}}
	f.c.Select(&graph.Node{ID: "1", Name: "Alice", Value: 3})
	// Wait for the first answer to be posted before selecting again.
	fn := <-f.q.ch

	f.c.Select(&graph.Node{ID: "2", Name: "Carol", Value: 2})
	fn()
	assert.Empty(t, f.body.html)
	assert.Equal(t, Collapsed, f.panel.State())
}

func TestLookupErrorReported(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	boom := errors.New("boom")
	f.c.Select(&graph.Node{ID: "1", Name: "Alice", Value: 3})
	f.fetch.gate("1") <- result{err: boom}
	f.q.next(t)

	require.Len(t, f.errs.errs, 1)
	assert.ErrorIs(t, f.errs.errs[0], boom)
	assert.Empty(t, f.body.html)
	assert.Equal(t, Collapsed, f.panel.State())
}

func TestRetain(t *testing.T) {
	f := newFixture()
	defer f.c.Close()

	ds := &graph.Dataset{Nodes: []*graph.Node{{ID: "1"}, {ID: "2"}}}
	require.NoError(t, ds.Resolve())

	f.c.Retain(ds)
	state, _ := f.c.State()
	assert.Equal(t, Unselected, state)

	f.c.Select(&graph.Node{ID: "1", Name: "Alice", Value: 3})
	calls := f.hl.calls
	f.c.Retain(ds)
	state, id := f.c.State()
	assert.Equal(t, Selected, state)
	assert.Equal(t, "1", id)
	assert.Equal(t, calls+1, f.hl.calls)

	gone := &graph.Dataset{Nodes: []*graph.Node{{ID: "2"}}}
	require.NoError(t, gone.Resolve())
	f.c.Retain(gone)
	state, id = f.c.State()
	assert.Equal(t, Unselected, state)
	assert.Empty(t, id)
	assert.Empty(t, f.hl.selected)

	// The in-flight lookup was cancelled; its continuation changes nothing.
	f.q.next(t)
	assert.Empty(t, f.body.html)
	assert.Empty(t, f.errs.errs)
}

func TestPanelToggle(t *testing.T) {
	v := &panelView{}
	p := NewPanel(v)
	assert.Equal(t, Collapsed, p.State())

	p.Toggle()
	assert.Equal(t, Expanded, p.State())
	p.Toggle()
	assert.Equal(t, Collapsed, p.State())
	assert.Equal(t, []int{ExpandedWidth, CollapsedWidth}, v.widths)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "time", Plural(1, "time", "times"))
	assert.Equal(t, "times", Plural(0, "time", "times"))
	assert.Equal(t, "times", Plural(2, "time", "times"))
}

func TestRenderDetailEscapes(t *testing.T) {
	html, err := RenderDetail(&graph.Node{Name: "<script>x</script>", Value: 2}, []graph.DetailRecord{
		{Name: "a", URL: "javascript:alert(1)", Appearances: 1},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
	assert.NotContains(t, string(html), "javascript:")
}

func TestRenderDetailSingular(t *testing.T) {
	html, err := RenderDetail(&graph.Node{Name: "sheriff", Value: 1}, []graph.DetailRecord{
		{Name: "Lynching of Sam Hose", URL: "/lynchings/1/", Appearances: 1},
	})
	require.NoError(t, err)
	assert.Contains(t, string(html), "appears as an actor description 1 time in the following 1 story:")
	assert.Contains(t, string(html), `<span class="match_count">(1 match)</span>`)
}
