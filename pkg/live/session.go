// Package live drives a graph view in a browser over a websocket. The
// server runs the view engine; the browser applies scene operations and
// runs the force simulation, reporting node positions back.
package live

import (
	"context"
	"encoding/json"
	"html/template"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/render"
	"github.com/anthonybishopric/relgraph/pkg/scene"
	"github.com/anthonybishopric/relgraph/pkg/view"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024

	// Send buffer size
	sendBufferSize = 256
)

var (
	_ scene.Surface     = (*Session)(nil)
	_ scene.Flusher     = (*Session)(nil)
	_ render.Simulation = (*Session)(nil)
)

type element struct {
	kind scene.Kind
	key  string
}

type clickRef struct {
	id scene.ID
	fn func()
}

// Session is one browser connection and the view it drives. The scene and
// simulation methods run on the session loop.
type Session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
	view   *view.View

	// overflow is closed once a message could not be queued. The browser
	// has lost part of a stateful stream, so the session must end.
	overflow     chan struct{}
	overflowOnce sync.Once

	nextID   scene.ID
	ops      []Op
	elements map[scene.ID]element
	clicks   map[string]clickRef

	nodes []*graph.Node
	links []*graph.Link
	index map[string]*graph.Node
	ticks []func()
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Fetcher  view.Fetcher
	Viewport layout.Viewport
	Logger   *zap.Logger
}

// NewSession returns a session writing to conn. A nil conn gives a
// session whose output is only readable from Outbox, for tests.
func NewSession(conn *websocket.Conn, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	id := uuid.New().String()
	s := &Session{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		overflow: make(chan struct{}),
		logger:   opts.Logger.With(zap.String("session", id)),
		elements: map[scene.ID]element{},
		clicks:   map[string]clickRef{},
		index:    map[string]*graph.Node{},
	}
	s.view = view.New(view.Options{
		Surface:    s,
		Simulation: s,
		Content:    contentView{s},
		Panel:      panelView{s},
		Errors:     view.ErrorFunc(s.ReportError),
		Fetcher:    opts.Fetcher,
		Viewport:   opts.Viewport,
		Logger:     s.logger,
	})
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// View returns the view driven by the session.
func (s *Session) View() *view.View { return s.view }

// Outbox is the queue of encoded messages waiting to be written.
func (s *Session) Outbox() <-chan []byte { return s.send }

// Overflowed is closed when the send buffer overflowed and the session
// stopped sending.
func (s *Session) Overflowed() <-chan struct{} { return s.overflow }

// Run serves the connection until it closes, ctx is done or the send
// buffer overflows.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.overflow:
			cancel()
		case <-ctx.Done():
		}
	}()
	go s.writePump(ctx)
	go func() { _ = s.view.Loop.Run(ctx) }()

	s.logger.Info("live session started")
	s.readPump(ctx)

	closed := make(chan struct{})
	s.view.Loop.Post(func() {
		s.view.Close()
		close(closed)
	})
	select {
	case <-closed:
	case <-time.After(writeWait):
	}
	s.logger.Info("live session stopped")
}

func (s *Session) readPump(ctx context.Context) {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("websocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			s.logger.Warn("binary messages not supported")
			continue
		}
		in, err := DecodeInbound(message)
		if err != nil {
			s.logger.Warn("bad message", zap.Error(err))
			continue
		}
		s.Handle(ctx, in)
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, s.closeMessage())
			return

		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Error("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Error("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// Handle hands a browser message to the session loop.
func (s *Session) Handle(ctx context.Context, in *Inbound) {
	switch in.Type {
	case TypeFilter:
		s.view.SetFilters(graph.FilterSet(in.Filters))
		s.view.Loop.Post(func() { s.view.Orchestrator.LoadFiltered(ctx) })
	case TypeClick:
		key := in.Key
		s.view.Loop.Post(func() { s.click(key) })
	case TypeTick:
		positions := in.Positions
		s.view.Loop.Post(func() { s.tick(positions) })
	case TypeToggle:
		s.view.Loop.Post(s.view.Panel.Toggle)
	}
}

func (s *Session) click(key string) {
	ref, ok := s.clicks[key]
	if !ok {
		s.logger.Debug("click on unknown node", zap.String("key", key))
		return
	}
	ref.fn()
}

func (s *Session) tick(positions []Position) {
	for _, p := range positions {
		n, ok := s.index[p.ID]
		if !ok {
			continue
		}
		n.X, n.Y, n.PX, n.PY = p.X, p.Y, p.PX, p.PY
	}
	for _, fn := range s.ticks {
		fn()
	}
}

func (s *Session) emit(out *Outbound) {
	b, err := json.Marshal(out)
	if err != nil {
		s.logger.Error("encode message", zap.String("type", out.Type), zap.Error(err))
		return
	}
	select {
	case <-s.overflow:
		return
	default:
	}
	select {
	case s.send <- b:
	default:
		s.logger.Warn("send buffer full, closing session", zap.String("type", out.Type))
		s.overflowOnce.Do(func() { close(s.overflow) })
	}
}

// closeMessage asks the browser to reconnect when the session ended on
// overflow.
func (s *Session) closeMessage() []byte {
	select {
	case <-s.overflow:
		return websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "send buffer full")
	default:
		return []byte{}
	}
}

// Create implements scene.Surface.
func (s *Session) Create(kind scene.Kind, key string, attrs scene.Attrs) scene.ID {
	s.nextID++
	id := s.nextID
	s.elements[id] = element{kind: kind, key: key}
	s.ops = append(s.ops, Op{Op: OpCreate, ID: id, Kind: kind.String(), Key: key, Attrs: copyAttrs(attrs)})
	return id
}

// Set implements scene.Surface.
func (s *Session) Set(id scene.ID, attrs scene.Attrs) {
	if _, ok := s.elements[id]; !ok {
		return
	}
	s.ops = append(s.ops, Op{Op: OpSet, ID: id, Attrs: copyAttrs(attrs)})
}

// Animate implements scene.Surface.
func (s *Session) Animate(id scene.ID, to scene.Attrs, d time.Duration, remove bool) {
	el, ok := s.elements[id]
	if !ok {
		return
	}
	s.ops = append(s.ops, Op{Op: OpAnimate, ID: id, Attrs: copyAttrs(to), Duration: millis(d), Remove: remove})
	if remove {
		delete(s.elements, id)
		if ref, ok := s.clicks[el.key]; ok && ref.id == id {
			delete(s.clicks, el.key)
		}
	}
}

// Class implements scene.Surface.
func (s *Session) Class(id scene.ID, class string, on bool) {
	if _, ok := s.elements[id]; !ok {
		return
	}
	s.ops = append(s.ops, Op{Op: OpClass, ID: id, Class: class, On: on})
}

// Bind implements scene.Surface. Clicks arrive as click messages naming
// the node key; drags are handled by the browser simulation.
func (s *Session) Bind(id scene.ID, h scene.Handlers) {
	el, ok := s.elements[id]
	if !ok {
		return
	}
	if h.Click != nil && el.kind == scene.KindNode {
		s.clicks[el.key] = clickRef{id: id, fn: h.Click}
	}
	s.ops = append(s.ops, Op{Op: OpBind, ID: id, Click: h.Click != nil, Drag: h.Drag != nil})
}

// Flush sends the buffered scene operations.
func (s *Session) Flush() error {
	if len(s.ops) == 0 {
		return nil
	}
	ops := s.ops
	s.ops = nil
	s.emit(&Outbound{Type: TypeOps, Ops: ops})
	return nil
}

// SetNodes implements render.Simulation.
func (s *Session) SetNodes(nodes []*graph.Node) {
	s.nodes = nodes
	s.index = make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		s.index[n.ID] = n
	}
}

// SetLinks implements render.Simulation.
func (s *Session) SetLinks(links []*graph.Link) {
	s.links = links
}

// Start sends the simulation data and restarts the browser simulation.
// Pending scene operations go first so the elements exist.
func (s *Session) Start() {
	_ = s.Flush()
	s.emit(simMessage(s.nodes, s.links))
	s.emit(&Outbound{Type: TypeStart})
}

// OnTick implements render.Simulation.
func (s *Session) OnTick(fn func()) {
	s.ticks = append(s.ticks, fn)
}

// Drag implements render.Simulation.
func (s *Session) Drag() scene.DragHandler {
	return browserDrag{}
}

// browserDrag is bound to nodes so the browser attaches its own drag
// behaviour; moves come back as tick positions.
type browserDrag struct{}

func (browserDrag) DragStart(string)                {}
func (browserDrag) DragMove(string, float64, float64) {}
func (browserDrag) DragEnd(string)                  {}

// ReportError shows err in the browser.
func (s *Session) ReportError(err error) {
	s.emit(&Outbound{Type: TypeError, Message: err.Error()})
}

type contentView struct{ s *Session }

func (c contentView) SetContent(html template.HTML) {
	c.s.emit(&Outbound{Type: TypeSidebar, HTML: string(html)})
}

type panelView struct{ s *Session }

func (p panelView) AnimatePanel(width int, overflow string, d time.Duration) {
	p.s.emit(&Outbound{Type: TypePanel, Width: width, Overflow: overflow, Duration: millis(d)})
}

func copyAttrs(a scene.Attrs) scene.Attrs {
	out := make(scene.Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
