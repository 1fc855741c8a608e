package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/scene"
)

// Message types sent by the browser.
const (
	TypeFilter = "filter"
	TypeClick  = "click"
	TypeTick   = "tick"
	TypeToggle = "toggle"
)

// Message types sent to the browser.
const (
	TypeOps     = "ops"
	TypeSim     = "sim"
	TypeStart   = "start"
	TypeSidebar = "sidebar"
	TypePanel   = "panel"
	TypeError   = "error"
)

// Surface operations.
const (
	OpCreate  = "create"
	OpSet     = "set"
	OpAnimate = "animate"
	OpClass   = "class"
	OpBind    = "bind"
)

// Op is one retained-scene operation for the browser to apply.
type Op struct {
	Op       string      `json:"op"`
	ID       scene.ID    `json:"id"`
	Kind     string      `json:"kind,omitempty"`
	Key      string      `json:"key,omitempty"`
	Attrs    scene.Attrs `json:"attrs,omitempty"`
	Duration int64       `json:"duration,omitempty"` // milliseconds
	Remove   bool        `json:"remove,omitempty"`
	Class    string      `json:"class,omitempty"`
	On       bool        `json:"on,omitempty"`
	Click    bool        `json:"click,omitempty"`
	Drag     bool        `json:"drag,omitempty"`
}

// Position is a node position reported by the browser simulation.
type Position struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	PX float64 `json:"px"`
	PY float64 `json:"py"`
}

type simLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// Inbound is a message from the browser.
type Inbound struct {
	Type      string            `json:"type"`
	Filters   map[string]string `json:"filters,omitempty"`
	Key       string            `json:"key,omitempty"`
	Positions []Position        `json:"positions,omitempty"`
}

// Outbound is a message to the browser.
type Outbound struct {
	Type     string     `json:"type"`
	Ops      []Op       `json:"ops,omitempty"`
	Nodes    []Position `json:"nodes,omitempty"`
	Links    []simLink  `json:"links,omitempty"`
	HTML     string     `json:"html,omitempty"`
	Width    int        `json:"width,omitempty"`
	Overflow string     `json:"overflow,omitempty"`
	Duration int64      `json:"duration,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// DecodeInbound parses a browser message.
func DecodeInbound(b []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch in.Type {
	case TypeFilter, TypeClick, TypeTick, TypeToggle:
		return &in, nil
	}
	return nil, fmt.Errorf("decode message: unknown type %q", in.Type)
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func positionOf(n *graph.Node) Position {
	return Position{ID: n.ID, X: n.X, Y: n.Y, PX: n.PX, PY: n.PY}
}

func simMessage(nodes []*graph.Node, links []*graph.Link) *Outbound {
	out := &Outbound{Type: TypeSim}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, positionOf(n))
	}
	for _, l := range links {
		out.Links = append(out.Links, simLink{Source: l.SourceID, Target: l.TargetID, Value: l.Value})
	}
	return out
}
