package selection

import "time"

// PanelState is the visual state of the sidebar.
type PanelState int

const (
	Collapsed PanelState = iota
	Expanded
)

func (s PanelState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Sidebar geometry.
const (
	CollapsedWidth = 8
	ExpandedWidth  = 220
	PanelDuration  = 400 * time.Millisecond
)

// Overflow values for the sidebar content.
const (
	OverflowHidden = "hidden"
	OverflowScroll = "scroll"
)

// PanelView draws the sidebar frame.
type PanelView interface {
	// AnimatePanel animates the sidebar to width over d and sets the
	// vertical overflow of its content.
	AnimatePanel(width int, overflow string, d time.Duration)
}

// Panel is the collapsible detail sidebar. It starts collapsed.
type Panel struct {
	state PanelState
	view  PanelView
}

func NewPanel(view PanelView) *Panel {
	return &Panel{state: Collapsed, view: view}
}

func (p *Panel) State() PanelState {
	return p.state
}

func (p *Panel) Expand() {
	p.state = Expanded
	p.view.AnimatePanel(ExpandedWidth, OverflowScroll, PanelDuration)
}

func (p *Panel) Collapse() {
	p.state = Collapsed
	p.view.AnimatePanel(CollapsedWidth, OverflowHidden, PanelDuration)
}

// Toggle collapses an expanded panel and expands a collapsed one.
func (p *Panel) Toggle() {
	if p.state == Collapsed {
		p.Expand()
	} else {
		p.Collapse()
	}
}
