// Package scene is the retained drawing surface the graph view renders
// into: keyed node and link elements with attributes, CSS classes,
// timed transitions and input handlers.
package scene

import (
	"strconv"
	"time"
)

// Kind tells which layer an element lives in.
type Kind int

const (
	KindNode Kind = iota // marker + label group, drawn above links
	KindLink             // line between two nodes
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindLink:
		return "link"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Attribute names understood by every surface.
const (
	AttrOpacity     = "opacity"
	AttrTransform   = "transform"
	AttrRadius      = "r"
	AttrFill        = "fill"
	AttrLabel       = "label"
	AttrStrokeWidth = "stroke-width"
	AttrX1          = "x1"
	AttrY1          = "y1"
	AttrX2          = "x2"
	AttrY2          = "y2"
)

// ClassSelected marks the selected node and its incident links.
const ClassSelected = "selected"

// ID identifies an element on a surface. IDs are never reused, so an
// element that is fading out and a new element with the same key are
// distinct.
type ID uint64

// Attrs maps attribute names to their values.
type Attrs map[string]string

// Num formats a number for an attribute value.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Translate formats a translate transform.
func Translate(x, y float64) string {
	return "translate(" + Num(x) + "," + Num(y) + ")"
}

// DragHandler receives pointer drags of a node. Drags are owned by the
// simulation engine.
type DragHandler interface {
	DragStart(key string)
	DragMove(key string, x, y float64)
	DragEnd(key string)
}

// Handlers are the input behaviours attached to an element.
type Handlers struct {
	Click func()
	Drag  DragHandler
}

// Surface is a keyed scene graph. Implementations need not be safe for
// concurrent use; the view engine calls them from a single goroutine.
type Surface interface {
	// Create adds an element with initial attributes and returns its id.
	Create(kind Kind, key string, attrs Attrs) ID
	// Set changes attributes immediately.
	Set(id ID, attrs Attrs)
	// Animate transitions attributes to the given values over d,
	// interrupting any transition already running on the element. When
	// remove is set the element is deleted once the transition ends.
	Animate(id ID, to Attrs, d time.Duration, remove bool)
	// Class adds or removes a CSS class.
	Class(id ID, class string, on bool)
	// Bind attaches input handlers.
	Bind(id ID, h Handlers)
}

// Flusher is implemented by surfaces that buffer operations.
type Flusher interface {
	Flush() error
}
