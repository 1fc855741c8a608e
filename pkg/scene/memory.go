package scene

import (
	"sort"
	"time"
)

// Element is an element held by a Memory surface.
type Element struct {
	ID       ID
	Kind     Kind
	Key      string
	Attrs    Attrs
	Classes  map[string]bool
	Handlers Handlers

	pending *Animation
}

// HasClass reports whether the class is set on the element.
func (e *Element) HasClass(class string) bool {
	return e.Classes[class]
}

// Animating reports whether a transition is still running.
func (e *Element) Animating() bool {
	return e.pending != nil
}

// Animation records one Animate call.
type Animation struct {
	ID       ID
	Kind     Kind
	Key      string
	To       Attrs
	Duration time.Duration
	Remove   bool

	end time.Duration
}

// Memory is an in-process Surface. Transitions complete when the clock is
// advanced past their duration.
type Memory struct {
	now      time.Duration
	next     ID
	elements map[ID]*Element

	// Animations lists every transition started, in call order.
	Animations []Animation
}

var _ Surface = (*Memory)(nil)

// NewMemory returns an empty surface.
func NewMemory() *Memory {
	return &Memory{elements: make(map[ID]*Element)}
}

func (m *Memory) Create(kind Kind, key string, attrs Attrs) ID {
	m.next++
	e := &Element{
		ID:      m.next,
		Kind:    kind,
		Key:     key,
		Attrs:   Attrs{},
		Classes: make(map[string]bool),
	}
	for k, v := range attrs {
		e.Attrs[k] = v
	}
	m.elements[e.ID] = e
	return e.ID
}

func (m *Memory) Set(id ID, attrs Attrs) {
	e, ok := m.elements[id]
	if !ok {
		return
	}
	for k, v := range attrs {
		e.Attrs[k] = v
	}
}

func (m *Memory) Animate(id ID, to Attrs, d time.Duration, remove bool) {
	e, ok := m.elements[id]
	if !ok {
		return
	}
	a := Animation{
		ID:       id,
		Kind:     e.Kind,
		Key:      e.Key,
		To:       to,
		Duration: d,
		Remove:   remove,
		end:      m.now + d,
	}
	m.Animations = append(m.Animations, a)
	e.pending = &a
}

func (m *Memory) Class(id ID, class string, on bool) {
	e, ok := m.elements[id]
	if !ok {
		return
	}
	if on {
		e.Classes[class] = true
	} else {
		delete(e.Classes, class)
	}
}

func (m *Memory) Bind(id ID, h Handlers) {
	if e, ok := m.elements[id]; ok {
		e.Handlers = h
	}
}

// Advance moves the clock forward and completes every transition that has
// run its course.
func (m *Memory) Advance(d time.Duration) {
	m.now += d
	for id, e := range m.elements {
		a := e.pending
		if a == nil || a.end > m.now {
			continue
		}
		for k, v := range a.To {
			e.Attrs[k] = v
		}
		e.pending = nil
		if a.Remove {
			delete(m.elements, id)
		}
	}
}

// Settle completes all running transitions.
func (m *Memory) Settle() {
	var longest time.Duration
	for _, e := range m.elements {
		if e.pending != nil && e.pending.end-m.now > longest {
			longest = e.pending.end - m.now
		}
	}
	m.Advance(longest)
}

// Element returns the element with the given id.
func (m *Memory) Element(id ID) (*Element, bool) {
	e, ok := m.elements[id]
	return e, ok
}

// Find returns the newest element of a kind bound to key.
func (m *Memory) Find(kind Kind, key string) (*Element, bool) {
	var found *Element
	for _, e := range m.elements {
		if e.Kind == kind && e.Key == key && (found == nil || e.ID > found.ID) {
			found = e
		}
	}
	return found, found != nil
}

// Elements returns the elements of a kind in creation order.
func (m *Memory) Elements(kind Kind) []*Element {
	var out []*Element
	for _, e := range m.elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Keys returns the distinct keys of a kind present on the surface.
func (m *Memory) Keys(kind Kind) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, e := range m.Elements(kind) {
		if !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Click invokes the click handler of the newest element bound to key.
func (m *Memory) Click(kind Kind, key string) bool {
	e, ok := m.Find(kind, key)
	if !ok || e.Handlers.Click == nil {
		return false
	}
	e.Handlers.Click()
	return true
}

// ResetAnimations forgets the recorded animations.
func (m *Memory) ResetAnimations() {
	m.Animations = nil
}
