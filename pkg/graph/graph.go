// Package graph defines the relationship graph shared by the data service,
// the HTTP client and the view engine.
package graph

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrDanglingLink is returned when a link endpoint does not name a node
	// of the same dataset.
	ErrDanglingLink = errors.New("link endpoint not in node set")

	// ErrDuplicateNode is returned when two nodes of a dataset share an ID.
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Node is an actor in the relationship graph.
type Node struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"` // Number of relations the actor takes part in

	// Live position and previous position, owned by the simulation.
	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	PX float64 `json:"px,omitempty"`
	PY float64 `json:"py,omitempty"`
}

// LinkKey identifies a link by its ordered endpoint pair.
type LinkKey struct {
	Source string
	Target string
}

func (k LinkKey) String() string {
	return k.Source + "|" + k.Target
}

// Link is a weighted relationship between two actors. Source and Target are
// resolved from SourceID and TargetID by Dataset.Resolve; a link never owns
// its nodes.
type Link struct {
	SourceID string  `json:"source"`
	TargetID string  `json:"target"`
	Value    float64 `json:"value"`

	Source *Node `json:"-"`
	Target *Node `json:"-"`
}

// Key returns the link identity.
func (l *Link) Key() LinkKey {
	return LinkKey{Source: l.SourceID, Target: l.TargetID}
}

// Touches reports whether either endpoint of the link is the node id.
func (l *Link) Touches(id string) bool {
	return l.SourceID == id || l.TargetID == id
}

// Dataset is one atomically fetched generation of nodes and links.
type Dataset struct {
	Nodes []*Node `json:"nodes"`
	Links []*Link `json:"links"`

	index map[string]*Node
}

// Resolve binds every link to its endpoint nodes by identity. All dangling
// endpoints and duplicate node ids are reported together.
func (d *Dataset) Resolve() error {
	var result *multierror.Error

	d.index = make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, ok := d.index[n.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("node %q: %w", n.ID, ErrDuplicateNode))
			continue
		}
		d.index[n.ID] = n
	}

	for _, l := range d.Links {
		l.Source = d.index[l.SourceID]
		l.Target = d.index[l.TargetID]
		if l.Source == nil {
			result = multierror.Append(result, fmt.Errorf("link %s source %q: %w", l.Key(), l.SourceID, ErrDanglingLink))
		}
		if l.Target == nil {
			result = multierror.Append(result, fmt.Errorf("link %s target %q: %w", l.Key(), l.TargetID, ErrDanglingLink))
		}
	}

	return result.ErrorOrNil()
}

// Node looks up a node by id.
func (d *Dataset) Node(id string) (*Node, bool) {
	if d.index == nil {
		for _, n := range d.Nodes {
			if n.ID == id {
				return n, true
			}
		}
		return nil, false
	}
	n, ok := d.index[id]
	return n, ok
}

// Has reports whether the dataset contains a node with the given id.
func (d *Dataset) Has(id string) bool {
	_, ok := d.Node(id)
	return ok
}

// DetailRecord is a story in which an actor appears.
type DetailRecord struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Appearances int    `json:"appearances"`
}
