// Package relations holds the coded relationship data behind the graph:
// actors, actions, the subject-action-object relations extracted from
// stories, and the aggregations served to the graph view.
package relations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSeed is returned for seed data that references unknown
	// records.
	ErrInvalidSeed = errors.New("invalid seed")
)

// Actor is a named subject or object of a relation.
type Actor struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// Action is a named action of a relation.
type Action struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// Story is an account that relations were coded from.
type Story struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// DetailURL is the page of the story. Stories without an explicit URL
// link to their lynching detail page.
func (s Story) DetailURL() string {
	if s.URL != "" {
		return s.URL
	}
	return "/lynchings/" + strconv.FormatInt(s.ID, 10) + "/"
}

// Relation is one subject-action-object triple coded from a story. A zero
// SubjectID, ActionID or ObjectID means the part was not coded; such
// relations never reach the graph.
//
// EventID, SequenceID and TripletID locate the coded triplet in the
// source report. A triplet with several subjects or objects yields one
// relation per combination.
type Relation struct {
	ID         int64 `json:"id"`
	StoryID    int64 `json:"story_id"`
	EventID    int64 `json:"event_id,omitempty"`
	SequenceID int64 `json:"sequence_id,omitempty"`
	TripletID  int64 `json:"triplet_id,omitempty"`
	SubjectID  int64 `json:"subject_id,omitempty"`
	ActionID   int64 `json:"action_id,omitempty"`
	ObjectID   int64 `json:"object_id,omitempty"`
}

// Complete reports whether subject, action and object are all coded.
func (r Relation) Complete() bool {
	return r.SubjectID != 0 && r.ActionID != 0 && r.ObjectID != 0
}

// Involves reports whether the actor is the subject or the object.
func (r Relation) Involves(actor int64) bool {
	return r.SubjectID == actor || r.ObjectID == actor
}

// Filter narrows the relations considered. Zero fields match everything.
type Filter struct {
	ActionID    int64
	Participant int64
}

// Match reports whether r passes the filter. Incomplete relations never
// match.
func (f Filter) Match(r Relation) bool {
	if !r.Complete() {
		return false
	}
	if f.ActionID != 0 && r.ActionID != f.ActionID {
		return false
	}
	if f.Participant != 0 && !r.Involves(f.Participant) {
		return false
	}
	return true
}

// Seed is a complete data set as loaded from JSON.
type Seed struct {
	Actors    []Actor    `json:"actors"`
	Actions   []Action   `json:"actions"`
	Stories   []Story    `json:"stories"`
	Relations []Relation `json:"relations"`
}

// Store reads relationship data.
type Store interface {
	// Actors returns every actor ordered by id.
	Actors(ctx context.Context) ([]Actor, error)
	// Actions returns every action ordered by id.
	Actions(ctx context.Context) ([]Action, error)
	// Relations returns the complete relations matching f ordered by id.
	Relations(ctx context.Context, f Filter) ([]Relation, error)
	// Story looks up a story, returning ErrNotFound when it does not exist.
	Story(ctx context.Context, id int64) (Story, error)
}

// Loader replaces the contents of a store.
type Loader interface {
	Load(ctx context.Context, seed *Seed) error
}

// Importer appends report rows to a store.
type Importer interface {
	// Import adds one relation per row, creating actors and actions by
	// description when they do not exist yet. With wipe, every existing
	// relation is deleted first; actors, actions and stories are kept. It
	// returns the number of relations added.
	Import(ctx context.Context, rows []ImportRow, wipe bool) (int, error)
}

// Validate checks that every relation refers to known actors and actions.
// Stories may be missing; lookups skip them.
func (s *Seed) Validate() error {
	actors := make(map[int64]bool, len(s.Actors))
	for _, a := range s.Actors {
		actors[a.ID] = true
	}
	actions := make(map[int64]bool, len(s.Actions))
	for _, a := range s.Actions {
		actions[a.ID] = true
	}
	check := func(rel Relation, role string, id int64, known map[int64]bool) error {
		if id == 0 || known[id] {
			return nil
		}
		return fmt.Errorf("relation %d: unknown %s %d: %w", rel.ID, role, id, ErrInvalidSeed)
	}
	for _, r := range s.Relations {
		if err := check(r, "subject", r.SubjectID, actors); err != nil {
			return err
		}
		if err := check(r, "action", r.ActionID, actions); err != nil {
			return err
		}
		if err := check(r, "object", r.ObjectID, actors); err != nil {
			return err
		}
	}
	return nil
}
