package relations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	_ Store    = (*MemoryStore)(nil)
	_ Loader   = (*MemoryStore)(nil)
	_ Importer = (*MemoryStore)(nil)
)

// MemoryStore keeps relationship data in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	actors    []Actor
	actions   []Action
	stories   map[int64]Story
	relations []Relation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stories: map[int64]Story{}}
}

// ReadSeed decodes and validates a JSON seed.
func ReadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Load replaces the store contents with seed.
func (m *MemoryStore) Load(_ context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	actors := append([]Actor(nil), seed.Actors...)
	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })
	actions := append([]Action(nil), seed.Actions...)
	sort.Slice(actions, func(i, j int) bool { return actions[i].ID < actions[j].ID })
	relations := append([]Relation(nil), seed.Relations...)
	sort.Slice(relations, func(i, j int) bool { return relations[i].ID < relations[j].ID })
	stories := make(map[int64]Story, len(seed.Stories))
	for _, s := range seed.Stories {
		stories[s.ID] = s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors, m.actions, m.relations, m.stories = actors, actions, relations, stories
	return nil
}

// Import appends rows, creating actors and actions by description.
func (m *MemoryStore) Import(_ context.Context, rows []ImportRow, wipe bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wipe {
		m.relations = nil
	}

	actors := make(map[string]int64, len(m.actors))
	var lastActor int64
	for _, a := range m.actors {
		actors[a.Description] = a.ID
		lastActor = a.ID
	}
	actorID := func(desc string) int64 {
		if desc == "" {
			return 0
		}
		if id, ok := actors[desc]; ok {
			return id
		}
		lastActor++
		actors[desc] = lastActor
		m.actors = append(m.actors, Actor{ID: lastActor, Description: desc})
		return lastActor
	}

	actions := make(map[string]int64, len(m.actions))
	var lastAction int64
	for _, a := range m.actions {
		actions[a.Description] = a.ID
		lastAction = a.ID
	}
	actionID := func(desc string) int64 {
		if desc == "" {
			return 0
		}
		if id, ok := actions[desc]; ok {
			return id
		}
		lastAction++
		actions[desc] = lastAction
		m.actions = append(m.actions, Action{ID: lastAction, Description: desc})
		return lastAction
	}

	var lastRelation int64
	if n := len(m.relations); n > 0 {
		lastRelation = m.relations[n-1].ID
	}
	for _, row := range rows {
		lastRelation++
		m.relations = append(m.relations, Relation{
			ID:         lastRelation,
			StoryID:    row.StoryID,
			EventID:    row.EventID,
			SequenceID: row.SequenceID,
			TripletID:  row.TripletID,
			SubjectID:  actorID(row.Subject),
			ActionID:   actionID(row.Action),
			ObjectID:   actorID(row.Object),
		})
	}
	return len(rows), nil
}

func (m *MemoryStore) Actors(context.Context) ([]Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Actor(nil), m.actors...), nil
}

func (m *MemoryStore) Actions(context.Context) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Action(nil), m.actions...), nil
}

func (m *MemoryStore) Relations(_ context.Context, f Filter) ([]Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Relation
	for _, r := range m.relations {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) Story(_ context.Context, id int64) (Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return Story{}, fmt.Errorf("story %d: %w", id, ErrNotFound)
	}
	return s, nil
}
