package relations

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// GraphNode is an actor in the graph data. Value counts the relations the
// actor takes part in, as subject and as object.
type GraphNode struct {
	Name    string `json:"name"`
	Value   int    `json:"value"`
	ActorID int64  `json:"actor_id"`
}

// GraphLink counts the relations between a subject and an object. Source
// and Target index into the node list.
type GraphLink struct {
	Source   int   `json:"source"`
	SourceID int64 `json:"source_id"`
	Target   int   `json:"target"`
	TargetID int64 `json:"target_id"`
	Value    int   `json:"value"`
}

// GraphData is the payload of the graph data endpoint.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Event is a story a participant appears in.
type Event struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Appearances int    `json:"appearances"`
}

// FilterValue is one choice of a filter control.
type FilterValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FilterField is a filter control with its choices.
type FilterField struct {
	Label    string        `json:"label"`
	HTTPName string        `json:"http_name"`
	Values   []FilterValue `json:"values"`
}

// ActionFilter is the query parameter naming the action filter.
const ActionFilter = "action"

// Service computes the graph view payloads from a Store.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// GraphData builds the nodes and links for the relations matching f.
// Nodes are actors ordered by id, without those that take part in no
// matching relation. Links are ordered by subject, then object.
func (s *Service) GraphData(ctx context.Context, f Filter) (*GraphData, error) {
	f.Participant = 0
	rels, err := s.store.Relations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("graph data: %w", err)
	}
	actors, err := s.store.Actors(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph data: %w", err)
	}

	type pair struct{ subject, object int64 }
	degree := map[int64]int{}
	pairs := map[pair]int{}
	for _, r := range rels {
		degree[r.SubjectID]++
		degree[r.ObjectID]++
		pairs[pair{r.SubjectID, r.ObjectID}]++
	}

	out := &GraphData{Nodes: []GraphNode{}, Links: []GraphLink{}}
	index := map[int64]int{}
	for _, a := range actors {
		v := degree[a.ID]
		if v == 0 {
			continue
		}
		index[a.ID] = len(out.Nodes)
		out.Nodes = append(out.Nodes, GraphNode{Name: a.Description, Value: v, ActorID: a.ID})
	}

	keys := make([]pair, 0, len(pairs))
	for p := range pairs {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		return keys[i].object < keys[j].object
	})
	for _, p := range keys {
		src, ok := index[p.subject]
		if !ok {
			s.logger.Warn("relation subject is not an actor", zap.Int64("actor", p.subject))
			continue
		}
		dst, ok := index[p.object]
		if !ok {
			s.logger.Warn("relation object is not an actor", zap.Int64("actor", p.object))
			continue
		}
		out.Links = append(out.Links, GraphLink{
			Source:   src,
			SourceID: p.subject,
			Target:   dst,
			TargetID: p.object,
			Value:    pairs[p],
		})
	}
	return out, nil
}

// EventLookup lists the stories in which the participant is subject or
// object of a relation matching f, most appearances first. Stories that
// no longer exist are skipped.
func (s *Service) EventLookup(ctx context.Context, f Filter) ([]Event, error) {
	if f.Participant == 0 {
		return nil, errors.New("event lookup: participant required")
	}
	rels, err := s.store.Relations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", err)
	}

	counts := map[int64]int{}
	var order []int64
	for _, r := range rels {
		if counts[r.StoryID] == 0 {
			order = append(order, r.StoryID)
		}
		counts[r.StoryID]++
	}

	events := []Event{}
	for _, id := range order {
		st, err := s.store.Story(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("skipping missing story", zap.Int64("story", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("event lookup: %w", err)
		}
		events = append(events, Event{Name: st.Name, URL: st.DetailURL(), Appearances: counts[id]})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Appearances > events[j].Appearances
	})
	return events, nil
}

// FilterOptions lists the filter controls of the graph page. Each control
// has an "All (n)" choice and one choice per value, most frequent first.
func (s *Service) FilterOptions(ctx context.Context) ([]FilterField, error) {
	rels, err := s.store.Relations(ctx, Filter{})
	if err != nil {
		return nil, fmt.Errorf("filter options: %w", err)
	}
	actions, err := s.store.Actions(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter options: %w", err)
	}

	counts := map[int64]int{}
	for _, r := range rels {
		counts[r.ActionID]++
	}

	values := []FilterValue{{Label: fmt.Sprintf("All (%d)", len(rels)), Value: "", Count: len(rels)}}
	for _, a := range actions {
		n := counts[a.ID]
		if n == 0 {
			continue
		}
		values = append(values, FilterValue{
			Label: fmt.Sprintf("%s (%d)", a.Description, n),
			Value: fmt.Sprint(a.ID),
			Count: n,
		})
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].Count > values[j].Count
	})

	return []FilterField{{
		Label:    "Type of Interaction",
		HTTPName: ActionFilter,
		Values:   values,
	}}, nil
}
