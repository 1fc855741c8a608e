package relations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/relations/relationstest"
)

func newService(t *testing.T, seed *relations.Seed) *relations.Service {
	t.Helper()
	store := relations.NewMemoryStore()
	require.NoError(t, store.Load(context.Background(), seed))
	return relations.NewService(store, nil)
}

func TestGraphDataUnfiltered(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	data, err := svc.GraphData(context.Background(), relations.Filter{})
	require.NoError(t, err)

	assert.Equal(t, []relations.GraphNode{
		{Name: "police", Value: 2, ActorID: 1},
		{Name: "citizens", Value: 6, ActorID: 2},
		{Name: "crowd", Value: 4, ActorID: 3},
	}, data.Nodes)
	assert.Equal(t, []relations.GraphLink{
		{Source: 0, SourceID: 1, Target: 1, TargetID: 2, Value: 2},
		{Source: 1, SourceID: 2, Target: 2, TargetID: 3, Value: 2},
		{Source: 2, SourceID: 3, Target: 1, TargetID: 2, Value: 2},
	}, data.Links)
}

func TestGraphDataFiltered(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	data, err := svc.GraphData(context.Background(), relations.Filter{ActionID: 1})
	require.NoError(t, err)

	assert.Equal(t, []relations.GraphNode{
		{Name: "police", Value: 2, ActorID: 1},
		{Name: "citizens", Value: 3, ActorID: 2},
		{Name: "crowd", Value: 1, ActorID: 3},
	}, data.Nodes)
	assert.Equal(t, []relations.GraphLink{
		{Source: 0, SourceID: 1, Target: 1, TargetID: 2, Value: 2},
		{Source: 2, SourceID: 3, Target: 1, TargetID: 2, Value: 1},
	}, data.Links)
}

func TestGraphDataEmpty(t *testing.T) {
	svc := newService(t, &relations.Seed{})

	data, err := svc.GraphData(context.Background(), relations.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, data.Nodes)
	assert.NotNil(t, data.Links)
	assert.Empty(t, data.Nodes)
}

func TestEventLookup(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	events, err := svc.EventLookup(context.Background(), relations.Filter{Participant: 3})
	require.NoError(t, err)
	assert.Equal(t, []relations.Event{
		{Name: "Lynching of Leo Frank, Marietta 1915", URL: "/lynchings/2/", Appearances: 2},
		{Name: "Lynching of Sam Hose, Newnan 1899", URL: "/lynchings/1/", Appearances: 1},
		{Name: "Lynching of Mary Turner, Valdosta 1918", URL: "/stories/turner/", Appearances: 1},
	}, events)
}

func TestEventLookupFilterAction(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	events, err := svc.EventLookup(context.Background(), relations.Filter{Participant: 3, ActionID: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/lynchings/1/", events[0].URL)
	assert.Equal(t, "/stories/turner/", events[1].URL)
}

func TestEventLookupSkipsMissingStories(t *testing.T) {
	seed := relationstest.Fixture()
	seed.Stories = seed.Stories[:1]
	svc := newService(t, seed)

	events, err := svc.EventLookup(context.Background(), relations.Filter{Participant: 3})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "/lynchings/1/", events[0].URL)
}

func TestEventLookupRequiresParticipant(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	_, err := svc.EventLookup(context.Background(), relations.Filter{})
	assert.Error(t, err)
}

func TestFilterOptions(t *testing.T) {
	svc := newService(t, relationstest.Fixture())

	fields, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, relations.ActionFilter, fields[0].HTTPName)
	assert.Equal(t, []relations.FilterValue{
		{Label: "All (6)", Value: "", Count: 6},
		{Label: "violence against people (3)", Value: "1", Count: 3},
		{Label: "threat (2)", Value: "2", Count: 2},
		{Label: "surrender (1)", Value: "3", Count: 1},
	}, fields[0].Values)
}
