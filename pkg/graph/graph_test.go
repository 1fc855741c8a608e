package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataset(t *testing.T) {
	ds, err := Decode(strings.NewReader(`{
		"nodes": [{"id": "A", "name": "mob", "value": 3}, {"id": 7, "name": "sheriff", "value": 7}],
		"links": [{"source": "A", "target": 7, "value": 2}]
	}`))
	require.NoError(t, err)

	require.Len(t, ds.Nodes, 2)
	assert.Equal(t, "A", ds.Nodes[0].ID)
	assert.Equal(t, "7", ds.Nodes[1].ID)
	assert.Equal(t, 7.0, ds.Nodes[1].Value)

	require.Len(t, ds.Links, 1)
	assert.Equal(t, LinkKey{Source: "A", Target: "7"}, ds.Links[0].Key())
	assert.Equal(t, "A|7", ds.Links[0].Key().String())
}

func TestDecodeIndexedLinks(t *testing.T) {
	ds, err := Decode(strings.NewReader(`{
		"nodes": [{"actor_id": 12, "name": "mob", "value": 1}, {"actor_id": 40, "name": "victim", "value": 1}],
		"links": [{"source": 0, "source_id": 12, "target": 1, "target_id": 40, "value": 1}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "12", ds.Nodes[0].ID)
	assert.Equal(t, LinkKey{Source: "12", Target: "40"}, ds.Links[0].Key())
	require.NoError(t, ds.Resolve())
	assert.Same(t, ds.Nodes[0], ds.Links[0].Source)
	assert.Same(t, ds.Nodes[1], ds.Links[0].Target)
}

func TestResolveReportsEveryDanglingEndpoint(t *testing.T) {
	ds := &Dataset{
		Nodes: []*Node{{ID: "A"}},
		Links: []*Link{
			{SourceID: "A", TargetID: "B"},
			{SourceID: "C", TargetID: "D"},
		},
	}

	err := ds.Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingLink))
	assert.Contains(t, err.Error(), `"B"`)
	assert.Contains(t, err.Error(), `"C"`)
	assert.Contains(t, err.Error(), `"D"`)
}

func TestResolveRejectsDuplicateNodes(t *testing.T) {
	ds := &Dataset{Nodes: []*Node{{ID: "A"}, {ID: "A"}}}
	err := ds.Resolve()
	assert.True(t, errors.Is(err, ErrDuplicateNode))
}

func TestDatasetHas(t *testing.T) {
	ds := &Dataset{Nodes: []*Node{{ID: "A"}}}
	assert.True(t, ds.Has("A"), "lookup before Resolve")
	require.NoError(t, ds.Resolve())
	assert.True(t, ds.Has("A"))
	assert.False(t, ds.Has("B"))
}

func TestDecodeDetailsEmpty(t *testing.T) {
	records, err := DecodeDetails(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFilterQueryOmitsEmptyValues(t *testing.T) {
	f := FilterSet{"action": "3", "race": "", "county": "Bibb"}
	assert.Equal(t, "action=3&county=Bibb", f.Query())
	assert.Equal(t, "/graph/data/?action=3&county=Bibb", f.URL("/graph/data/"))
	assert.Equal(t, "/graph/data/", FilterSet{"action": ""}.URL("/graph/data/"))
	assert.Equal(t, "/d?x=1&action=3", FilterSet{"action": "3"}.URL("/d?x=1"))
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters([]string{"action=3", "race="})
	require.NoError(t, err)
	assert.Equal(t, FilterSet{"action": "3", "race": ""}, f)

	_, err = ParseFilters([]string{"action"})
	assert.Error(t, err)
}
