package server

import (
	"context"
	"net/url"
	"strconv"

	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/view"
)

var _ view.Fetcher = localFetcher{}

// localFetcher serves live sessions from the server's own service and
// event cache, skipping the HTTP round trip.
type localFetcher struct {
	s *Server
}

func (f localFetcher) Dataset(ctx context.Context, filters graph.FilterSet) (*graph.Dataset, error) {
	q := url.Values{}
	for k, v := range filters {
		q.Set(k, v)
	}
	rf, err := parseFilter(q)
	if err != nil {
		return nil, err
	}
	data, err := f.s.svc.GraphData(ctx, rf)
	if err != nil {
		return nil, err
	}

	ds := &graph.Dataset{
		Nodes: make([]*graph.Node, 0, len(data.Nodes)),
		Links: make([]*graph.Link, 0, len(data.Links)),
	}
	for _, n := range data.Nodes {
		ds.Nodes = append(ds.Nodes, &graph.Node{
			ID:    graph.FormatID(n.ActorID),
			Name:  n.Name,
			Value: float64(n.Value),
		})
	}
	for _, l := range data.Links {
		ds.Links = append(ds.Links, &graph.Link{
			SourceID: graph.FormatID(l.SourceID),
			TargetID: graph.FormatID(l.TargetID),
			Value:    float64(l.Value),
		})
	}
	return ds, nil
}

func (f localFetcher) Details(ctx context.Context, participant string) ([]graph.DetailRecord, error) {
	id, err := strconv.ParseInt(participant, 10, 64)
	if err != nil {
		return nil, err
	}
	events, err := f.s.lookupEvents(ctx, relations.Filter{Participant: id})
	if err != nil {
		return nil, err
	}
	records := make([]graph.DetailRecord, 0, len(events))
	for _, e := range events {
		records = append(records, graph.DetailRecord{Name: e.Name, URL: e.URL, Appearances: e.Appearances})
	}
	return records, nil
}
