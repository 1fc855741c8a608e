package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(Options{
		DataURL:         srv.URL + "/graph/data/",
		EventsURL:       srv.URL + "/graph/events/",
		InitialInterval: time.Millisecond,
		MaxElapsed:      time.Second,
	})
}

func TestDataset(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/data/", r.URL.Path)
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"nodes":[{"id":1,"name":"mob","value":3},{"id":"2","name":"sheriff","value":1}],
			"links":[{"source":1,"target":2,"value":1}]}`))
	}))
	defer srv.Close()

	ds, err := newTestClient(srv).Dataset(context.Background(), graph.FilterSet{"action": "4", "empty": ""})
	require.NoError(t, err)
	assert.Equal(t, "action=4", query)
	require.Len(t, ds.Nodes, 2)
	assert.Equal(t, "1", ds.Nodes[0].ID)
	require.Len(t, ds.Links, 1)
	assert.Equal(t, graph.LinkKey{Source: "1", Target: "2"}, ds.Links[0].Key())
}

func TestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("participant"))
		_, _ = w.Write([]byte(`[{"name":"John Doe, Macon 1899","url":"/lynchings/7/","appearances":2}]`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv).Details(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, []graph.DetailRecord{{Name: "John Doe, Macon 1899", URL: "/lynchings/7/", Appearances: 2}}, records)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv).Details(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "participant required", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Details(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMalformedBodyNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"nodes":`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Dataset(context.Background(), nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient(srv).Dataset(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
