package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/relations"
)

var errBadRequest = errors.New("bad request")

const participantRequired = "Event search requires search terms. Current recognized search terms are: participant"

// parseFilter reads the filter query parameters. Empty values match
// everything.
func parseFilter(q url.Values) (relations.Filter, error) {
	var f relations.Filter
	parse := func(name string) (int64, error) {
		v := q.Get(name)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", name, errBadRequest)
		}
		return n, nil
	}

	var err error
	if f.ActionID, err = parse(relations.ActionFilter); err != nil {
		return f, err
	}
	if f.Participant, err = parse("participant"); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) graphData(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.svc.GraphData(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to build graph data", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "graph data unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) eventLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, ok := q["participant"]; !ok {
		s.respondError(w, http.StatusBadRequest, participantRequired)
		return
	}
	f, err := parseFilter(q)
	if err == nil && f.Participant == 0 {
		err = fmt.Errorf("participant must be an integer: %w", errBadRequest)
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.lookupEvents(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to look up events", zap.Int64("participant", f.Participant), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "event lookup unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

// lookupEvents serves event lookups through the cache.
func (s *Server) lookupEvents(ctx context.Context, f relations.Filter) ([]relations.Event, error) {
	key := strconv.FormatInt(f.Participant, 10) + "|" + strconv.FormatInt(f.ActionID, 10)
	if events, ok := s.events.Get(key); ok {
		s.cfg.Metrics.EventCacheHits.Inc()
		return events, nil
	}
	s.cfg.Metrics.EventCacheMisses.Inc()

	events, err := s.svc.EventLookup(ctx, f)
	if err != nil {
		return nil, err
	}
	s.events.Add(key, events)
	return events, nil
}

// Purge drops cached lookups, for use after the data changes.
func (s *Server) Purge() {
	s.events.Purge()
}

func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	fields, err := s.svc.FilterOptions(r.Context())
	if err != nil {
		s.logger.Error("failed to list filters", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "filters unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, fields)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
