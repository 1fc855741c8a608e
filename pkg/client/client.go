// Package client fetches graph datasets and actor details from the relgraph
// data endpoints.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

// ErrStatus is returned for a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the status of a failed request.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Options configures a Client.
type Options struct {
	DataURL   string
	EventsURL string

	HTTPClient *http.Client
	Logger     *zap.Logger

	// MaxElapsed bounds the retries of one request. Zero means 10s.
	MaxElapsed time.Duration
	// InitialInterval is the first retry delay. Zero means 250ms.
	InitialInterval time.Duration
}

type Client struct {
	dataURL   string
	eventsURL string
	http      *http.Client
	logger    *zap.Logger

	maxElapsed      time.Duration
	initialInterval time.Duration
}

func New(opts Options) *Client {
	c := &Client{
		dataURL:         opts.DataURL,
		eventsURL:       opts.EventsURL,
		http:            opts.HTTPClient,
		logger:          opts.Logger,
		maxElapsed:      opts.MaxElapsed,
		initialInterval: opts.InitialInterval,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.maxElapsed == 0 {
		c.maxElapsed = 10 * time.Second
	}
	if c.initialInterval == 0 {
		c.initialInterval = 250 * time.Millisecond
	}
	return c
}

// Dataset fetches the graph data for the given filters. The links of the
// returned dataset are not yet resolved.
func (c *Client) Dataset(ctx context.Context, filters graph.FilterSet) (*graph.Dataset, error) {
	var ds *graph.Dataset
	err := c.get(ctx, filters.URL(c.dataURL), func(r io.Reader) error {
		var err error
		ds, err = graph.Decode(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Details fetches the stories the participant appears in.
func (c *Client) Details(ctx context.Context, participant string) ([]graph.DetailRecord, error) {
	u := graph.FilterSet{"participant": participant}.URL(c.eventsURL)
	var records []graph.DetailRecord
	err := c.get(ctx, u, func(r io.Reader) error {
		var err error
		records, err = graph.DecodeDetails(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, u string, decode func(io.Reader) error) error {
	if _, err := url.Parse(u); err != nil {
		return fmt.Errorf("parse %q: %w", u, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxElapsed

	return backoff.RetryNotify(
		func() error {
			err := c.once(ctx, u, decode)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil || isClientError(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			c.logger.Warn("retrying request", zap.String("url", u), zap.Duration("next", next), zap.Error(err))
		},
	)
}

func (c *Client) once(ctx context.Context, u string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return &StatusError{URL: u, Code: res.StatusCode}
	}
	if err := decode(res.Body); err != nil {
		return backoff.Permanent(fmt.Errorf("GET %s: %w", u, err))
	}
	return nil
}

// isClientError reports a 4xx response. Server errors and transport
// failures are retried.
func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}
