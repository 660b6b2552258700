// Package sparql checks whether URLs behave as SPARQL endpoints.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"dataendpoint/internal/logger"
	"dataendpoint/internal/model"
)

const (
	// AskQuery matches any triple; every non-empty store answers true.
	AskQuery = "ASK WHERE { ?s ?p ?o }"

	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 8

	userAgent    = "data-endpoint-accessibility/1.0"
	acceptHeader = "application/sparql-results+json,application/json;q=0.9,*/*;q=0.1"

	// maxBodyBytes bounds how much of an answer is read; a boolean result is tiny.
	maxBodyBytes = 1 << 20
)

// Recorder receives probe outcomes. *metrics.Probe satisfies it.
type Recorder interface {
	ObserveProbe(status model.EndpointStatus, d time.Duration)
}

// Prober sends an ASK query to endpoints and classifies their answers.
type Prober struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	recorder    Recorder
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the per-endpoint timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency bounds how many endpoints are probed at once.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRecorder reports every probe outcome to r.
func WithRecorder(r Recorder) Option {
	return func(p *Prober) { p.recorder = r }
}

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// NewProber returns a Prober with a 5 second timeout and 8 concurrent probes.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Timeout returns the per-endpoint timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe classifies a single endpoint.
func (p *Prober) Probe(ctx context.Context, endpoint string) model.EndpointStatus {
	start := time.Now()
	status, err := p.probe(ctx, endpoint)

	log := logger.FromContext(ctx)
	switch status {
	case model.StatusAvailable:
		log.Info(fmt.Sprintf("'%s' is available.", endpoint))
	case model.StatusInvalid:
		log.Info(fmt.Sprintf("'%s' is not SPARQL endpoint.", endpoint), "reason", err)
	default:
		log.Info(fmt.Sprintf("'%s' is unavailable.", endpoint), "reason", err)
	}

	if p.recorder != nil {
		p.recorder.ObserveProbe(status, time.Since(start))
	}
	return status
}

// ProbeAll classifies endpoints concurrently. The result keeps the input order.
func (p *Prober) ProbeAll(ctx context.Context, endpoints []string) []model.ReportItem {
	items := make([]model.ReportItem, len(endpoints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			items[i] = model.ReportItem{
				Endpoint: endpoint,
				Status:   p.Probe(gctx, endpoint),
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// probe returns the status plus, for anything but available, why.
func (p *Prober) probe(ctx context.Context, endpoint string) (model.EndpointStatus, error) {
	reqURL, err := askURL(endpoint)
	if err != nil {
		return model.StatusUnavailable, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.StatusUnavailable, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		return model.StatusUnavailable, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return model.StatusUnavailable, fmt.Errorf("status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return model.StatusUnavailable, fmt.Errorf("read body: %w", err)
	}

	if err := checkBooleanResult(body); err != nil {
		return model.StatusInvalid, err
	}
	return model.StatusAvailable, nil
}

// askURL appends the ASK query and JSON format hints to endpoint, keeping
// any query parameters it already carries.
func askURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint url %q has no host", endpoint)
	}
	q := u.Query()
	q.Set("query", AskQuery)
	q.Set("format", "json")
	q.Set("output", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// checkBooleanResult accepts a JSON object carrying a "boolean" member,
// which is how SPARQL JSON results encode an ASK answer.
func checkBooleanResult(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	if _, ok := doc["boolean"]; !ok {
		return fmt.Errorf("response has no boolean member")
	}
	return nil
}
