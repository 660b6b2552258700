package sparql

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataendpoint/internal/logger"
	"dataendpoint/internal/model"
)

type recordedProbe struct {
	status model.EndpointStatus
}

type fakeRecorder struct {
	mu     sync.Mutex
	probes []recordedProbe
}

func (f *fakeRecorder) ObserveProbe(status model.EndpointStatus, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, recordedProbe{status: status})
}

func newEndpointServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != AskQuery {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{"head":{},"boolean":true}`))
	})
	mux.HandleFunc("/empty-store", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{"head":{},"boolean":false}`))
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Welcome</body></html>`))
	})
	mux.HandleFunc("/select", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head":{"vars":["s"]},"results":{"bindings":[]}}`))
	})
	mux.HandleFunc("/array", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[true]`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"boolean":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProber_Probe(t *testing.T) {
	srv := newEndpointServer(t)
	p := NewProber(WithHTTPClient(srv.Client()), WithTimeout(200*time.Millisecond))
	ctx := context.Background()

	tests := []struct {
		name     string
		endpoint string
		want     model.EndpointStatus
	}{
		{"answers ask", srv.URL + "/sparql", model.StatusAvailable},
		{"false is still an answer", srv.URL + "/empty-store", model.StatusAvailable},
		{"keeps existing query params", srv.URL + "/sparql?default-graph-uri=urn:x", model.StatusAvailable},
		{"html page", srv.URL + "/html", model.StatusInvalid},
		{"select shaped json", srv.URL + "/select", model.StatusInvalid},
		{"json array", srv.URL + "/array", model.StatusInvalid},
		{"server error", srv.URL + "/broken", model.StatusUnavailable},
		{"not found", srv.URL + "/missing", model.StatusUnavailable},
		{"timeout", srv.URL + "/slow", model.StatusUnavailable},
		{"unsupported scheme", "ftp://example.org/sparql", model.StatusUnavailable},
		{"garbage", "::not a url", model.StatusUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Probe(ctx, tt.endpoint))
		})
	}
}

func TestProber_Probe_ClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	p := NewProber(WithTimeout(time.Second))
	assert.Equal(t, model.StatusUnavailable, p.Probe(context.Background(), addr+"/sparql"))
}

func TestProber_ProbeAll_KeepsOrder(t *testing.T) {
	srv := newEndpointServer(t)
	rec := &fakeRecorder{}
	p := NewProber(
		WithHTTPClient(srv.Client()),
		WithTimeout(500*time.Millisecond),
		WithConcurrency(2),
		WithRecorder(rec),
	)

	endpoints := []string{
		srv.URL + "/broken",
		srv.URL + "/sparql",
		srv.URL + "/html",
		srv.URL + "/empty-store",
	}

	items := p.ProbeAll(context.Background(), endpoints)

	require.Len(t, items, 4)
	assert.Equal(t, []model.ReportItem{
		{Endpoint: endpoints[0], Status: model.StatusUnavailable},
		{Endpoint: endpoints[1], Status: model.StatusAvailable},
		{Endpoint: endpoints[2], Status: model.StatusInvalid},
		{Endpoint: endpoints[3], Status: model.StatusAvailable},
	}, items)
	assert.Len(t, rec.probes, 4)
}

func TestProber_Probe_LogsOutcome(t *testing.T) {
	srv := newEndpointServer(t)
	var buf bytes.Buffer
	ctx := logger.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	p := NewProber(WithHTTPClient(srv.Client()), WithTimeout(time.Second))

	p.Probe(ctx, srv.URL+"/sparql")
	p.Probe(ctx, srv.URL+"/broken")
	p.Probe(ctx, srv.URL+"/html")

	out := buf.String()
	assert.Contains(t, out, fmt.Sprintf("'%s/sparql' is available.", srv.URL))
	assert.Contains(t, out, fmt.Sprintf("'%s/broken' is unavailable.", srv.URL))
	assert.Contains(t, out, fmt.Sprintf("'%s/html' is not SPARQL endpoint.", srv.URL))
	assert.Contains(t, out, "level=INFO")
}

func TestProber_Probe_RequestShape(t *testing.T) {
	var (
		mu  sync.Mutex
		got *http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.Clone(context.Background())
		mu.Unlock()
		_, _ = w.Write([]byte(`{"boolean":true}`))
	}))
	t.Cleanup(srv.Close)
	p := NewProber(WithHTTPClient(srv.Client()))

	status := p.Probe(context.Background(), srv.URL+"/sparql")

	require.Equal(t, model.StatusAvailable, status)
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/sparql", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, AskQuery, q.Get("query"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "json", q.Get("output"))
	assert.Equal(t, acceptHeader, got.Header.Get("Accept"))
	assert.Contains(t, got.Header.Get("Accept"), "application/sparql-results+json")
	assert.Equal(t, userAgent, got.Header.Get("User-Agent"))
}

func TestProber_ProbeAll_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"boolean":true}`))
	}))
	t.Cleanup(srv.Close)

	p := NewProber(WithHTTPClient(srv.Client()), WithTimeout(2*time.Second), WithConcurrency(2))
	endpoints := make([]string, 8)
	for i := range endpoints {
		endpoints[i] = fmt.Sprintf("%s/sparql/%d", srv.URL, i)
	}

	items := p.ProbeAll(context.Background(), endpoints)

	require.Len(t, items, len(endpoints))
	for _, it := range items {
		assert.Equal(t, model.StatusAvailable, it.Status)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestProber_ProbeAll_Empty(t *testing.T) {
	items := NewProber().ProbeAll(context.Background(), nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestNewProber_Defaults(t *testing.T) {
	p := NewProber(WithTimeout(0), WithConcurrency(-1), WithHTTPClient(nil))
	assert.Equal(t, DefaultTimeout, p.Timeout())
	assert.Equal(t, DefaultConcurrency, p.concurrency)
	assert.NotNil(t, p.client)
}

func TestAskURL(t *testing.T) {
	got, err := askURL("https://example.org/sparql?graph=a")
	require.NoError(t, err)
	assert.Contains(t, got, "graph=a")
	assert.Contains(t, got, "format=json")
	assert.Contains(t, got, "output=json")
	assert.Contains(t, got, "query=ASK+WHERE+%7B+%3Fs+%3Fp+%3Fo+%7D")

	_, err = askURL("https:///sparql")
	assert.Error(t, err)
}

func TestCheckBooleanResult(t *testing.T) {
	assert.NoError(t, checkBooleanResult([]byte(`{"boolean":true}`)))
	assert.Error(t, checkBooleanResult([]byte(`{"results":{}}`)))
	assert.Error(t, checkBooleanResult([]byte(`not json`)))
	assert.Error(t, checkBooleanResult([]byte(`"boolean"`)))
}
