package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataendpoint/internal/config"
)

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MinIOConfig
		wantErr string
	}{
		{"missing endpoint", config.MinIOConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint is required"},
		{"missing credentials", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}, "credentials are required"},
		{"missing bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(context.Background(), tt.cfg)
			assert.Nil(t, s)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/2024-01-02-sparql-available.json", ReportKey("2024-01-02-sparql-available.json"))
}

// fakeS3 answers the handful of S3 calls the report publisher makes.
type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]bool
	requests []string
	headers  map[string]http.Header
}

func newFakeS3(t *testing.T, buckets ...string) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, headers: map[string]http.Header{}}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodHead && key == "":
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && key == "":
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.headers[key] = r.Header.Clone()
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func testConfig(srv *httptest.Server, bucket string) config.MinIOConfig {
	return config.MinIOConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    bucket,
		Region:    "us-east-1",
	}
}

func TestNewMinIO_CreatesMissingBucket(t *testing.T) {
	f, srv := newFakeS3(t)

	s, err := NewMinIO(context.Background(), testConfig(srv, "sparql"))

	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, []string{"HEAD /sparql/", "PUT /sparql/"}, f.requests)
}

func TestNewMinIO_ExistingBucket(t *testing.T) {
	f, srv := newFakeS3(t, "sparql")

	_, err := NewMinIO(context.Background(), testConfig(srv, "sparql"))

	require.NoError(t, err)
	assert.Equal(t, []string{"HEAD /sparql/"}, f.requests)
}

func TestMinIO_PutDeletePresign(t *testing.T) {
	f, srv := newFakeS3(t, "sparql")
	ctx := context.Background()
	s, err := NewMinIO(ctx, testConfig(srv, "sparql"))
	require.NoError(t, err)

	key := ReportKey("2024-01-02-sparql-available.json")
	body := []byte(`{"metadata":{},"data":[]}`)
	info, err := s.Put(ctx, key, bytes.NewReader(body), PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"report-date": "2024-01-02"},
	})

	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, "0123456789abcdef", info.ETag)
	h := f.headers[key]
	require.NotNil(t, h)
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "no-cache", h.Get("Cache-Control"))
	assert.Equal(t, "2024-01-02", h.Get("X-Amz-Meta-Report-Date"))

	require.NoError(t, s.Delete(ctx, key))
	assert.Contains(t, f.requests, "DELETE /sparql/"+key)

	u, err := s.PresignGet(ctx, key, 10*time.Minute)
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "/sparql/"+key, parsed.Path)
	assert.Equal(t, "600", parsed.Query().Get("X-Amz-Expires"))
	assert.Contains(t, parsed.Query().Get("response-content-disposition"), "2024-01-02-sparql-available.json")
}
