// Package source reads the list of SPARQL endpoints to check.
//
// The list is a CSV document with a header row; the endpoint URL is taken
// from the second column. It may live on disk or behind an http(s) URL.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// urlColumn is the CSV column holding the endpoint URL.
const urlColumn = 1

// Lister loads endpoint lists from files or URLs.
type Lister struct {
	client *http.Client
}

// NewLister returns a Lister using a traced HTTP client for remote lists.
func NewLister() *Lister {
	return newLister(&http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

func newLister(client *http.Client) *Lister {
	return &Lister{client: client}
}

// IsRemote reports whether location is fetched over HTTP rather than read from disk.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http")
}

// ListEndpoints returns the unique endpoint URLs in location, in file order.
func (l *Lister) ListEndpoints(ctx context.Context, location string) ([]string, error) {
	if location == "" {
		return nil, errors.New("endpoint list location is required")
	}
	rc, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	endpoints, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	return endpoints, nil
}

func (l *Lister) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsRemote(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open endpoint list: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	res, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch endpoint list: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Body.Close()
		return nil, fmt.Errorf("failed to fetch endpoint list: status %d", res.StatusCode)
	}
	return res.Body, nil
}

// Parse reads CSV from r, skips the header row and returns the unique,
// non-blank values of the URL column. Rows too short to hold a URL are ignored.
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []string{}, nil
		}
		return nil, err
	}

	visited := make(map[string]struct{})
	endpoints := make([]string, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= urlColumn {
			continue
		}
		url := strings.TrimSpace(row[urlColumn])
		if url == "" {
			continue
		}
		if _, seen := visited[url]; seen {
			continue
		}
		visited[url] = struct{}{}
		endpoints = append(endpoints, url)
	}
	return endpoints, nil
}
