package model

import (
	"fmt"
	"time"
)

// EndpointStatus is the outcome of probing a single SPARQL endpoint.
type EndpointStatus string

const (
	// StatusUnavailable means the endpoint could not be reached or answered with a non-2xx status.
	StatusUnavailable EndpointStatus = "unavailable"
	// StatusInvalid means the endpoint answered, but not with a SPARQL boolean result.
	StatusInvalid EndpointStatus = "invalid"
	// StatusAvailable means the endpoint answered the ASK query.
	StatusAvailable EndpointStatus = "available"
)

// ParseEndpointStatus converts a stored status back to its typed value.
func ParseEndpointStatus(s string) (EndpointStatus, error) {
	switch st := EndpointStatus(s); st {
	case StatusUnavailable, StatusInvalid, StatusAvailable:
		return st, nil
	default:
		return "", fmt.Errorf("unknown endpoint status %q", s)
	}
}

// ReportVersion is the version of the report document layout.
const ReportVersion = 1

// ReportItem is the status of one endpoint in a report.
type ReportItem struct {
	Endpoint string         `json:"endpoint"`
	Status   EndpointStatus `json:"status"`
}

// ReportMetadata describes how and when a report was produced.
type ReportMetadata struct {
	Date    string `json:"date"`
	Timeout int    `json:"timeout"`
	Version int    `json:"version"`
}

// Report is the document written to disk and published to object storage.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Data     []ReportItem   `json:"data"`
}

// StatusCounts tallies items per status.
type StatusCounts struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Invalid     int `json:"invalid"`
	Unavailable int `json:"unavailable"`
}

// Counts returns the per-status tally of the report items.
func (r Report) Counts() StatusCounts {
	c := StatusCounts{Total: len(r.Data)}
	for _, it := range r.Data {
		switch it.Status {
		case StatusAvailable:
			c.Available++
		case StatusInvalid:
			c.Invalid++
		case StatusUnavailable:
			c.Unavailable++
		}
	}
	return c
}

// ReportRun is a persisted report together with where it was written.
type ReportRun struct {
	ID         string       `json:"id"`
	FileName   string       `json:"file_name"`
	StorageKey string       `json:"storage_key,omitempty"`
	Counts     StatusCounts `json:"counts"`
	Report     Report       `json:"report"`
	CreatedAt  time.Time    `json:"created_at"`
}
