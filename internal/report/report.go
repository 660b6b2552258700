// Package report turns probe results into the dated accessibility report.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dataendpoint/internal/model"
)

const (
	// DateLayout formats the report day.
	DateLayout = "2006-01-02"
	// LatestFileName is the stable name pointing at the newest report.
	LatestFileName = "sparql-available.json"
	fileSuffix     = "-sparql-available.json"
)

// Build assembles the report document for items produced at now.
func Build(items []model.ReportItem, now time.Time, timeout time.Duration) model.Report {
	data := make([]model.ReportItem, len(items))
	copy(data, items)
	return model.Report{
		Metadata: model.ReportMetadata{
			Date:    now.Format(DateLayout),
			Timeout: int(timeout / time.Second),
			Version: model.ReportVersion,
		},
		Data: data,
	}
}

// FileName returns the name of the report file for date (YYYY-MM-DD).
func FileName(date string) string {
	return date + fileSuffix
}

// Encode renders r as indented JSON without escaping HTML or non-ASCII characters.
func Encode(r model.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write stores r in dir, creating it when missing, and returns the file name used.
func Write(dir string, r model.Report) (string, error) {
	b, err := Encode(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	name := FileName(r.Metadata.Date)
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return name, nil
}

// Symlink points dir/sparql-available.json at fileName, replacing any previous link.
// The link target is relative so the directory can be moved or mounted elsewhere.
func Symlink(dir, fileName string) error {
	link := filepath.Join(dir, LatestFileName)
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove previous link: %w", err)
	}
	if err := os.Symlink(fileName, link); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// Read loads a report previously stored with Write. Links are followed.
func Read(path string) (model.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Report{}, err
	}
	var r model.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return model.Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}
