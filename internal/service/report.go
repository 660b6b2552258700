package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dataendpoint/internal/logger"
	"dataendpoint/internal/model"
	"dataendpoint/internal/report"
	"dataendpoint/internal/repository"
	"dataendpoint/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("report not found")
	ErrHistoryDisabled = errors.New("report history is not configured")
	ErrStorageDisabled = errors.New("report storage is not configured")
	ErrRunInProgress   = errors.New("a report run is already in progress")
	ErrSourceRequired  = errors.New("sparql endpoints source is required")
	ErrOutputRequired  = errors.New("output directory is required")
)

var tracer trace.Tracer = otel.Tracer("dataendpoint/internal/service")

const (
	reportContentType = "application/json; charset=utf-8"
	defaultCacheSize  = 64
)

// EndpointLister yields the endpoints to check. *source.Lister satisfies it.
type EndpointLister interface {
	ListEndpoints(ctx context.Context, location string) ([]string, error)
}

// EndpointProber classifies endpoints. *sparql.Prober satisfies it.
type EndpointProber interface {
	ProbeAll(ctx context.Context, endpoints []string) []model.ReportItem
	Timeout() time.Duration
}

// RunRecorder is notified when a run ends. *metrics.Probe satisfies it.
type RunRecorder interface {
	ObserveRun(err error, at time.Time)
}

// CreateOptions selects where endpoints are read from and where the report goes.
type CreateOptions struct {
	Source          string
	OutputDirectory string
	Symlink         bool
}

// ReportListResult is the service-level DTO for paginated runs.
type ReportListResult struct {
	Items []model.ReportRun `json:"data"`
	Total int               `json:"total"`
}

// ReportService defines the use cases around accessibility reports.
type ReportService interface {
	// Create lists, probes, writes and then optionally publishes and stores a report.
	Create(ctx context.Context, opts CreateOptions) (*model.ReportRun, error)

	// Get returns a stored run by ID.
	Get(ctx context.Context, id string) (*model.ReportRun, error)

	// Latest returns the most recent stored run.
	Latest(ctx context.Context) (*model.ReportRun, error)

	// List returns stored run summaries using limit and offset.
	List(ctx context.Context, limit, offset int) (*ReportListResult, error)

	// DownloadURL returns a pre-signed URL for the published document of run id.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

type reportService struct {
	lister   EndpointLister
	prober   EndpointProber
	store    storage.Storage
	repo     repository.ReportRepository
	recorder RunRecorder
	cache    *lru.Cache[string, *model.ReportRun]
	now      func() time.Time

	// running serializes runs; they share the output directory and link.
	running sync.Mutex
}

// Option configures the report service.
type Option func(*reportService)

// WithStorage publishes every report to s.
func WithStorage(s storage.Storage) Option {
	return func(r *reportService) { r.store = s }
}

// WithRepository stores every run in repo and enables the read operations.
func WithRepository(repo repository.ReportRepository) Option {
	return func(r *reportService) { r.repo = repo }
}

// WithRunRecorder reports the outcome of every run.
func WithRunRecorder(rec RunRecorder) Option {
	return func(r *reportService) { r.recorder = rec }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *reportService) { r.now = now }
}

// NewReportService constructs a ReportService.
func NewReportService(lister EndpointLister, prober EndpointProber, opts ...Option) ReportService {
	cache, _ := lru.New[string, *model.ReportRun](defaultCacheSize)
	s := &reportService{
		lister: lister,
		prober: prober,
		cache:  cache,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create runs one report. A cancelled context stops the run before anything
// is written. When storing the run fails after publishing, only the dated
// object is removed; the latest object keeps the unstored report.
func (s *reportService) Create(ctx context.Context, opts CreateOptions) (run *model.ReportRun, err error) {
	if opts.Source == "" {
		return nil, ErrSourceRequired
	}
	if opts.OutputDirectory == "" {
		return nil, ErrOutputRequired
	}
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	ctx, span := tracer.Start(ctx, "ReportService.Create",
		trace.WithAttributes(attribute.String("report.source", opts.Source)))
	log := logger.FromContext(ctx).With("source", opts.Source)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("report.endpoints", run.Counts.Total),
				attribute.Int("report.available", run.Counts.Available),
			)
		}
		span.End()
		if s.recorder != nil {
			s.recorder.ObserveRun(err, s.now())
		}
	}()

	endpoints, err := s.lister.ListEndpoints(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	log.Debug("endpoints listed", "count", len(endpoints))

	items := s.prober.ProbeAll(ctx, endpoints)
	// Probes cut short by cancellation read as unavailable; such a report is discarded.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("probe endpoints: %w", err)
	}
	doc := report.Build(items, s.now(), s.prober.Timeout())

	fileName, err := report.Write(opts.OutputDirectory, doc)
	if err != nil {
		return nil, err
	}
	log.Info("report written", "directory", opts.OutputDirectory, "file", fileName)

	if opts.Symlink {
		if err := report.Symlink(opts.OutputDirectory, fileName); err != nil {
			return nil, fmt.Errorf("symlink report: %w", err)
		}
	}

	run = &model.ReportRun{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Counts:    doc.Counts(),
		Report:    doc,
		CreatedAt: s.now().UTC(),
	}

	if s.store != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("publish report: %w", err)
		}
		if run.StorageKey, err = s.publish(ctx, log, fileName, doc); err != nil {
			return nil, err
		}
	}

	if s.repo != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("store run: %w", err)
		}
		stored, err := s.repo.Create(ctx, run)
		if err != nil {
			if run.StorageKey != "" {
				log.Warn("run not stored; published latest object now refers to it",
					"key", storage.ReportKey(report.LatestFileName), "error", err)
				if delErr := s.store.Delete(ctx, run.StorageKey); delErr != nil {
					return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
				}
			}
			return nil, fmt.Errorf("db save failed: %w", err)
		}
		run = stored
		s.cache.Add(run.ID, run)
	}

	log.Info("report run finished",
		"run_id", run.ID,
		"total", run.Counts.Total,
		"available", run.Counts.Available,
		"invalid", run.Counts.Invalid,
		"unavailable", run.Counts.Unavailable,
	)
	return run, nil
}

// publish uploads the dated document and refreshes the stable latest object.
func (s *reportService) publish(ctx context.Context, log *slog.Logger, fileName string, doc model.Report) (string, error) {
	b, err := report.Encode(doc)
	if err != nil {
		return "", err
	}
	key := storage.ReportKey(fileName)
	opt := storage.PutObjectOptions{
		Size:        int64(len(b)),
		ContentType: reportContentType,
		Metadata:    map[string]string{"report-date": doc.Metadata.Date},
	}
	if _, err := s.store.Put(ctx, key, bytes.NewReader(b), opt); err != nil {
		return "", fmt.Errorf("upload to storage: %w", err)
	}
	if _, err := s.store.Put(ctx, storage.ReportKey(report.LatestFileName), bytes.NewReader(b), opt); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return "", fmt.Errorf("upload latest: %v; rollback delete failed: %v", err, delErr)
		}
		return "", fmt.Errorf("upload latest: %w", err)
	}
	log.Info("report published", "key", key)
	return key, nil
}

// Get returns a run by ID.
func (s *reportService) Get(ctx context.Context, id string) (*model.ReportRun, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if run, ok := s.cache.Get(id); ok {
		return run, nil
	}
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.cache.Add(id, run)
	return run, nil
}

// Latest returns the newest run.
func (s *reportService) Latest(ctx context.Context) (*model.ReportRun, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	run, err := s.repo.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns paginated run summaries without exposing repository types.
func (s *reportService) List(ctx context.Context, limit, offset int) (*ReportListResult, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ReportListResult{Items: res.Items, Total: res.Total}, nil
}

// DownloadURL presigns the published document of a run.
func (s *reportService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	run, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if run.StorageKey == "" {
		return "", ErrNotFound
	}
	return s.store.PresignGet(ctx, run.StorageKey, expiry)
}
