package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dataendpoint/internal/model"
	"dataendpoint/internal/repository"
)

// ReportPostgres is a PostgreSQL implementation of repository.ReportRepository.
type ReportPostgres struct {
	db *sql.DB
}

// NewReportPostgres creates a new ReportPostgres repository.
func NewReportPostgres(db *sql.DB) *ReportPostgres {
	return &ReportPostgres{db: db}
}

var _ repository.ReportRepository = (*ReportPostgres)(nil)

const runColumns = `id, report_date, timeout_seconds, version, file_name, storage_key,
		total, available, invalid, unavailable, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.ReportRun, error) {
	var r model.ReportRun
	if err := row.Scan(
		&r.ID,
		&r.Report.Metadata.Date,
		&r.Report.Metadata.Timeout,
		&r.Report.Metadata.Version,
		&r.FileName,
		&r.StorageKey,
		&r.Counts.Total,
		&r.Counts.Available,
		&r.Counts.Invalid,
		&r.Counts.Unavailable,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts the run and its items in one transaction and returns the stored run.
func (r *ReportPostgres) Create(ctx context.Context, run *model.ReportRun) (*model.ReportRun, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const qRun = `
		INSERT INTO report_runs (id, report_date, timeout_seconds, version, file_name, storage_key,
			total, available, invalid, unavailable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + runColumns
	stored, err := scanRun(tx.QueryRowContext(ctx, qRun,
		run.ID,
		run.Report.Metadata.Date,
		run.Report.Metadata.Timeout,
		run.Report.Metadata.Version,
		run.FileName,
		run.StorageKey,
		run.Counts.Total,
		run.Counts.Available,
		run.Counts.Invalid,
		run.Counts.Unavailable,
		run.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	const qItem = `INSERT INTO report_items (run_id, position, endpoint, status) VALUES ($1, $2, $3, $4)`
	for i, it := range run.Report.Data {
		if _, err := tx.ExecContext(ctx, qItem, stored.ID, i, it.Endpoint, string(it.Status)); err != nil {
			return nil, fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	stored.Report.Data = make([]model.ReportItem, len(run.Report.Data))
	copy(stored.Report.Data, run.Report.Data)
	return stored, nil
}

// FindByID fetches a single run with its items.
func (r *ReportPostgres) FindByID(ctx context.Context, id string) (*model.ReportRun, error) {
	const q = `SELECT ` + runColumns + ` FROM report_runs WHERE id = $1`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// FindLatest fetches the newest run with its items.
func (r *ReportPostgres) FindLatest(ctx context.Context) (*model.ReportRun, error) {
	const q = `SELECT ` + runColumns + ` FROM report_runs ORDER BY created_at DESC, id DESC LIMIT 1`
	run, err := scanRun(r.db.QueryRowContext(ctx, q))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *ReportPostgres) loadItems(ctx context.Context, run *model.ReportRun) error {
	const q = `SELECT endpoint, status FROM report_items WHERE run_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, run.ID)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]model.ReportItem, 0, run.Counts.Total)
	for rows.Next() {
		var (
			it     model.ReportItem
			status string
		)
		if err := rows.Scan(&it.Endpoint, &status); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		if it.Status, err = model.ParseEndpointStatus(status); err != nil {
			return err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	run.Report.Data = items
	return nil
}

// List returns run summaries using LIMIT/OFFSET pagination and a total count.
func (r *ReportPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ReportRun], error) {
	const qCount = `SELECT COUNT(*) FROM report_runs`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + runColumns + `
		FROM report_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ReportRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.ReportRun]{
		Items: items,
		Total: total,
	}, nil
}
