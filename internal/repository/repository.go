// Package repository contains data access abstractions for report history.
// Implementations live in subpackages (e.g. postgres).
package repository

import (
	"context"

	"dataendpoint/internal/model"
)

// ReportRepository stores report runs and their items. No business logic here.
type ReportRepository interface {
	// Create stores run and its report items atomically.
	Create(ctx context.Context, run *model.ReportRun) (*model.ReportRun, error)

	// FindByID returns a run with its items. sql.ErrNoRows when missing.
	FindByID(ctx context.Context, id string) (*model.ReportRun, error)

	// FindLatest returns the most recent run with its items. sql.ErrNoRows when there is none.
	FindLatest(ctx context.Context) (*model.ReportRun, error)

	// List returns run summaries (without items), newest first, and the total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.ReportRun], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
