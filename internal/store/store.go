package store

import (
	"context"

	"github.com/me/argowf/pkg/model"
)

// Store defines the persistence layer for the execution history.
type Store interface {
	// Execution history
	CreateExecution(ctx context.Context, rec *model.ExecutionRecord) error
	UpdateExecution(ctx context.Context, rec *model.ExecutionRecord) error
	GetExecution(ctx context.Context, namespace, name string) (*model.ExecutionRecord, error)
	ListExecutions(ctx context.Context, opts model.ListOptions) ([]*model.ExecutionRecord, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
