// Package store persists analysis runs and their envelope tables so past
// results can be listed, reopened, and served without recomputation.
package store

import (
	"context"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Dataset string          `json:"dataset,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	CreateRun(ctx context.Context, dataset string, params *model.AnalysisParams) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	SaveEnvelope(ctx context.Context, runID string, env *envelope.Envelope) error
	GetEnvelope(ctx context.Context, runID, name string) (*envelope.Envelope, error)

	Migrate(ctx context.Context) error
	Close() error
}
