// Package repository archives completed runs and their HDR summaries.
package repository

import (
	"context"
	"time"

	"github.com/okian/bayesrate/internal/domain/types"
)

// Run is one archived run without its parameters.
type Run struct {
	ID         string
	Variant    string
	Topology   string
	StartedAt  time.Time
	Duration   time.Duration
	Records    int
	Chains     int
	Iterations int
	Seed       int64
	Image      string
}

// Store persists run summaries.
type Store interface {
	// SaveRun writes a run and all of its parameter summaries atomically.
	SaveRun(ctx context.Context, run *types.RunSummary) error

	// Runs lists archived runs newest first. An empty variant lists all.
	Runs(ctx context.Context, variant string, limit int) ([]Run, error)

	// Parameters returns the summaries of a run in processing order.
	// Returns ErrNotFound if the run is unknown.
	Parameters(ctx context.Context, runID string) ([]types.ParameterSummary, error)

	// Close releases the underlying database.
	Close() error
}
