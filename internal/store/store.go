package store

import (
	"context"
	"errors"
	"time"
)

// RunResult is one archived solver run.
type RunResult struct {
	ID          string    `json:"id"`
	Instance    string    `json:"instance"`
	Cost        float64   `json:"cost"`
	ElapsedSec  float64   `json:"elapsedSec"`
	Iterations  int       `json:"iterations"`
	Constructor string    `json:"constructor"`
	// Routes is the solution in route-string form, one depot-delimited
	// line per vehicle.
	Routes    string    `json:"routes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence interface for the run archive.
type Store interface {
	// SaveRunResult archives a finished run. A blank ID gets one assigned;
	// the assigned ID is returned.
	SaveRunResult(ctx context.Context, res RunResult) (string, error)
	// ListRunResults returns runs for an instance, newest first. limit <= 0
	// or > 500 means 100.
	ListRunResults(ctx context.Context, instance string, limit int) ([]RunResult, error)
	// BestRunResult returns the cheapest archived run for an instance.
	BestRunResult(ctx context.Context, instance string) (RunResult, error)
	Close() error
}

var ErrNotFound = errors.New("not found")
