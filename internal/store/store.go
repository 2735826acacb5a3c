// Package store persists compounds and their analysis runs. Two backends
// implement the same interface: embedded SQLite for single-user CLI use
// and Postgres for shared deployments.
package store

import (
	"context"
	"errors"

	"github.com/scentlab/accord/internal/model"
)

// ErrNotFound is returned when a compound or analysis does not exist.
// Callers test for it with errors.Is.
var ErrNotFound = errors.New("not found")

// CompoundFilter specifies criteria for listing compounds.
type CompoundFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for compounds and analyses.
type Store interface {
	// Compounds
	CreateCompound(ctx context.Context, name, description string, items []model.FormulaItem) (*model.Compound, error)
	GetCompound(ctx context.Context, id string) (*model.Compound, error)
	ListCompounds(ctx context.Context, filter CompoundFilter) ([]model.Compound, error)
	UpdateCompound(ctx context.Context, id, name, description string, items []model.FormulaItem) (*model.Compound, error)
	DeleteCompound(ctx context.Context, id string) error

	// Analyses
	CreateAnalysis(ctx context.Context, analysis model.Analysis) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, compoundID string) ([]model.Analysis, error)
	LatestAnalysis(ctx context.Context, compoundID string) (*model.Analysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
