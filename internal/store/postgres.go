package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scentlab/accord/internal/model"
)

// Pool is the subset of pgxpool.Pool the store depends on. It is satisfied
// by pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS compounds (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	items       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	compound_id    TEXT NOT NULL REFERENCES compounds(id),
	model          TEXT NOT NULL,
	prompt_version TEXT NOT NULL,
	prompt_text    TEXT NOT NULL,
	raw_response   TEXT NOT NULL,
	result         JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_compounds_name ON compounds(name);
CREATE INDEX IF NOT EXISTS idx_analyses_compound_id ON analyses(compound_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateCompound(ctx context.Context, name, description string, items []model.FormulaItem) (*model.Compound, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal items")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO compounds (id, name, description, items, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, description, itemsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert compound")
	}

	return &model.Compound{
		ID:          id,
		Name:        name,
		Description: description,
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PostgresStore) GetCompound(ctx context.Context, id string) (*model.Compound, error) {
	var c model.Compound
	var itemsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, items, created_at, updated_at FROM compounds WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &itemsJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "compound %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get compound %s", id)
	}

	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal items")
	}
	return &c, nil
}

func (s *PostgresStore) ListCompounds(ctx context.Context, filter CompoundFilter) ([]model.Compound, error) {
	query := `SELECT id, name, description, items, created_at, updated_at FROM compounds WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Search != "" {
		query += fmt.Sprintf(` AND name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list compounds")
	}
	defer rows.Close()

	var compounds []model.Compound
	for rows.Next() {
		var c model.Compound
		var itemsJSON []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &itemsJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan compound")
		}
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal items")
		}
		compounds = append(compounds, c)
	}
	return compounds, eris.Wrap(rows.Err(), "postgres: list compounds iterate")
}

func (s *PostgresStore) UpdateCompound(ctx context.Context, id, name, description string, items []model.FormulaItem) (*model.Compound, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal items")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE compounds SET name = $1, description = $2, items = $3, updated_at = $4 WHERE id = $5`,
		name, description, itemsJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update compound %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "compound %s", id)
	}
	return s.GetCompound(ctx, id)
}

// DeleteCompound removes a compound and its analyses in one transaction.
func (s *PostgresStore) DeleteCompound(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM analyses WHERE compound_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete analyses for compound %s", id)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM compounds WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete compound %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "compound %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete")
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, analysis model.Analysis) (*model.Analysis, error) {
	analysis.ID = uuid.New().String()
	analysis.CreatedAt = time.Now().UTC()

	var resultJSON []byte
	if analysis.Result != nil {
		data, err := json.Marshal(analysis.Result)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal result")
		}
		resultJSON = data
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		analysis.ID, analysis.CompoundID, analysis.Model, analysis.PromptVersion,
		analysis.PromptText, analysis.RawResponse, resultJSON, analysis.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for compound %s", analysis.CompoundID)
	}
	return &analysis, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, compoundID string) ([]model.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at
		 FROM analyses WHERE compound_id = $1 ORDER BY created_at DESC`,
		compoundID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanPgAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) LatestAnalysis(ctx context.Context, compoundID string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at
		 FROM analyses WHERE compound_id = $1 ORDER BY created_at DESC LIMIT 1`,
		compoundID,
	)
	a, err := scanPgAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "analysis for compound %s", compoundID)
	}
	return a, err
}

func scanPgAnalysis(row pgx.Row) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON []byte

	err := row.Scan(&a.ID, &a.CompoundID, &a.Model, &a.PromptVersion,
		&a.PromptText, &a.RawResponse, &resultJSON, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan analysis")
	}

	if len(resultJSON) > 0 {
		a.Result = &model.AnalysisResult{}
		if err := json.Unmarshal(resultJSON, a.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &a, nil
}
