package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scentlab/accord/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS compounds (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	items       TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	compound_id    TEXT NOT NULL REFERENCES compounds(id),
	model          TEXT NOT NULL,
	prompt_version TEXT NOT NULL,
	prompt_text    TEXT NOT NULL,
	raw_response   TEXT NOT NULL,
	result         TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_compounds_name ON compounds(name);
CREATE INDEX IF NOT EXISTS idx_analyses_compound_id ON analyses(compound_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCompound(ctx context.Context, name, description string, items []model.FormulaItem) (*model.Compound, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal items")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO compounds (id, name, description, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, description, string(itemsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert compound")
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

func (s *SQLiteStore) GetCompound(ctx context.Context, id string) (*model.Compound, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, items, created_at, updated_at FROM compounds WHERE id = ?`,
		id,
	)
	return scanCompound(row)
}

func (s *SQLiteStore) ListCompounds(ctx context.Context, filter CompoundFilter) ([]model.Compound, error) {
	query := `SELECT id, name, description, items, created_at, updated_at FROM compounds WHERE 1=1`
	var args []any

	if filter.Search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list compounds")
	}
	defer rows.Close()

	var compounds []model.Compound
	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return nil, err
		}
		compounds = append(compounds, *c)
	}
	return compounds, eris.Wrap(rows.Err(), "sqlite: list compounds iterate")
}

func (s *SQLiteStore) UpdateCompound(ctx context.Context, id, name, description string, items []model.FormulaItem) (*model.Compound, error) {
	now := time.Now().UTC()

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal items")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE compounds SET name = ?, description = ?, items = ?, updated_at = ? WHERE id = ?`,
		name, description, string(itemsJSON), now, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update compound %s", id)
	}
	if err := checkRowsAffected(res, "compound", id); err != nil {
		return nil, err
	}
	return s.GetCompound(ctx, id)
}

// DeleteCompound removes a compound and its analyses in one transaction.
func (s *SQLiteStore) DeleteCompound(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE compound_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete analyses for compound %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM compounds WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete compound %s", id)
	}
	if err := checkRowsAffected(res, "compound", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, analysis model.Analysis) (*model.Analysis, error) {
	analysis.ID = uuid.New().String()
	analysis.CreatedAt = time.Now().UTC()

	var resultJSON sql.NullString
	if analysis.Result != nil {
		data, err := json.Marshal(analysis.Result)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal result")
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.CompoundID, analysis.Model, analysis.PromptVersion,
		analysis.PromptText, analysis.RawResponse, resultJSON, analysis.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for compound %s", analysis.CompoundID)
	}
	return &analysis, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, compoundID string) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at
		 FROM analyses WHERE compound_id = ? ORDER BY created_at DESC`,
		compoundID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) LatestAnalysis(ctx context.Context, compoundID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, compound_id, model, prompt_version, prompt_text, raw_response, result, created_at
		 FROM analyses WHERE compound_id = ? ORDER BY created_at DESC LIMIT 1`,
		compoundID,
	)
	return scanAnalysis(row)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompound(row scannable) (*model.Compound, error) {
	var c model.Compound
	var itemsJSON string

	err := row.Scan(&c.ID, &c.Name, &c.Description, &itemsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "compound")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan compound")
	}

	if err := json.Unmarshal([]byte(itemsJSON), &c.Items); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal items")
	}
	return &c, nil
}

func scanAnalysis(row scannable) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON sql.NullString

	err := row.Scan(&a.ID, &a.CompoundID, &a.Model, &a.PromptVersion,
		&a.PromptText, &a.RawResponse, &resultJSON, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "analysis")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	if resultJSON.Valid {
		a.Result = &model.AnalysisResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), a.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &a, nil
}
