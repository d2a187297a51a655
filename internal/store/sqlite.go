package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	params     TEXT,
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_envelopes (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	data   TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, dataset string, params *model.AnalysisParams) (*model.Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Status:    model.RunRunning,
		Params:    params,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, status, params, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Status, string(paramsJSON), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		model.RunCompleted, string(summaryJSON), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: complete run")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		model.RunFailed, msg, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: fail run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, status, params, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row.Scan)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, params, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Dataset != "" {
		query += ` AND dataset = ?`
		args = append(args, filter.Dataset)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) SaveEnvelope(ctx context.Context, runID string, env *envelope.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal envelope")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_envelopes (run_id, name, data) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, name) DO UPDATE SET data = excluded.data`,
		runID, env.Name, string(data),
	)
	return eris.Wrap(err, "sqlite: save envelope")
}

func (s *SQLiteStore) GetEnvelope(ctx context.Context, runID, name string) (*envelope.Envelope, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM run_envelopes WHERE run_id = ? AND name = ?`,
		runID, name,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: no %s envelope for run %s", name, runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get envelope")
	}
	var env envelope.Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal envelope")
	}
	return &env, nil
}

// scanRun reads one run row; params/summary/error columns are nullable.
func scanRun(scan func(...any) error) (*model.Run, error) {
	var run model.Run
	var params, summary, errMsg sql.NullString
	if err := scan(&run.ID, &run.Dataset, &run.Status, &params, &summary, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(err, "store: run not found")
		}
		return nil, eris.Wrap(err, "store: scan run")
	}
	if params.Valid && params.String != "" {
		run.Params = &model.AnalysisParams{}
		if err := json.Unmarshal([]byte(params.String), run.Params); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal params")
		}
	}
	if summary.Valid && summary.String != "" {
		run.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summary.String), run.Summary); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal summary")
		}
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
