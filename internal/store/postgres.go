package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

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

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	params     JSONB,
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_envelopes (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	data   JSONB NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, dataset string, params *model.AnalysisParams) (*model.Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Status:    model.RunRunning,
		Params:    params,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, dataset, status, params, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Dataset, string(run.Status), paramsJSON, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunCompleted), summaryJSON, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunFailed), msg, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: fail run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, dataset, status, params, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanRunPG(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, dataset, status, params, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Dataset != "" {
		args = append(args, filter.Dataset)
		query += ` AND dataset = $` + strconv.Itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRunPG(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) SaveEnvelope(ctx context.Context, runID string, env *envelope.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal envelope")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_envelopes (run_id, name, data) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, name) DO UPDATE SET data = EXCLUDED.data`,
		runID, env.Name, data,
	)
	return eris.Wrap(err, "postgres: save envelope")
}

func (s *PostgresStore) GetEnvelope(ctx context.Context, runID, name string) (*envelope.Envelope, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM run_envelopes WHERE run_id = $1 AND name = $2`,
		runID, name,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("postgres: no %s envelope for run %s", name, runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get envelope")
	}
	var env envelope.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal envelope")
	}
	return &env, nil
}

// scanRunPG reads one run row from a pgx row or rows cursor.
func scanRunPG(row pgx.Row) (*model.Run, error) {
	var run model.Run
	var params, summary []byte
	var errMsg *string
	err := row.Scan(&run.ID, &run.Dataset, &run.Status, &params, &summary, &errMsg, &run.CreatedAt, &run.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(err, "postgres: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if len(params) > 0 {
		run.Params = &model.AnalysisParams{}
		if err := json.Unmarshal(params, run.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
	}
	if len(summary) > 0 {
		run.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summary, run.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return &run, nil
}
