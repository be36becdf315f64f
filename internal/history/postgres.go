package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fieldguide/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	max     int
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxRecords int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MinConns = 1
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
	return &PostgresStore{pool: pool, closeFn: pool.Close, max: maxRecords}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS identification_history (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	category   TEXT NOT NULL DEFAULT '',
	image_ref  TEXT NOT NULL DEFAULT '',
	location   JSONB,
	result     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_identification_history_created_at ON identification_history(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_identification_history_category ON identification_history(category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	rec = prepare(rec)

	resultJSON, locJSON, err := marshalRecord(rec)
	if err != nil {
		return rec, eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO identification_history (id, created_at, category, image_ref, location, result) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Timestamp, string(rec.Category), rec.ImageRef, locJSON, resultJSON,
	)
	if err != nil {
		return rec, eris.Wrap(err, "postgres: insert history")
	}

	if s.max > 0 {
		_, err = s.pool.Exec(ctx,
			`DELETE FROM identification_history WHERE id NOT IN (SELECT id FROM identification_history ORDER BY created_at DESC LIMIT $1)`,
			s.max,
		)
		if err != nil {
			return rec, eris.Wrap(err, "postgres: prune history")
		}
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]model.HistoryRecord, error) {
	query := `SELECT id, created_at, category, image_ref, location, result FROM identification_history WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, string(filter.Category))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	out := []model.HistoryRecord{}
	for rows.Next() {
		var (
			rec        model.HistoryRecord
			category   string
			locJSON    []byte
			resultJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &category, &rec.ImageRef, &locJSON, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		rec.Category = model.Category(category)
		if err := unmarshalRecord(&rec, resultJSON, locJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM identification_history`)
	return eris.Wrap(err, "postgres: clear history")
}
