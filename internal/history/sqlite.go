package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/fieldguide/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	max int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, maxRecords int) (*SQLiteStore, error) {
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, max: maxRecords}, nil
}

// created_at holds unix nanoseconds so ordering is exact.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	image_ref  TEXT NOT NULL DEFAULT '',
	location   TEXT,
	result     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
CREATE INDEX IF NOT EXISTS idx_history_category ON history(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	rec = prepare(rec)

	resultJSON, locJSON, err := marshalRecord(rec)
	if err != nil {
		return rec, eris.Wrap(err, "sqlite: marshal record")
	}

	var loc any
	if locJSON != nil {
		loc = string(locJSON)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, created_at, category, image_ref, location, result) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), string(rec.Category), rec.ImageRef, loc, string(resultJSON),
	)
	if err != nil {
		return rec, eris.Wrap(err, "sqlite: insert history")
	}

	if s.max > 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
			s.max,
		)
		if err != nil {
			return rec, eris.Wrap(err, "sqlite: prune history")
		}
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]model.HistoryRecord, error) {
	query := `SELECT id, created_at, category, image_ref, location, result FROM history WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.HistoryRecord{}
	for rows.Next() {
		var (
			rec        model.HistoryRecord
			nanos      int64
			category   string
			locJSON    sql.NullString
			resultJSON string
		)
		if err := rows.Scan(&rec.ID, &nanos, &category, &rec.ImageRef, &locJSON, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		rec.Timestamp = time.Unix(0, nanos).UTC()
		rec.Category = model.Category(category)

		var loc []byte
		if locJSON.Valid {
			loc = []byte(locJSON.String)
		}
		if err := unmarshalRecord(&rec, []byte(resultJSON), loc); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list history iterate")
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return eris.Wrap(err, "sqlite: clear history")
}

func marshalRecord(rec model.HistoryRecord) (result, loc []byte, err error) {
	result, err = json.Marshal(rec.Result)
	if err != nil {
		return nil, nil, err
	}
	if rec.Location != nil {
		loc, err = json.Marshal(rec.Location)
		if err != nil {
			return nil, nil, err
		}
	}
	return result, loc, nil
}

func unmarshalRecord(rec *model.HistoryRecord, result, loc []byte) error {
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return err
	}
	if len(loc) > 0 {
		rec.Location = &model.LocationData{}
		if err := json.Unmarshal(loc, rec.Location); err != nil {
			return err
		}
	}
	return nil
}
