// Package history persists identification results so callers can review
// past identifications.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fieldguide/internal/model"
)

const defaultLimit = 100

// Filter narrows a history listing.
type Filter struct {
	Category model.Category `json:"category,omitempty"`
	Limit    int            `json:"limit,omitempty"`
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultLimit
	}
	return f.Limit
}

// Store defines the persistence interface for identification history.
type Store interface {
	// Append stores a record, assigning an ID and timestamp when unset.
	Append(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error)
	// List returns records newest first.
	List(ctx context.Context, filter Filter) ([]model.HistoryRecord, error)
	Clear(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options configures a store opened by Open.
type Options struct {
	Driver      string
	DatabaseURL string
	// MaxRecords caps the stored history; older records are pruned on append.
	// Zero keeps everything.
	MaxRecords int
}

// Open creates and migrates the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Driver {
	case "", "memory":
		s = NewMemory(opts.MaxRecords)
	case "sqlite":
		s, err = NewSQLite(opts.DatabaseURL, opts.MaxRecords)
	case "postgres":
		s, err = NewPostgres(ctx, opts.DatabaseURL, opts.MaxRecords)
	default:
		return nil, eris.Errorf("history: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// prepare fills the ID, timestamp and category of a record about to be stored.
func prepare(rec model.HistoryRecord) model.HistoryRecord {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Category == "" {
		rec.Category = rec.Result.Category
	}
	return rec
}
