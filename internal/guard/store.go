package guard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ledgerRecord is the persisted form of the rate-limit ledger, one row
// per protected action.
type ledgerRecord struct {
	bun.BaseModel `bun:"table:rate_ledger"`

	ID          int64     `bun:",pk,autoincrement"`
	Action      string    `bun:",notnull,unique"`
	WindowStart time.Time `bun:",nullzero"`
	Failures    int       `bun:",notnull"`
	LastRequest time.Time `bun:",nullzero"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// SQLStore persists the ledger in sqlite so a lockout survives restarts.
type SQLStore struct {
	db     *bun.DB
	action string
}

// OpenStore opens (and if needed creates) the ledger table at dsn.
// The action name scopes the row; distinct protected actions get distinct
// ledgers in the same database.
func OpenStore(ctx context.Context, dsn, action string) (*SQLStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("guard: opening ledger db: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().Model((*ledgerRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("guard: creating ledger table: %w", err)
	}

	return &SQLStore{db: db, action: action}, nil
}

// Load returns the persisted ledger for the store's action, with ok=false
// when no row exists yet.
func (s *SQLStore) Load(ctx context.Context) (Ledger, bool, error) {
	var rec ledgerRecord
	err := s.db.NewSelect().
		Model(&rec).
		Where("action = ?", s.action).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Ledger{}, false, nil
	}
	if err != nil {
		return Ledger{}, false, fmt.Errorf("guard: loading ledger: %w", err)
	}

	return Ledger{
		WindowStart: rec.WindowStart,
		Failures:    rec.Failures,
		LastRequest: rec.LastRequest,
	}, true, nil
}

// Save upserts the ledger row for the store's action.
func (s *SQLStore) Save(ctx context.Context, ledger Ledger) error {
	rec := &ledgerRecord{
		Action:      s.action,
		WindowStart: ledger.WindowStart,
		Failures:    ledger.Failures,
		LastRequest: ledger.LastRequest,
		UpdatedAt:   time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (action) DO UPDATE").
		Set("window_start = EXCLUDED.window_start").
		Set("failures = EXCLUDED.failures").
		Set("last_request = EXCLUDED.last_request").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("guard: saving ledger: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
