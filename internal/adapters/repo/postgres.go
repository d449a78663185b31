package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
)

// Postgres implements the ledger contract on pgxpool. Appends use a
// conditional insert, so the store itself enforces the one-row-per-key
// invariant on top of the engine's existence check.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres builds the DB adapter.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ domain.LedgerStore = (*Postgres)(nil)

const undefinedTableCode = "42P01"

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
		return fmt.Errorf("%w: %v", domain.ErrSchemaMissing, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// EnsureSchema idempotently creates the progress table.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS progress_rows (
    day_number           int  NOT NULL,
    user_id              text NOT NULL,
    community            text NOT NULL,
    display_name         text NOT NULL DEFAULT '',
    observation_date     text NOT NULL DEFAULT '',
    observation_time     text NOT NULL DEFAULT '',
    observation_time_tz  text NOT NULL DEFAULT '',
    channel_name         text NOT NULL DEFAULT '',
    created_at           timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (day_number, user_id, community)
)
`)
	metrics.ObserveNetworkRequest("postgres", "progress_rows_ensure", "progress_rows", start, err)
	return classify(err)
}

// AppendRow inserts one row; a concurrent duplicate is silently absorbed by
// the key constraint.
func (p *Postgres) AppendRow(ctx context.Context, row domain.LedgerRow) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO progress_rows (day_number, user_id, community, display_name, observation_date, observation_time, observation_time_tz, channel_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (day_number, user_id, community) DO NOTHING
`, row.DayNumber, row.UserID, row.Community, row.DisplayName, row.ObservationDate, row.ObservationTime, row.ObservationTimeLabel, row.ChannelName)
	metrics.ObserveNetworkRequest("postgres", "progress_rows_insert", "progress_rows", start, err)
	return classify(err)
}

// FindRow returns the row with the given key, or nil.
func (p *Postgres) FindRow(ctx context.Context, key domain.LedgerKey) (*domain.LedgerRow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var row domain.LedgerRow
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT day_number, user_id, community, display_name, observation_date, observation_time, observation_time_tz, channel_name
FROM progress_rows WHERE day_number=$1 AND user_id=$2 AND community=$3
`, key.DayNumber, key.UserID, key.Community).Scan(&row.DayNumber, &row.UserID, &row.Community, &row.DisplayName, &row.ObservationDate, &row.ObservationTime, &row.ObservationTimeLabel, &row.ChannelName)
	metrics.ObserveNetworkRequest("postgres", "progress_rows_find", "progress_rows", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &row, nil
}

// DeleteRow removes the row with the given key.
func (p *Postgres) DeleteRow(ctx context.Context, key domain.LedgerKey) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
DELETE FROM progress_rows WHERE day_number=$1 AND user_id=$2 AND community=$3
`, key.DayNumber, key.UserID, key.Community)
	metrics.ObserveNetworkRequest("postgres", "progress_rows_delete", "progress_rows", start, err)
	if err != nil {
		return false, classify(err)
	}
	return res.RowsAffected() > 0, nil
}

// LoadAll returns every row.
func (p *Postgres) LoadAll(ctx context.Context) ([]domain.LedgerRow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT day_number, user_id, community, display_name, observation_date, observation_time, observation_time_tz, channel_name
FROM progress_rows ORDER BY day_number, user_id
`)
	metrics.ObserveNetworkRequest("postgres", "progress_rows_load_all", "progress_rows", start, err)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []domain.LedgerRow
	for rows.Next() {
		var r domain.LedgerRow
		if err := rows.Scan(&r.DayNumber, &r.UserID, &r.Community, &r.DisplayName, &r.ObservationDate, &r.ObservationTime, &r.ObservationTimeLabel, &r.ChannelName); err != nil {
			return nil, classify(err)
		}
		out = append(out, r)
	}
	return out, classify(rows.Err())
}
