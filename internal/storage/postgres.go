package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/shopspring/decimal"
)

const (
	insertSnapshotSQL = `
		INSERT INTO treasury_snapshots
		(recorded_at, guild_bank_value, exchange_rate, total_shares, share_value, members, proposals)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	recentSnapshotsSQL = `
		SELECT id, recorded_at, guild_bank_value, exchange_rate, total_shares, share_value, members, proposals
		FROM treasury_snapshots
		ORDER BY recorded_at DESC
		LIMIT $1`
)

// MaxHistory caps RecentSnapshots.
const MaxHistory = 1000

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool, now: time.Now}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertSnapshot stores snap and returns its id.
func (s *Store) InsertSnapshot(ctx context.Context, snap TreasurySnapshot) (int64, error) {
	if snap.GuildBankValue == nil || snap.ShareValue == nil {
		return 0, errors.New("snapshot amounts are required")
	}

	var id int64
	err := s.pool.QueryRow(ctx, insertSnapshotSQL,
		snap.RecordedAt,
		decimal.NewFromBigInt(snap.GuildBankValue, 0),
		snap.ExchangeRate,
		decimal.NewFromUint64(snap.TotalShares),
		decimal.NewFromBigInt(snap.ShareValue, 0),
		snap.Members,
		snap.Proposals,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot failed: %w", err)
	}
	return id, nil
}

// RecordSnapshot stores the treasury figures of a Ready view state.
func (s *Store) RecordSnapshot(ctx context.Context, state dashboard.ViewState) error {
	if state.Phase != dashboard.PhaseReady {
		return nil
	}
	_, err := s.InsertSnapshot(ctx, SnapshotFromView(state, s.now()))
	return err
}

// RecentSnapshots returns up to limit snapshots, newest first.
func (s *Store) RecentSnapshots(ctx context.Context, limit int) ([]TreasurySnapshot, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	rows, err := s.pool.Query(ctx, recentSnapshotsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots failed: %w", err)
	}
	defer rows.Close()

	var snapshots []TreasurySnapshot
	for rows.Next() {
		var (
			snap                               TreasurySnapshot
			bankValue, totalShares, shareValue decimal.Decimal
		)
		if err := rows.Scan(
			&snap.ID,
			&snap.RecordedAt,
			&bankValue,
			&snap.ExchangeRate,
			&totalShares,
			&shareValue,
			&snap.Members,
			&snap.Proposals,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot failed: %w", err)
		}
		snap.GuildBankValue = bankValue.BigInt()
		snap.ShareValue = shareValue.BigInt()
		snap.TotalShares = totalShares.BigInt().Uint64()
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshots failed: %w", err)
	}
	return snapshots, nil
}
