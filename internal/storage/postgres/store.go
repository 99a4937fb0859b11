package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for transactions and alerts.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertTransaction stores a swap. A replayed signature yields storage.ErrDuplicate.
func (s *Store) InsertTransaction(ctx context.Context, rec model.TransactionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO txs (
			signature, account, token_in_address, token_out_address,
			amount_in, amount_out, timestamp, source_protocol
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.Signature,
		rec.Account,
		rec.TokenInAddress,
		rec.TokenOutAddress,
		rec.AmountIn.String(),
		rec.AmountOut.String(),
		rec.Timestamp,
		rec.SourceProtocol,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicate
		}
		return err
	}
	return nil
}

// HasOtherBuyer runs the window existence check with LIMIT 1.
func (s *Store) HasOtherBuyer(ctx context.Context, window model.ConsensusWindow) (bool, error) {
	var id int64
	row := s.pool.QueryRow(ctx, `
		SELECT id FROM txs
		WHERE token_out_address = $1 AND account <> $2 AND timestamp >= $3
		LIMIT 1
	`, window.TokenAddress, window.ExcludedAccount, window.Cutoff)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WindowBuyers returns the latest buy per account inside the window.
func (s *Store) WindowBuyers(ctx context.Context, window model.ConsensusWindow, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT * FROM (
			SELECT DISTINCT ON (account)
				signature, account, token_in_address, token_out_address,
				amount_in::text, amount_out::text, timestamp, source_protocol
			FROM txs
			WHERE token_out_address = $1 AND account <> $2 AND timestamp >= $3
			ORDER BY account, timestamp DESC
		) latest
		ORDER BY timestamp DESC, account
		LIMIT $4
	`, window.TokenAddress, window.ExcludedAccount, window.Cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TransactionRecord
	for rows.Next() {
		var rec model.TransactionRecord
		var amountIn, amountOut string
		if err := rows.Scan(
			&rec.Signature,
			&rec.Account,
			&rec.TokenInAddress,
			&rec.TokenOutAddress,
			&amountIn,
			&amountOut,
			&rec.Timestamp,
			&rec.SourceProtocol,
		); err != nil {
			return nil, err
		}
		if rec.AmountIn, err = decimal.NewFromString(amountIn); err != nil {
			return nil, fmt.Errorf("parse amount_in: %w", err)
		}
		if rec.AmountOut, err = decimal.NewFromString(amountOut); err != nil {
			return nil, fmt.Errorf("parse amount_out: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IncrementAlert upserts the alert counter in a single statement. The
// previous values are copied into prev_* columns by the same update so the
// caller sees a consistent before/after pair under concurrency.
func (s *Store) IncrementAlert(ctx context.Context, update model.AlertUpdate) (model.Escalation, error) {
	var (
		cur         model.AlertRecord
		prevSymbol  string
		prevMarket  float64
		prevAlerted *time.Time
	)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO alerts AS a (address, symbol, alert_num, marketcap, last_alerted_at, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $4, now(), now())
		ON CONFLICT (address)
		DO UPDATE SET
			prev_symbol = a.symbol,
			prev_marketcap = a.marketcap,
			prev_alerted_at = a.last_alerted_at,
			alert_num = a.alert_num + 1,
			symbol = EXCLUDED.symbol,
			marketcap = EXCLUDED.marketcap,
			last_alerted_at = EXCLUDED.last_alerted_at,
			updated_at = now()
		RETURNING alert_num, symbol, marketcap, last_alerted_at, prev_symbol, prev_marketcap, prev_alerted_at
	`, update.TokenAddress, update.Symbol, update.MarketCap, update.AlertedAt.UTC())
	if err := row.Scan(
		&cur.AlertCount,
		&cur.Symbol,
		&cur.MarketCapAtLastAlert,
		&cur.LastAlertedAt,
		&prevSymbol,
		&prevMarket,
		&prevAlerted,
	); err != nil {
		return model.Escalation{}, fmt.Errorf("increment alert: %w", err)
	}
	cur.TokenAddress = update.TokenAddress

	esc := model.Escalation{
		Previous: model.AlertRecord{TokenAddress: update.TokenAddress},
		Current:  cur,
	}
	if cur.AlertCount > 1 {
		esc.Previous.AlertCount = cur.AlertCount - 1
		esc.Previous.Symbol = prevSymbol
		esc.Previous.MarketCapAtLastAlert = prevMarket
		if prevAlerted != nil {
			esc.Previous.LastAlertedAt = *prevAlerted
		}
	}
	return esc, nil
}

// GetAlert reads the alert record for a token.
func (s *Store) GetAlert(ctx context.Context, tokenAddress string) (model.AlertRecord, error) {
	rec := model.AlertRecord{TokenAddress: tokenAddress}
	row := s.pool.QueryRow(ctx, `
		SELECT symbol, alert_num, marketcap, last_alerted_at FROM alerts WHERE address = $1
	`, tokenAddress)
	if err := row.Scan(&rec.Symbol, &rec.AlertCount, &rec.MarketCapAtLastAlert, &rec.LastAlertedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AlertRecord{}, storage.ErrNotFound
		}
		return model.AlertRecord{}, err
	}
	return rec, nil
}
