package storage

import (
	"context"
	"errors"

	"walletMonitor/internal/model"
)

var (
	// ErrDuplicate is returned when a transaction signature is already stored.
	ErrDuplicate = errors.New("duplicate transaction signature")
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
)

// TransactionStore persists swaps and answers window queries.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, rec model.TransactionRecord) error
	// HasOtherBuyer reports whether at least one record matches the window.
	HasOtherBuyer(ctx context.Context, window model.ConsensusWindow) (bool, error)
	// WindowBuyers returns the latest record per account matching the window,
	// newest first.
	WindowBuyers(ctx context.Context, window model.ConsensusWindow, limit int) ([]model.TransactionRecord, error)
}

// AlertStore keeps per-token escalation counters.
type AlertStore interface {
	// IncrementAlert atomically creates the record with count 1 or adds one
	// to it, returning the values before and after.
	IncrementAlert(ctx context.Context, update model.AlertUpdate) (model.Escalation, error)
	GetAlert(ctx context.Context, tokenAddress string) (model.AlertRecord, error)
}

// Store is the full persistence surface used by the monitor.
type Store interface {
	TransactionStore
	AlertStore
}

// Journal records the outcome of every ingested event.
type Journal interface {
	Record(entry model.JournalEntry) error
}
