package memory

import (
	"context"
	"sort"
	"sync"

	"walletMonitor/internal/model"
	"walletMonitor/internal/storage"
)

// Store is an in-process Store used for tests and local runs.
type Store struct {
	mu        sync.RWMutex
	txs       []model.TransactionRecord
	bySig     map[string]struct{}
	alerts    map[string]model.AlertRecord
	insertErr error
	queryErr  error
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		bySig:  make(map[string]struct{}),
		alerts: make(map[string]model.AlertRecord),
	}
}

// FailInserts makes InsertTransaction return err until reset with nil.
func (s *Store) FailInserts(err error) {
	s.mu.Lock()
	s.insertErr = err
	s.mu.Unlock()
}

// FailQueries makes window queries return err until reset with nil.
func (s *Store) FailQueries(err error) {
	s.mu.Lock()
	s.queryErr = err
	s.mu.Unlock()
}

func (s *Store) InsertTransaction(ctx context.Context, rec model.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.bySig[rec.Signature]; ok {
		return storage.ErrDuplicate
	}
	s.bySig[rec.Signature] = struct{}{}
	s.txs = append(s.txs, rec)
	return nil
}

func (s *Store) HasOtherBuyer(ctx context.Context, window model.ConsensusWindow) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.queryErr != nil {
		return false, s.queryErr
	}
	for _, rec := range s.txs {
		if window.Matches(rec) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) WindowBuyers(ctx context.Context, window model.ConsensusWindow, limit int) ([]model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.queryErr != nil {
		return nil, s.queryErr
	}

	latest := make(map[string]model.TransactionRecord)
	for _, rec := range s.txs {
		if !window.Matches(rec) {
			continue
		}
		if cur, ok := latest[rec.Account]; !ok || rec.Timestamp > cur.Timestamp {
			latest[rec.Account] = rec
		}
	}

	out := make([]model.TransactionRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Account < out[j].Account
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) IncrementAlert(ctx context.Context, update model.AlertUpdate) (model.Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.alerts[update.TokenAddress]
	if !ok {
		prev = model.AlertRecord{TokenAddress: update.TokenAddress}
	}
	cur := model.AlertRecord{
		TokenAddress:         update.TokenAddress,
		Symbol:               update.Symbol,
		AlertCount:           prev.AlertCount + 1,
		MarketCapAtLastAlert: update.MarketCap,
		LastAlertedAt:        update.AlertedAt,
	}
	s.alerts[update.TokenAddress] = cur
	return model.Escalation{Previous: prev, Current: cur}, nil
}

func (s *Store) GetAlert(ctx context.Context, tokenAddress string) (model.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.alerts[tokenAddress]
	if !ok {
		return model.AlertRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

// Transactions returns a copy of all stored records in insertion order.
func (s *Store) Transactions() []model.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TransactionRecord, len(s.txs))
	copy(out, s.txs)
	return out
}
