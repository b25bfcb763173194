// Package memstore is an in-memory store.Store used by tests and dry runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

type mappingKey struct {
	counterpartyID string
	dir            model.Direction
}

// Store keeps all state in maps guarded by a RWMutex.
type Store struct {
	mu        sync.RWMutex
	txns      map[string]model.Transaction
	processed map[string]bool
	mappings  map[mappingKey]model.CategoryMapping
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		txns:      make(map[string]model.Transaction),
		processed: make(map[string]bool),
		mappings:  make(map[mappingKey]model.CategoryMapping),
	}
}

func (s *Store) UpsertTransaction(_ context.Context, txn model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return model.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txns, id)
	return nil
}

func (s *Store) ListTransactionsSince(_ context.Context, since time.Time) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Transaction
	for _, t := range s.txns {
		if !t.OccurredAt.Before(since) {
			result = append(result, t)
		}
	}
	sortTransactions(result)
	return result, nil
}

func (s *Store) ListUncategorized(_ context.Context, counterpartyID string, dir model.Direction) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Transaction
	for _, t := range s.txns {
		if t.CounterpartyID == counterpartyID && t.Direction == dir && !t.Categorized() {
			result = append(result, t)
		}
	}
	sortTransactions(result)
	return result, nil
}

func (s *Store) MarkMessageProcessed(_ context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[externalID] = true
	return nil
}

func (s *Store) IsMessageProcessed(_ context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed[externalID], nil
}

func (s *Store) GetCategoryForCounterparty(_ context.Context, counterpartyID string, dir model.Direction) (model.CategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[mappingKey{counterpartyID, dir}]
	if !ok {
		return model.CategoryMapping{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) SaveCategoryForCounterparty(_ context.Context, m model.CategoryMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mappingKey{m.CounterpartyID, m.Direction}] = m
	return nil
}

func sortTransactions(txns []model.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].OccurredAt.Equal(txns[j].OccurredAt) {
			return txns[i].OccurredAt.Before(txns[j].OccurredAt)
		}
		return txns[i].ID < txns[j].ID
	})
}
