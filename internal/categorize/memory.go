// Package categorize implements the learned counterparty category memory.
//
// A mapping is keyed by (counterparty, direction). It is written when a user
// categorizes a transaction and is never deleted; saving a mapping back-fills
// every uncategorized transaction with the same key.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// Store is the subset of store.Store the memory needs.
type Store interface {
	store.TransactionStore
	store.MappingStore
}

// Memory reads and writes counterparty category mappings.
type Memory struct {
	store Store
	now   func() time.Time
}

// New creates a Memory over s.
func New(s Store) *Memory {
	return &Memory{store: s, now: time.Now}
}

// Lookup returns the learned category for a counterparty and direction.
// ok is false when nothing has been learned yet.
func (m *Memory) Lookup(ctx context.Context, counterpartyID string, dir model.Direction) (string, bool, error) {
	if counterpartyID == "" {
		return "", false, nil
	}
	mapping, err := m.store.GetCategoryForCounterparty(ctx, counterpartyID, dir)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up category for %s/%s: %w", counterpartyID, dir, err)
	}
	return mapping.CategoryID, true, nil
}

// SaveMapping upserts the mapping and back-fills uncategorized transactions
// with the same counterparty and direction. It returns how many were filled.
func (m *Memory) SaveMapping(ctx context.Context, counterpartyID string, dir model.Direction, categoryID string) (int, error) {
	if counterpartyID == "" {
		return 0, fmt.Errorf("saving mapping: empty counterparty")
	}
	if !dir.Valid() {
		return 0, fmt.Errorf("saving mapping: invalid direction %q", dir)
	}
	if categoryID == "" {
		return 0, fmt.Errorf("saving mapping: empty category")
	}

	err := m.store.SaveCategoryForCounterparty(ctx, model.CategoryMapping{
		CounterpartyID: counterpartyID,
		Direction:      dir,
		CategoryID:     categoryID,
		LastSeenAt:     m.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("saving mapping for %s/%s: %w", counterpartyID, dir, err)
	}

	pending, err := m.store.ListUncategorized(ctx, counterpartyID, dir)
	if err != nil {
		return 0, fmt.Errorf("listing uncategorized for %s/%s: %w", counterpartyID, dir, err)
	}
	filled := 0
	for _, txn := range pending {
		txn.CategoryID = categoryID
		if err := m.store.UpsertTransaction(ctx, txn); err != nil {
			return filled, fmt.Errorf("back-filling %s: %w", txn.ID, err)
		}
		filled++
	}
	return filled, nil
}

// Categorize sets the category of one transaction and learns the mapping for
// its counterparty. Credit and fee rows are categorized without learning a
// mapping. It returns the number of other transactions back-filled.
func (m *Memory) Categorize(ctx context.Context, txnID, categoryID string) (int, error) {
	if categoryID == "" {
		return 0, fmt.Errorf("categorizing %s: empty category", txnID)
	}
	txn, err := m.store.GetTransaction(ctx, txnID)
	if err != nil {
		return 0, fmt.Errorf("categorizing %s: %w", txnID, err)
	}

	txn.CategoryID = categoryID
	if err := m.store.UpsertTransaction(ctx, txn); err != nil {
		return 0, fmt.Errorf("categorizing %s: %w", txnID, err)
	}

	if txn.Kind != model.KindStandard || txn.CounterpartyID == "" {
		return 0, nil
	}
	return m.SaveMapping(ctx, txn.CounterpartyID, txn.Direction, categoryID)
}
