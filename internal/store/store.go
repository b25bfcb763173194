// Package store defines the persistence contracts used by ingestion and
// categorization. Implementations live in the memstore and sqlite packages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrNotFound is returned by lookups that find no row.
var ErrNotFound = errors.New("not found")

// TransactionStore persists ledger entries keyed by Transaction.ID.
type TransactionStore interface {
	// UpsertTransaction inserts txn or replaces the row with the same ID.
	UpsertTransaction(ctx context.Context, txn model.Transaction) error
	// GetTransaction returns ErrNotFound when no row has the ID.
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	// DeleteTransaction removes the row with the ID. Deleting a missing ID is
	// not an error.
	DeleteTransaction(ctx context.Context, id string) error
	// ListTransactionsSince returns rows with OccurredAt >= since, oldest first.
	ListTransactionsSince(ctx context.Context, since time.Time) ([]model.Transaction, error)
	// ListUncategorized returns uncategorized rows for one counterparty and direction.
	ListUncategorized(ctx context.Context, counterpartyID string, dir model.Direction) ([]model.Transaction, error)
}

// MessageLedger records which raw messages have been consumed.
type MessageLedger interface {
	MarkMessageProcessed(ctx context.Context, externalID string) error
	IsMessageProcessed(ctx context.Context, externalID string) (bool, error)
}

// MappingStore holds learned counterparty categories.
type MappingStore interface {
	// GetCategoryForCounterparty returns ErrNotFound when nothing was learned.
	GetCategoryForCounterparty(ctx context.Context, counterpartyID string, dir model.Direction) (model.CategoryMapping, error)
	SaveCategoryForCounterparty(ctx context.Context, m model.CategoryMapping) error
}

// Store is everything the ingestion pipeline needs.
type Store interface {
	TransactionStore
	MessageLedger
	MappingStore
}
