// Package ingest turns raw carrier messages into ledger transactions.
//
// Each message is visited at most once: after it has been handled it is
// recorded in the store's processed-message ledger, whatever the extraction
// outcome. Writes are upserts keyed by transaction ID, so replaying a message
// that was never marked is harmless.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/categorize"
	"github.com/cleared-dev/tally/internal/extract"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/overdraft"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrPersistence wraps every store failure returned by Run.
var ErrPersistence = errors.New("persistence failure")

// RuleLister supplies the automation rules in evaluation order.
type RuleLister interface {
	ListRules() ([]model.AutomationRule, error)
}

// Result counts what one Run did.
type Result struct {
	Scanned         int // messages looked at
	Skipped         int // already processed
	Unrecognized    int // matched no grammar or failed validation
	NewTransactions int // IDs not present before this run
	Updated         int // existing IDs rewritten
	CreditEvents    int
	FeeMonths       int       // fee rows written by the refresh
	Latest          time.Time // newest message timestamp scanned
}

// Pipeline ingests message batches into a store.
type Pipeline struct {
	store       store.Store
	rules       RuleLister
	extractor   *extract.Extractor
	engine      *rules.Engine
	memory      *categorize.Memory
	loc         *time.Location
	now         func() time.Time
	feeCategory string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRules sets the rule source consulted when memory has no mapping.
func WithRules(r RuleLister) Option {
	return func(p *Pipeline) { p.rules = r }
}

// WithFeeCategory sets the category given to new monthly fee rows.
func WithFeeCategory(id string) Option {
	return func(p *Pipeline) { p.feeCategory = id }
}

// WithClock replaces time.Now as the simulator's as-of time.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithExtractor replaces the built-in grammars.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// New creates a Pipeline over s. Message times and fee months use loc.
func New(s store.Store, loc *time.Location, opts ...Option) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	p := &Pipeline{
		store:     s,
		extractor: extract.Default(loc),
		engine:    rules.NewEngine(loc),
		memory:    categorize.New(s),
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests msgs in order. It stops at the first store failure and returns
// it wrapped in ErrPersistence; the failing message is left unmarked so the
// next run retries it. Whenever credit events were stored, including on a
// failed run, fee rows are recomputed from the full credit history.
func (p *Pipeline) Run(ctx context.Context, msgs []model.RawMessage) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	var ruleSet []model.AutomationRule
	if p.rules != nil {
		var err error
		if ruleSet, err = p.rules.ListRules(); err != nil {
			return res, fmt.Errorf("loading rules: %w", err)
		}
	}

	var runErr error
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		res.Scanned++
		if msg.Timestamp.After(res.Latest) {
			res.Latest = msg.Timestamp
		}

		done, err := p.store.IsMessageProcessed(ctx, msg.ExternalID)
		if err != nil {
			runErr = fmt.Errorf("%w: checking message %s: %w", ErrPersistence, msg.ExternalID, err)
			break
		}
		if done {
			res.Skipped++
			continue
		}

		if err := p.handle(ctx, log, msg, ruleSet, &res); err != nil {
			runErr = err
			break
		}

		if err := p.store.MarkMessageProcessed(ctx, msg.ExternalID); err != nil {
			runErr = fmt.Errorf("%w: marking message %s: %w", ErrPersistence, msg.ExternalID, err)
			break
		}
	}

	if res.CreditEvents > 0 {
		n, err := p.RefreshFees(ctx)
		res.FeeMonths = n
		runErr = errors.Join(runErr, err)
	}

	level := zerolog.InfoLevel
	if runErr != nil {
		level = zerolog.ErrorLevel
	}
	log.WithLevel(level).Err(runErr).
		Int("scanned", res.Scanned).
		Int("skipped", res.Skipped).
		Int("unrecognized", res.Unrecognized).
		Int("new", res.NewTransactions).
		Int("credit_events", res.CreditEvents).
		Int("fee_months", res.FeeMonths).
		Msg("ingest finished")
	return res, runErr
}

func (p *Pipeline) handle(ctx context.Context, log zerolog.Logger, msg model.RawMessage, ruleSet []model.AutomationRule, res *Result) error {
	ev, reason := p.extractor.Parse(msg.Body)

	var txn model.Transaction
	switch e := ev.(type) {
	case model.StandardTransaction:
		txn = e.Transaction(msg.Body)
	case model.CreditDrawdown:
		txn = e.Transaction(msg.Body)
	case model.CreditRepayment:
		txn = e.Transaction(msg.Body)
	default:
		res.Unrecognized++
		if reason != nil {
			log.Warn().Err(reason).Str("message", msg.ExternalID).Str("sender", msg.Sender).Msg("unrecognized message")
		} else {
			log.Debug().Str("message", msg.ExternalID).Str("sender", msg.Sender).Msg("unrecognized message")
		}
		return nil
	}

	// Credit messages carry no time of day; use when the message arrived.
	if txn.OccurredAt.IsZero() {
		txn.OccurredAt = msg.Timestamp
	}

	if verrs := ledger.Validate(txn); len(verrs) > 0 {
		res.Unrecognized++
		log.Warn().
			Str("message", msg.ExternalID).
			Str("txn", txn.ID).
			Str("reason", verrs[0].Error()).
			Int("problems", len(verrs)).
			Msg("extracted transaction failed validation")
		return nil
	}

	if txn.Kind == model.KindStandard {
		cat, err := p.autoCategory(ctx, txn, ruleSet)
		if err != nil {
			return err
		}
		txn.CategoryID = cat
	}

	isNew, err := p.upsertKeepingCategory(ctx, &txn)
	if err != nil {
		return err
	}
	if isNew {
		res.NewTransactions++
	} else {
		res.Updated++
	}
	if txn.Kind.IsCredit() {
		res.CreditEvents++
	}

	log.Debug().
		Str("message", msg.ExternalID).
		Str("txn", txn.ID).
		Str("kind", string(txn.Kind)).
		Str("category", txn.CategoryID).
		Bool("new", isNew).
		Msg("stored transaction")
	return nil
}

// autoCategory picks a category from memory, then from the rules.
func (p *Pipeline) autoCategory(ctx context.Context, txn model.Transaction, ruleSet []model.AutomationRule) (string, error) {
	cat, ok, err := p.memory.Lookup(ctx, txn.CounterpartyID, txn.Direction)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if ok {
		return cat, nil
	}
	cat, _ = p.engine.Apply(ruleSet, txn)
	return cat, nil
}

// upsertKeepingCategory writes txn. A category already stored on the row
// wins over whatever txn carries, so a user's choice is never overwritten.
// The row is read immediately before the write to keep that window short.
func (p *Pipeline) upsertKeepingCategory(ctx context.Context, txn *model.Transaction) (bool, error) {
	existing, err := p.store.GetTransaction(ctx, txn.ID)
	isNew := errors.Is(err, store.ErrNotFound)
	if err != nil && !isNew {
		return false, fmt.Errorf("%w: loading %s: %w", ErrPersistence, txn.ID, err)
	}
	if !isNew && existing.Categorized() {
		txn.CategoryID = existing.CategoryID
	}
	if err := p.store.UpsertTransaction(ctx, *txn); err != nil {
		return false, fmt.Errorf("%w: storing %s: %w", ErrPersistence, txn.ID, err)
	}
	return isNew, nil
}

// RefreshFees replays every stored credit record as of now and upserts one
// FEES-YYYY-MM row per month with a nonzero total. Fee rows for months that
// no longer accrue anything, for example after a late repayment arrives, are
// deleted. It returns the number of rows written.
func (p *Pipeline) RefreshFees(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	all, err := p.store.ListTransactionsSince(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("%w: listing credit history: %w", ErrPersistence, err)
	}
	var events []model.Event
	for _, txn := range all {
		if txn.Kind.IsCredit() {
			events = append(events, txn.Event())
		}
	}

	sim := overdraft.Simulate(events, p.now().In(p.loc))
	for _, w := range sim.Warnings {
		log.Warn().Err(w).Msg("credit event skipped by simulator")
	}

	fees, err := overdraft.FeeTransactions(sim, p.loc)
	if err != nil {
		return 0, err
	}
	written := make(map[string]bool, len(fees))
	for i := range fees {
		fees[i].CategoryID = p.feeCategory
		if _, err := p.upsertKeepingCategory(ctx, &fees[i]); err != nil {
			return i, err
		}
		written[fees[i].ID] = true
	}

	removed := 0
	for _, txn := range all {
		if txn.Kind != model.KindOverdraftFees || written[txn.ID] {
			continue
		}
		if err := p.store.DeleteTransaction(ctx, txn.ID); err != nil {
			return len(fees), fmt.Errorf("%w: removing stale %s: %w", ErrPersistence, txn.ID, err)
		}
		removed++
	}

	log.Debug().
		Int("credit_events", len(events)).
		Int("months", len(fees)).
		Int("removed", removed).
		Str("balance", sim.Balance.StringFixed(2)).
		Msg("refreshed overdraft fees")
	return len(fees), nil
}
