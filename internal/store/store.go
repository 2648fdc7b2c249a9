// Package store defines the persistence port for the ledger's collections.
//
// The storage medium is an external collaborator: collections are named,
// independently addressable records (see core.Collection), and the engine
// itself never touches a store. Two implementations exist: store/memory
// for tests and the default backend, and store/sqlite for durable
// persistence on disk.
package store

import (
	"context"

	"saldo/internal/core"
)

// Store persists the ledger's collections. Save methods replace the whole
// named collection; Replace writes every collection of a dataset at once
// (used by simulation accept and discard, which must leave the persisted
// state exactly equal to the in-memory one).
type Store interface {
	LoadDataset(ctx context.Context) (*core.Dataset, error)
	SaveEntries(ctx context.Context, kind core.Kind, entries []core.Entry) error
	SaveRules(ctx context.Context, kind core.Kind, rules []core.Rule) error
	SaveOverrides(ctx context.Context, overrides []core.Override) error
	SaveAnchor(ctx context.Context, anchor string) error
	SavePreferences(ctx context.Context, prefs map[string]string) error
	Replace(ctx context.Context, data *core.Dataset) error
	Close() error
}

// EntriesCollection maps a kind to its one-off collection name.
func EntriesCollection(kind core.Kind) core.Collection {
	if kind == core.Income {
		return core.ColIncomes
	}
	return core.ColExpenses
}

// RulesCollection maps a kind to its recurring-rule collection name.
func RulesCollection(kind core.Kind) core.Collection {
	if kind == core.Income {
		return core.ColIncomeRules
	}
	return core.ColExpenseRules
}
