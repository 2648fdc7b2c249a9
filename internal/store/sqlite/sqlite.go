// Package sqlite implements the store port on SQLite. Each collection is
// persisted as one named JSON record in a key-value table, mirroring the
// independently-addressable-record storage model the rest of the system
// assumes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/core"
	"saldo/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens (creating if necessary) the SQLite database at dbPath and
// runs pending migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) LoadDataset(ctx context.Context) (*core.Dataset, error) {
	data := core.NewDataset()

	if err := s.readJSON(ctx, core.ColExpenses, &data.Expenses); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColIncomes, &data.Incomes); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColExpenseRules, &data.ExpenseRules); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColIncomeRules, &data.IncomeRules); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColIncomeOverrides, &data.IncomeOverrides); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColAnchor, &data.Anchor); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, core.ColPreferences, &data.Preferences); err != nil {
		return nil, err
	}
	if data.Preferences == nil {
		data.Preferences = map[string]string{}
	}

	slog.InfoContext(ctx, "Dataset loaded from SQLite",
		"expenses", len(data.Expenses),
		"incomes", len(data.Incomes),
		"expense_rules", len(data.ExpenseRules),
		"income_rules", len(data.IncomeRules),
		"overrides", len(data.IncomeOverrides))

	return data, nil
}

func (s *Store) SaveEntries(ctx context.Context, kind core.Kind, entries []core.Entry) error {
	return s.writeJSON(ctx, store.EntriesCollection(kind), entries)
}

func (s *Store) SaveRules(ctx context.Context, kind core.Kind, rules []core.Rule) error {
	return s.writeJSON(ctx, store.RulesCollection(kind), rules)
}

func (s *Store) SaveOverrides(ctx context.Context, overrides []core.Override) error {
	return s.writeJSON(ctx, core.ColIncomeOverrides, overrides)
}

func (s *Store) SaveAnchor(ctx context.Context, anchor string) error {
	return s.writeJSON(ctx, core.ColAnchor, anchor)
}

func (s *Store) SavePreferences(ctx context.Context, prefs map[string]string) error {
	return s.writeJSON(ctx, core.ColPreferences, prefs)
}

// Replace writes every collection of the dataset inside one transaction
// so a restore is all-or-nothing.
func (s *Store) Replace(ctx context.Context, data *core.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	writes := []struct {
		col   core.Collection
		value any
	}{
		{core.ColExpenses, data.Expenses},
		{core.ColIncomes, data.Incomes},
		{core.ColExpenseRules, data.ExpenseRules},
		{core.ColIncomeRules, data.IncomeRules},
		{core.ColIncomeOverrides, data.IncomeOverrides},
		{core.ColAnchor, data.Anchor},
		{core.ColPreferences, data.Preferences},
	}
	for _, w := range writes {
		payload, err := json.Marshal(w.value)
		if err != nil {
			return fmt.Errorf("marshal collection %s: %w", w.col, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, string(w.col), string(payload)); err != nil {
			return fmt.Errorf("write collection %s: %w", w.col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO collections (name, payload, updated_at)
VALUES (?, ?, datetime('now'))
ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

func (s *Store) writeJSON(ctx context.Context, col core.Collection, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", col, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, string(col), string(payload)); err != nil {
		return fmt.Errorf("write collection %s: %w", col, err)
	}
	return nil
}

// readJSON loads one named collection into out. A missing record leaves
// out untouched: a fresh database simply has no collections yet.
func (s *Store) readJSON(ctx context.Context, col core.Collection, out any) error {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM collections WHERE name = ?`, string(col)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read collection %s: %w", col, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode collection %s: %w", col, err)
	}
	return nil
}
