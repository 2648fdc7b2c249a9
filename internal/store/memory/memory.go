// Package memory implements the store port entirely in memory, with an
// optional JSON seed file. It is the default backend and the one tests
// run against.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"saldo/internal/core"
)

type Store struct {
	mu   sync.Mutex
	data *core.Dataset
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: core.NewDataset()}
}

// NewFromDataset returns a store seeded with a copy of the dataset.
func NewFromDataset(data *core.Dataset) *Store {
	return &Store{data: data.Clone()}
}

// NewFromFile seeds the store from a JSON dataset file. A missing or
// unreadable file yields an empty store rather than an error, so a fresh
// install starts clean.
func NewFromFile(path string) *Store {
	raw, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var data core.Dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return New()
	}
	if data.Preferences == nil {
		data.Preferences = map[string]string{}
	}
	return &Store{data: &data}
}

func (s *Store) LoadDataset(_ context.Context) (*core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone(), nil
}

func (s *Store) SaveEntries(_ context.Context, kind core.Kind, entries []core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SetEntries(kind, append([]core.Entry(nil), entries...))
	return nil
}

func (s *Store) SaveRules(_ context.Context, kind core.Kind, rules []core.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.SetRules(kind, append([]core.Rule(nil), rules...))
	return nil
}

func (s *Store) SaveOverrides(_ context.Context, overrides []core.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.IncomeOverrides = append([]core.Override(nil), overrides...)
	return nil
}

func (s *Store) SaveAnchor(_ context.Context, anchor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Anchor = anchor
	return nil
}

func (s *Store) SavePreferences(_ context.Context, prefs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(prefs))
	for k, v := range prefs {
		copied[k] = v
	}
	s.data.Preferences = copied
	return nil
}

func (s *Store) Replace(_ context.Context, data *core.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data.Clone()
	return nil
}

func (s *Store) Close() error {
	return nil
}
