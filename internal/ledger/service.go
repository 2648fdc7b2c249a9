// Package ledger owns the live dataset and the single write path every
// mutation funnels through, committed or speculative. Reads always see
// whichever dataset is currently "live"; readers cannot tell whether a
// simulation is active.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/engine"
	"saldo/internal/log"
	"saldo/internal/store"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrOverrideNotFound = errors.New("override not found")
	ErrInvalidKind      = errors.New("invalid kind")
)

// SyncPublisher mirrors committed changes to the sync queue. Publishing is
// fire-and-forget: failures are logged, never surfaced to the caller.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, revision uint64, reason string) error
}

// Service is the ledger's write path and query surface.
type Service struct {
	mu          sync.RWMutex
	store       store.Store
	publisher   SyncPublisher
	logger      *log.Logger
	projections *cache.LRUCache[engine.Projection]

	data     *core.Dataset
	snapshot *core.Dataset // non-nil while a simulation is active
	revision uint64

	subscribers map[chan struct{}]struct{}
}

// Options tunes the service.
type Options struct {
	Publisher SyncPublisher
	Logger    *log.Logger
	CacheSize int
	CacheTTL  time.Duration
}

// New loads the persisted dataset from the store and returns a ready
// service.
func New(ctx context.Context, st store.Store, opts Options) (*Service, error) {
	data, err := st.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		store:       st,
		publisher:   opts.Publisher,
		logger:      logger,
		projections: cache.NewLRUCache[engine.Projection](cacheSize, cacheTTL),
		data:        data,
	}, nil
}

// Subscribe returns a channel that receives a signal after every data
// change, and a function that releases the subscription. The send is
// non-blocking; a slow consumer coalesces signals. Callers must invoke
// the release function when done or the subscription stays registered.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	if s.subscribers == nil {
		s.subscribers = make(map[chan struct{}]struct{})
	}
	s.subscribers[ch] = struct{}{}
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, ch)
	}
}

// Revision returns the current data revision. It changes on every write.
func (s *Service) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Simulating reports whether a simulation is active.
func (s *Service) Simulating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

// Dataset returns a deep copy of the live dataset.
func (s *Service) Dataset() *core.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// AddEntry appends a one-off entry to the expense or income collection
// and returns the entry as stored, speculative tag included.
func (s *Service) AddEntry(ctx context.Context, kind core.Kind, e core.Entry) (core.Entry, error) {
	if !kind.IsValid() {
		return core.Entry{}, ErrInvalidKind
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.Speculative = s.snapshot != nil
	entries := append(append([]core.Entry(nil), s.data.Entries(kind)...), e)
	if err := s.store.SaveEntries(ctx, kind, entries); err != nil {
		return core.Entry{}, fmt.Errorf("persist entries: %w", err)
	}
	s.data.SetEntries(kind, entries)
	s.afterWrite(ctx, log.OpCreate, log.FieldKind, string(kind))
	return e, nil
}

// RemoveEntry deletes the first entry exactly matching the
// (date, description, amount) triple.
func (s *Service) RemoveEntry(ctx context.Context, kind core.Kind, match core.Entry) error {
	if !kind.IsValid() {
		return ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.data.Entries(kind)
	idx := -1
	for i, e := range current {
		if e.Matches(match) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEntryNotFound
	}
	entries := append([]core.Entry(nil), current[:idx]...)
	entries = append(entries, current[idx+1:]...)
	if err := s.store.SaveEntries(ctx, kind, entries); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}
	s.data.SetEntries(kind, entries)
	s.afterWrite(ctx, log.OpDelete, log.FieldKind, string(kind))
	return nil
}

// UpdateEntry replaces the first entry exactly matching the identity
// triple with the updated one and returns it as stored.
func (s *Service) UpdateEntry(ctx context.Context, kind core.Kind, match, updated core.Entry) (core.Entry, error) {
	if !kind.IsValid() {
		return core.Entry{}, ErrInvalidKind
	}
	if err := updated.Validate(); err != nil {
		return core.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.data.Entries(kind)
	idx := -1
	for i, e := range current {
		if e.Matches(match) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Entry{}, ErrEntryNotFound
	}
	updated.Speculative = s.snapshot != nil
	entries := append([]core.Entry(nil), current...)
	entries[idx] = updated
	if err := s.store.SaveEntries(ctx, kind, entries); err != nil {
		return core.Entry{}, fmt.Errorf("persist entries: %w", err)
	}
	s.data.SetEntries(kind, entries)
	s.afterWrite(ctx, log.OpUpdate, log.FieldKind, string(kind))
	return updated, nil
}

// SaveRule stores a new recurring rule, assigning an id when the caller
// did not provide one. Returns the rule as stored.
func (s *Service) SaveRule(ctx context.Context, kind core.Kind, r core.Rule) (core.Rule, error) {
	if !kind.IsValid() {
		return core.Rule{}, ErrInvalidKind
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return core.Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.Speculative = s.snapshot != nil
	rules := append(append([]core.Rule(nil), s.data.Rules(kind)...), r)
	if err := s.store.SaveRules(ctx, kind, rules); err != nil {
		return core.Rule{}, fmt.Errorf("persist rules: %w", err)
	}
	s.data.SetRules(kind, rules)
	s.afterWrite(ctx, log.OpCreate, log.FieldKind, string(kind), log.FieldRuleID, r.ID)
	return r, nil
}

// UpdateRule replaces the base fields of the rule with the given id and
// returns the rule as stored. The id itself is preserved.
func (s *Service) UpdateRule(ctx context.Context, kind core.Kind, id string, r core.Rule) (core.Rule, error) {
	if !kind.IsValid() {
		return core.Rule{}, ErrInvalidKind
	}
	r.ID = id
	if err := r.Validate(); err != nil {
		return core.Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.data.Rules(kind)
	idx := -1
	for i, existing := range current {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Rule{}, ErrRuleNotFound
	}
	r.Speculative = s.snapshot != nil
	rules := append([]core.Rule(nil), current...)
	rules[idx] = r
	if err := s.store.SaveRules(ctx, kind, rules); err != nil {
		return core.Rule{}, fmt.Errorf("persist rules: %w", err)
	}
	s.data.SetRules(kind, rules)
	s.afterWrite(ctx, log.OpUpdate, log.FieldKind, string(kind), log.FieldRuleID, id)
	return r, nil
}

// DeleteRule removes a rule and cascades to every override that
// references it.
func (s *Service) DeleteRule(ctx context.Context, kind core.Kind, id string) error {
	if !kind.IsValid() {
		return ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.data.Rules(kind)
	idx := -1
	for i, existing := range current {
		if existing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRuleNotFound
	}
	rules := append([]core.Rule(nil), current[:idx]...)
	rules = append(rules, current[idx+1:]...)
	if err := s.store.SaveRules(ctx, kind, rules); err != nil {
		return fmt.Errorf("persist rules: %w", err)
	}
	s.data.SetRules(kind, rules)

	// Cascade: an override without its rule would be inert anyway, but
	// deleting the rule is the moment to clean them out.
	remaining := s.data.IncomeOverrides[:0:0]
	for _, o := range s.data.IncomeOverrides {
		if o.RecurringID != id {
			remaining = append(remaining, o)
		}
	}
	if len(remaining) != len(s.data.IncomeOverrides) {
		if err := s.store.SaveOverrides(ctx, remaining); err != nil {
			return fmt.Errorf("persist overrides: %w", err)
		}
		s.data.IncomeOverrides = remaining
	}

	s.afterWrite(ctx, log.OpDelete, log.FieldKind, string(kind), log.FieldRuleID, id)
	return nil
}

// UpsertOverride inserts or replaces the override for the
// (rule, month) pair and returns it as stored.
func (s *Service) UpsertOverride(ctx context.Context, o core.Override) (core.Override, error) {
	if err := o.Validate(); err != nil {
		return core.Override{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o.Speculative = s.snapshot != nil
	overrides := append([]core.Override(nil), s.data.IncomeOverrides...)
	replaced := false
	for i, existing := range overrides {
		if existing.RecurringID == o.RecurringID && existing.Month == o.Month {
			overrides[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		overrides = append(overrides, o)
	}
	if err := s.store.SaveOverrides(ctx, overrides); err != nil {
		return core.Override{}, fmt.Errorf("persist overrides: %w", err)
	}
	s.data.IncomeOverrides = overrides
	s.afterWrite(ctx, log.OpUpdate, log.FieldRuleID, o.RecurringID, log.FieldMonth, o.Month.String())
	return o, nil
}

// DeleteOverride removes the override for the (rule, month) pair.
func (s *Service) DeleteOverride(ctx context.Context, recurringID string, month core.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides := append([]core.Override(nil), s.data.IncomeOverrides...)
	idx := -1
	for i, existing := range overrides {
		if existing.RecurringID == recurringID && existing.Month == month {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrOverrideNotFound
	}
	overrides = append(overrides[:idx], overrides[idx+1:]...)
	if err := s.store.SaveOverrides(ctx, overrides); err != nil {
		return fmt.Errorf("persist overrides: %w", err)
	}
	s.data.IncomeOverrides = overrides
	s.afterWrite(ctx, log.OpDelete, log.FieldRuleID, recurringID, log.FieldMonth, month.String())
	return nil
}

// SetAnchor sets the balance at time zero. This is destructive on
// purpose: both one-off collections are reset, because the anchor
// redefines the starting point they were relative to. Recurring rules
// survive.
func (s *Service) SetAnchor(ctx context.Context, amount string) error {
	if _, err := core.ParseAmountStrict(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveAnchor(ctx, amount); err != nil {
		return fmt.Errorf("persist anchor: %w", err)
	}
	if err := s.store.SaveEntries(ctx, core.Expense, []core.Entry{}); err != nil {
		return fmt.Errorf("reset expenses: %w", err)
	}
	if err := s.store.SaveEntries(ctx, core.Income, []core.Entry{}); err != nil {
		return fmt.Errorf("reset incomes: %w", err)
	}
	s.data.Anchor = amount
	s.data.Expenses = []core.Entry{}
	s.data.Incomes = []core.Entry{}
	s.afterWrite(ctx, log.OpUpdate, log.FieldCollection, string(core.ColAnchor))
	return nil
}

// SetPreference stores a single preference key.
func (s *Service) SetPreference(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := make(map[string]string, len(s.data.Preferences)+1)
	for k, v := range s.data.Preferences {
		prefs[k] = v
	}
	prefs[key] = value
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}
	s.data.Preferences = prefs
	s.afterWrite(ctx, log.OpUpdate, log.FieldCollection, string(core.ColPreferences))
	return nil
}

// ExpandRecurringForMonth returns the concrete entries the kind's rules
// generate in a month, income occurrences priced through overrides,
// sorted by date.
func (s *Service) ExpandRecurringForMonth(kind core.Kind, month core.Month) []core.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []core.Entry
	for _, rule := range s.data.Rules(kind) {
		var occs []engine.Occurrence
		if kind == core.Income {
			occs = engine.ExpandWithOverrides(rule, s.data.IncomeOverrides, month)
		} else {
			occs = engine.Expand(rule, month)
		}
		for _, occ := range occs {
			entries = append(entries, core.Entry{
				Date:        occ.Date,
				Description: occ.Description,
				Amount:      core.FormatAmount(occ.Amount),
				Speculative: rule.Speculative,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date.Time)
	})
	return entries
}

// MonthTotals aggregates one month of the live dataset.
func (s *Service) MonthTotals(month core.Month) engine.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.AggregateMonth(s.data, month)
}

// ProjectRange projects the running balance across [start, end] over the
// live dataset. Results are cached per revision.
func (s *Service) ProjectRange(start, end core.Date) engine.Projection {
	s.mu.RLock()
	key := fmt.Sprintf("%s|%s|%d", start, end, s.revision)
	if p, ok := s.projections.Get(key); ok {
		s.mu.RUnlock()
		return p
	}
	p := engine.ProjectRange(s.data, start, end)
	s.mu.RUnlock()

	s.projections.Set(key, p)
	return p
}

// afterWrite is called with the write lock held: it bumps the revision,
// invalidates cached projections, notifies subscribers, and mirrors
// committed writes to the sync queue.
func (s *Service) afterWrite(ctx context.Context, op string, args ...any) {
	s.revision++
	s.projections.Purge()
	s.notifyLocked()

	simulating := s.snapshot != nil
	s.logger.InfoContext(ctx, "Ledger write",
		append([]any{log.FieldOperation, op, log.FieldRevision, s.revision, log.FieldSimulating, simulating}, args...)...)

	// Speculative writes never reach remote sync.
	if simulating || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, s.revision, "write"); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldError, err, log.FieldRevision, s.revision)
	}
}

func (s *Service) notifyLocked() {
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
