package core

// Collection names the independently addressable persisted records.
type Collection string

const (
	ColExpenses        Collection = "expenses"
	ColIncomes         Collection = "incomes"
	ColExpenseRules    Collection = "expense_rules"
	ColIncomeRules     Collection = "income_rules"
	ColIncomeOverrides Collection = "income_overrides"
	ColAnchor          Collection = "anchor"
	ColPreferences     Collection = "preferences"
)

// Collections lists every persisted collection, in a stable order.
func Collections() []Collection {
	return []Collection{
		ColExpenses, ColIncomes,
		ColExpenseRules, ColIncomeRules,
		ColIncomeOverrides,
		ColAnchor, ColPreferences,
	}
}

// Dataset is the complete in-memory state the engine computes over. It is
// passed explicitly to every engine entry point; there is no ambient
// global state. Anchor is the balance at time zero as a decimal string,
// empty when unset.
type Dataset struct {
	Expenses        []Entry           `json:"expenses"`
	Incomes         []Entry           `json:"incomes"`
	ExpenseRules    []Rule            `json:"expenseRules"`
	IncomeRules     []Rule            `json:"incomeRules"`
	IncomeOverrides []Override        `json:"incomeOverrides"`
	Anchor          string            `json:"anchor,omitempty"`
	Preferences     map[string]string `json:"preferences,omitempty"`
}

// NewDataset returns an empty dataset with initialized collections.
func NewDataset() *Dataset {
	return &Dataset{
		Expenses:        []Entry{},
		Incomes:         []Entry{},
		ExpenseRules:    []Rule{},
		IncomeRules:     []Rule{},
		IncomeOverrides: []Override{},
		Preferences:     map[string]string{},
	}
}

// Entries returns the one-off collection for a kind.
func (d *Dataset) Entries(k Kind) []Entry {
	if k == Income {
		return d.Incomes
	}
	return d.Expenses
}

// Rules returns the recurring rule collection for a kind.
func (d *Dataset) Rules(k Kind) []Rule {
	if k == Income {
		return d.IncomeRules
	}
	return d.ExpenseRules
}

// SetEntries replaces the one-off collection for a kind.
func (d *Dataset) SetEntries(k Kind, entries []Entry) {
	if k == Income {
		d.Incomes = entries
		return
	}
	d.Expenses = entries
}

// SetRules replaces the recurring rule collection for a kind.
func (d *Dataset) SetRules(k Kind, rules []Rule) {
	if k == Income {
		d.IncomeRules = rules
		return
	}
	d.ExpenseRules = rules
}

// Clone returns a deep copy. Snapshots taken for simulation restore-on-
// discard rely on this being a complete structural copy, including the
// optional pointer fields on rules.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Expenses:        append([]Entry(nil), d.Expenses...),
		Incomes:         append([]Entry(nil), d.Incomes...),
		ExpenseRules:    cloneRules(d.ExpenseRules),
		IncomeRules:     cloneRules(d.IncomeRules),
		IncomeOverrides: append([]Override(nil), d.IncomeOverrides...),
		Anchor:          d.Anchor,
	}
	if d.Preferences != nil {
		out.Preferences = make(map[string]string, len(d.Preferences))
		for k, v := range d.Preferences {
			out.Preferences[k] = v
		}
	}
	return out
}

func cloneRules(rules []Rule) []Rule {
	out := append([]Rule(nil), rules...)
	for i := range out {
		if out[i].EndDate != nil {
			end := *out[i].EndDate
			out[i].EndDate = &end
		}
		if out[i].DayOfMonth != nil {
			dom := *out[i].DayOfMonth
			out[i].DayOfMonth = &dom
		}
		if out[i].DayOfWeek != nil {
			dow := *out[i].DayOfWeek
			out[i].DayOfWeek = &dow
		}
	}
	return out
}

// ClearSpeculative strips the speculative tag from every record across
// every collection. Simulation accept funnels through here so no
// collection can be missed by the strip step.
func (d *Dataset) ClearSpeculative() {
	for i := range d.Expenses {
		d.Expenses[i].Speculative = false
	}
	for i := range d.Incomes {
		d.Incomes[i].Speculative = false
	}
	for i := range d.ExpenseRules {
		d.ExpenseRules[i].Speculative = false
	}
	for i := range d.IncomeRules {
		d.IncomeRules[i].Speculative = false
	}
	for i := range d.IncomeOverrides {
		d.IncomeOverrides[i].Speculative = false
	}
}

// HasSpeculative reports whether any record in any collection still
// carries the speculative tag.
func (d *Dataset) HasSpeculative() bool {
	for _, e := range d.Expenses {
		if e.Speculative {
			return true
		}
	}
	for _, e := range d.Incomes {
		if e.Speculative {
			return true
		}
	}
	for _, r := range d.ExpenseRules {
		if r.Speculative {
			return true
		}
	}
	for _, r := range d.IncomeRules {
		if r.Speculative {
			return true
		}
	}
	for _, o := range d.IncomeOverrides {
		if o.Speculative {
			return true
		}
	}
	return false
}
