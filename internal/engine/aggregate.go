package engine

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Totals holds a period's aggregated income and expense.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Net returns income minus expense.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

func (t Totals) add(o Totals) Totals {
	return Totals{Income: t.Income.Add(o.Income), Expense: t.Expense.Add(o.Expense)}
}

// AggregateMonth totals a calendar month: one-off entries dated in the
// month plus every recurring occurrence the month generates, with income
// occurrences priced through the override for that month when one exists.
// Malformed stored amounts count as zero; aggregation never fails.
func AggregateMonth(data *core.Dataset, month core.Month) Totals {
	return AggregateBetween(data, month.First(), month.Last())
}

// AggregateBetween totals an exact day window [from, to] within a single
// calendar month. Ranges that do not start or end on month boundaries
// filter one-offs and occurrences by precise date bounds before summing.
func AggregateBetween(data *core.Dataset, from, to core.Date) Totals {
	month := core.MonthOf(from)
	t := Totals{
		Income:  sumEntries(data.Incomes, from, to).Add(sumRecurring(data.IncomeRules, data.IncomeOverrides, month, from, to)),
		Expense: sumEntries(data.Expenses, from, to).Add(sumRecurring(data.ExpenseRules, nil, month, from, to)),
	}
	return t
}

func sumEntries(entries []core.Entry, from, to core.Date) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.Date.Before(from.Time) || e.Date.After(to.Time) {
			continue
		}
		sum = sum.Add(core.ParseAmount(e.Amount))
	}
	return sum
}

func sumRecurring(rules []core.Rule, overrides []core.Override, month core.Month, from, to core.Date) decimal.Decimal {
	sum := decimal.Zero
	for _, rule := range rules {
		occs := ExpandBetween(rule, from, to)
		if len(occs) == 0 {
			continue
		}
		amount := occs[0].Amount
		if overrides != nil {
			amount = ResolveAmount(rule, overrides, month)
		}
		sum = sum.Add(amount.Mul(decimal.NewFromInt(int64(len(occs)))))
	}
	return sum
}
