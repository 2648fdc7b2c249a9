package engine

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Step is one period of a projection's running-balance series. From and To
// are the exact day bounds of the step; for full months they coincide with
// the month's first and last day.
type Step struct {
	Month   core.Month
	From    core.Date
	To      core.Date
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	Balance decimal.Decimal
}

// Projection is the result of projecting a date range: the balance carried
// in from all history strictly before the range, a month-by-month series
// with running balances, and range totals.
type Projection struct {
	CarriedIn    decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
	Steps        []Step
}

// ProjectRange computes the running balance across [start, end].
//
// The carried-in balance is the anchor plus the net of every month from
// the earliest month referenced anywhere in the dataset up to (and
// including the partial head of) the month containing start, stopping the
// day before start. The series then walks month by month from start to
// end, the first and last steps clipped to the exact range bounds, each
// step adding its net to the running balance.
//
// An inverted range (end before start) is degenerate, not exceptional:
// the carried-in balance is still reported and the series is empty.
func ProjectRange(data *core.Dataset, start, end core.Date) Projection {
	p := Projection{
		CarriedIn:    carriedInBalance(data, start),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	p.Balance = p.CarriedIn
	if end.Before(start.Time) {
		return p
	}

	balance := p.CarriedIn
	for from := start; !from.After(end.Time); {
		month := core.MonthOf(from)
		to := month.Last()
		if to.After(end.Time) {
			to = end
		}
		t := AggregateBetween(data, from, to)
		balance = balance.Add(t.Net())
		p.Steps = append(p.Steps, Step{
			Month:   month,
			From:    from,
			To:      to,
			Income:  t.Income,
			Expense: t.Expense,
			Net:     t.Net(),
			Balance: balance,
		})
		p.TotalIncome = p.TotalIncome.Add(t.Income)
		p.TotalExpense = p.TotalExpense.Add(t.Expense)
		from = month.Next().First()
	}
	p.Balance = balance
	return p
}

// carriedInBalance accumulates all history strictly before start on top of
// the anchor: full months from the earliest referenced month, then the
// head of start's month up to the day before start.
func carriedInBalance(data *core.Dataset, start core.Date) decimal.Decimal {
	balance := core.ParseAmount(data.Anchor)

	earliest, ok := earliestMonth(data)
	if !ok {
		return balance
	}

	startMonth := core.MonthOf(start)
	for m := earliest; m.Before(startMonth); m = m.Next() {
		balance = balance.Add(AggregateMonth(data, m).Net())
	}
	if start.Day() > 1 {
		head := AggregateBetween(data, startMonth.First(), start.AddDays(-1))
		balance = balance.Add(head.Net())
	}
	return balance
}

// earliestMonth finds the earliest month referenced by any one-off entry
// or recurring rule start date. The second return is false when the
// dataset references nothing at all.
func earliestMonth(data *core.Dataset) (core.Month, bool) {
	var earliest core.Date
	found := false
	consider := func(d core.Date) {
		if d.IsZero() {
			return
		}
		if !found || d.Before(earliest.Time) {
			earliest = d
			found = true
		}
	}
	for _, e := range data.Expenses {
		consider(e.Date)
	}
	for _, e := range data.Incomes {
		consider(e.Date)
	}
	for _, r := range data.ExpenseRules {
		consider(r.StartDate)
	}
	for _, r := range data.IncomeRules {
		consider(r.StartDate)
	}
	if !found {
		return core.Month{}, false
	}
	return core.MonthOf(earliest), true
}
