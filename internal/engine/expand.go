// Package engine implements the recurring-rule expansion and
// balance-projection core. Every function here is pure: it computes over a
// caller-supplied dataset and never touches storage, sync, or clocks.
//
// This file implements rule expansion. Each frequency has its own
// scheduler that encapsulates the occurrence-date algorithm for that
// frequency; expansion dispatches through a registry keyed by the closed
// Frequency enum.
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// RecurringMarker is appended to every expanded occurrence description so
// occurrences stay distinguishable from one-offs in any merged list.
const RecurringMarker = " (recurring)"

// Occurrence is one concrete dated transaction produced by expanding a
// recurring rule for a specific month.
type Occurrence struct {
	Date        core.Date
	Description string
	Amount      decimal.Decimal
}

// scheduler produces the occurrence dates a rule generates inside the
// window [from, to], both bounds inclusive and already clipped to the
// rule's start/end dates.
type scheduler interface {
	occurrenceDates(rule core.Rule, from, to core.Date) []core.Date
}

type dailyScheduler struct{}

// One occurrence per calendar day in the window.
func (dailyScheduler) occurrenceDates(_ core.Rule, from, to core.Date) []core.Date {
	var dates []core.Date
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

type weeklyScheduler struct{}

// One occurrence per day in the window whose weekday matches the rule's
// DayOfWeek. A rule without an explicit DayOfWeek repeats on its start
// date's weekday.
func (weeklyScheduler) occurrenceDates(rule core.Rule, from, to core.Date) []core.Date {
	target := rule.StartDate.Weekday()
	if rule.DayOfWeek != nil {
		target = *rule.DayOfWeek
	}
	var dates []core.Date
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		if d.Weekday() == target {
			dates = append(dates, d)
		}
	}
	return dates
}

type monthlyScheduler struct{}

// Exactly one occurrence, on min(DayOfMonth, last day of month): a rule on
// day 31 lands on day 28/29/30 in shorter months. A rule without an
// explicit DayOfMonth runs on the 1st.
func (monthlyScheduler) occurrenceDates(rule core.Rule, from, to core.Date) []core.Date {
	month := core.MonthOf(from)
	day := 1
	if rule.DayOfMonth != nil {
		day = *rule.DayOfMonth
	}
	if last := month.Days(); day > last {
		day = last
	}
	occ := core.NewDate(month.Year, month.Month, day)
	if occ.Before(from.Time) || occ.After(to.Time) {
		return nil
	}
	return []core.Date{occ}
}

type yearlyScheduler struct{}

// Exactly one occurrence per year, in the start date's month on the start
// date's day.
func (yearlyScheduler) occurrenceDates(rule core.Rule, from, to core.Date) []core.Date {
	month := core.MonthOf(from)
	if month.Month != rule.StartDate.Month() {
		return nil
	}
	occ := core.NewDate(month.Year, month.Month, rule.StartDate.Day())
	if occ.Before(from.Time) || occ.After(to.Time) {
		return nil
	}
	return []core.Date{occ}
}

// schedulers maps each frequency of the closed enum to its scheduler.
var schedulers = map[core.Frequency]scheduler{
	core.Daily:   dailyScheduler{},
	core.Weekly:  weeklyScheduler{},
	core.Monthly: monthlyScheduler{},
	core.Yearly:  yearlyScheduler{},
}

// schedulerFor returns the scheduler for a frequency. Frequency is a
// closed enumeration validated at the write path, so an unknown value here
// is a programming error, not bad data.
func schedulerFor(f core.Frequency) scheduler {
	s, ok := schedulers[f]
	if !ok {
		panic(fmt.Sprintf("engine: unknown frequency %q", f))
	}
	return s
}

// Expand produces the concrete occurrences a rule generates in a month,
// priced at the rule's base amount. It returns nil when the rule is not
// active in the month: start date after the month's last day, or end date
// before its first day.
func Expand(rule core.Rule, month core.Month) []Occurrence {
	from, to, active := activeWindow(rule, month)
	if !active {
		return nil
	}
	amount := core.ParseAmount(rule.Amount)
	return occurrencesAt(rule, amount, from, to)
}

// ExpandBetween is Expand restricted to an exact day window inside the
// month containing from. Sub-month projection steps use it so occurrences
// are filtered by precise date bounds, not month membership alone.
func ExpandBetween(rule core.Rule, from, to core.Date) []Occurrence {
	wFrom, wTo, active := activeWindow(rule, core.MonthOf(from))
	if !active {
		return nil
	}
	if wFrom.Before(from.Time) {
		wFrom = from
	}
	if wTo.After(to.Time) {
		wTo = to
	}
	if wFrom.After(wTo.Time) {
		return nil
	}
	amount := core.ParseAmount(rule.Amount)
	return occurrencesAt(rule, amount, wFrom, wTo)
}

// activeWindow clips a month to the rule's [start, end] bounds. The third
// return is false when the rule generates nothing in the month at all.
func activeWindow(rule core.Rule, month core.Month) (from, to core.Date, active bool) {
	from, to = month.First(), month.Last()
	if rule.StartDate.After(to.Time) {
		return from, to, false
	}
	if rule.EndDate != nil && rule.EndDate.Before(from.Time) {
		return from, to, false
	}
	if rule.StartDate.After(from.Time) {
		from = rule.StartDate
	}
	if rule.EndDate != nil && rule.EndDate.Before(to.Time) {
		to = *rule.EndDate
	}
	return from, to, true
}

func occurrencesAt(rule core.Rule, amount decimal.Decimal, from, to core.Date) []Occurrence {
	dates := schedulerFor(rule.Frequency).occurrenceDates(rule, from, to)
	if len(dates) == 0 {
		return nil
	}
	occs := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		occs = append(occs, Occurrence{
			Date:        d,
			Description: rule.Description + RecurringMarker,
			Amount:      amount,
		})
	}
	return occs
}
