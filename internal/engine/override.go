package engine

import (
	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// ResolveAmount returns the effective amount of a rule for a month: the
// matching override's amount when one exists, the rule's base amount
// otherwise. A linear scan is fine at expected override volumes (tens,
// not thousands). Overrides referencing other rules are skipped, so an
// orphaned override matches nothing and is inert.
func ResolveAmount(rule core.Rule, overrides []core.Override, month core.Month) decimal.Decimal {
	for _, o := range overrides {
		if o.RecurringID == rule.ID && o.Month == month {
			return core.ParseAmount(o.Amount)
		}
	}
	return core.ParseAmount(rule.Amount)
}

// ExpandWithOverrides expands a rule for a month with every occurrence
// priced through ResolveAmount. Income expansion goes through here so
// per-month overrides win over the base amount.
func ExpandWithOverrides(rule core.Rule, overrides []core.Override, month core.Month) []Occurrence {
	occs := Expand(rule, month)
	if len(occs) == 0 {
		return occs
	}
	amount := ResolveAmount(rule, overrides, month)
	for i := range occs {
		occs[i].Amount = amount
	}
	return occs
}
