package engine

import (
	"testing"
	"time"

	"saldo/internal/core"
)

func intPtr(v int) *int                       { return &v }
func weekdayPtr(w time.Weekday) *time.Weekday { return &w }
func datePtr(d core.Date) *core.Date          { return &d }

func mustMonth(t *testing.T, s string) core.Month {
	t.Helper()
	m, err := core.ParseMonth(s)
	if err != nil {
		t.Fatalf("parse month %q: %v", s, err)
	}
	return m
}

func TestExpand_Monthly(t *testing.T) {
	tests := []struct {
		name     string
		rule     core.Rule
		month    string
		wantDays []int
	}{
		{
			name: "rent on the first, queried a month later",
			rule: core.Rule{
				ID: "r1", Description: "Rent", Amount: "950.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2024, time.January, 1),
				DayOfMonth: intPtr(1),
			},
			month:    "2024-02",
			wantDays: []int{1},
		},
		{
			name: "day 31 clamps to 29 in leap February",
			rule: core.Rule{
				ID: "r2", Description: "Salary savings", Amount: "100.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2023, time.May, 31),
				DayOfMonth: intPtr(31),
			},
			month:    "2024-02",
			wantDays: []int{29},
		},
		{
			name: "day 31 clamps to 28 in regular February",
			rule: core.Rule{
				ID: "r2", Description: "Savings", Amount: "100.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2023, time.May, 31),
				DayOfMonth: intPtr(31),
			},
			month:    "2025-02",
			wantDays: []int{28},
		},
		{
			name: "missing day of month defaults to the first",
			rule: core.Rule{
				ID: "r3", Description: "Sub", Amount: "9.99",
				Frequency: core.Monthly,
				StartDate: core.NewDate(2024, time.January, 15),
			},
			month:    "2024-03",
			wantDays: []int{1},
		},
		{
			name: "start date after the month yields nothing",
			rule: core.Rule{
				ID: "r4", Description: "Future", Amount: "10.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2024, time.June, 1),
				DayOfMonth: intPtr(1),
			},
			month:    "2024-02",
			wantDays: nil,
		},
		{
			name: "end date before the month yields nothing",
			rule: core.Rule{
				ID: "r5", Description: "Expired", Amount: "10.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2023, time.January, 1),
				EndDate:    datePtr(core.NewDate(2023, time.December, 31)),
				DayOfMonth: intPtr(1),
			},
			month:    "2024-02",
			wantDays: nil,
		},
		{
			name: "start date mid-month suppresses an earlier day",
			rule: core.Rule{
				ID: "r6", Description: "Late start", Amount: "10.00",
				Frequency:  core.Monthly,
				StartDate:  core.NewDate(2024, time.February, 10),
				DayOfMonth: intPtr(1),
			},
			month:    "2024-02",
			wantDays: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs := Expand(tt.rule, mustMonth(t, tt.month))
			if len(occs) != len(tt.wantDays) {
				t.Fatalf("got %d occurrences, want %d", len(occs), len(tt.wantDays))
			}
			for i, day := range tt.wantDays {
				if occs[i].Date.Day() != day {
					t.Errorf("occurrence %d on day %d, want %d", i, occs[i].Date.Day(), day)
				}
			}
		})
	}
}

func TestExpand_MonthlyAmountAndMarker(t *testing.T) {
	rule := core.Rule{
		ID: "rent", Description: "Rent", Amount: "950.00",
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, time.January, 1),
		DayOfMonth: intPtr(1),
	}
	occs := Expand(rule, mustMonth(t, "2024-02"))
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if got := occs[0].Date.String(); got != "2024-02-01" {
		t.Errorf("date = %s, want 2024-02-01", got)
	}
	if got := occs[0].Amount.StringFixed(2); got != "950.00" {
		t.Errorf("amount = %s, want 950.00", got)
	}
	if got := occs[0].Description; got != "Rent (recurring)" {
		t.Errorf("description = %q, want %q", got, "Rent (recurring)")
	}
}

func TestExpand_Daily(t *testing.T) {
	tests := []struct {
		name  string
		rule  core.Rule
		month string
		want  int
	}{
		{
			name: "full month",
			rule: core.Rule{
				ID: "d1", Description: "Coffee", Amount: "1.50",
				Frequency: core.Daily,
				StartDate: core.NewDate(2024, time.January, 1),
			},
			month: "2024-02",
			want:  29,
		},
		{
			name: "starts mid-month",
			rule: core.Rule{
				ID: "d2", Description: "Coffee", Amount: "1.50",
				Frequency: core.Daily,
				StartDate: core.NewDate(2024, time.February, 20),
			},
			month: "2024-02",
			want:  10,
		},
		{
			name: "ends mid-month",
			rule: core.Rule{
				ID: "d3", Description: "Coffee", Amount: "1.50",
				Frequency: core.Daily,
				StartDate: core.NewDate(2024, time.January, 1),
				EndDate:   datePtr(core.NewDate(2024, time.February, 5)),
			},
			month: "2024-02",
			want:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs := Expand(tt.rule, mustMonth(t, tt.month))
			if len(occs) != tt.want {
				t.Errorf("got %d occurrences, want %d", len(occs), tt.want)
			}
		})
	}
}

func TestExpand_Weekly(t *testing.T) {
	// January 2024: Mondays on the 1st, 8th, 15th, 22nd, 29th.
	rule := core.Rule{
		ID: "w1", Description: "Gym", Amount: "12.00",
		Frequency: core.Weekly,
		StartDate: core.NewDate(2024, time.January, 1),
		DayOfWeek: weekdayPtr(time.Monday),
	}

	t.Run("five mondays in january 2024", func(t *testing.T) {
		occs := Expand(rule, mustMonth(t, "2024-01"))
		if len(occs) != 5 {
			t.Fatalf("got %d occurrences, want 5", len(occs))
		}
		for _, occ := range occs {
			if occ.Date.Weekday() != time.Monday {
				t.Errorf("occurrence %s is a %s, want Monday", occ.Date, occ.Date.Weekday())
			}
		}
	})

	t.Run("bounds trim matching weekdays", func(t *testing.T) {
		bounded := rule
		bounded.StartDate = core.NewDate(2024, time.January, 9)
		bounded.EndDate = datePtr(core.NewDate(2024, time.January, 25))
		occs := Expand(bounded, mustMonth(t, "2024-01"))
		// Mondays inside [Jan 9, Jan 25]: the 15th and the 22nd.
		if len(occs) != 2 {
			t.Fatalf("got %d occurrences, want 2", len(occs))
		}
		if occs[0].Date.Day() != 15 || occs[1].Date.Day() != 22 {
			t.Errorf("got days %d and %d, want 15 and 22", occs[0].Date.Day(), occs[1].Date.Day())
		}
	})

	t.Run("missing weekday falls back to start date's weekday", func(t *testing.T) {
		implied := rule
		implied.DayOfWeek = nil // start date 2024-01-01 is a Monday
		occs := Expand(implied, mustMonth(t, "2024-01"))
		if len(occs) != 5 {
			t.Errorf("got %d occurrences, want 5", len(occs))
		}
	})
}

func TestExpand_Yearly(t *testing.T) {
	rule := core.Rule{
		ID: "y1", Description: "Insurance", Amount: "300.00",
		Frequency: core.Yearly,
		StartDate: core.NewDate(2023, time.March, 15),
	}

	t.Run("occurs in the start month", func(t *testing.T) {
		occs := Expand(rule, mustMonth(t, "2025-03"))
		if len(occs) != 1 {
			t.Fatalf("got %d occurrences, want 1", len(occs))
		}
		if got := occs[0].Date.String(); got != "2025-03-15" {
			t.Errorf("date = %s, want 2025-03-15", got)
		}
	})

	t.Run("other months are empty", func(t *testing.T) {
		if occs := Expand(rule, mustMonth(t, "2025-04")); len(occs) != 0 {
			t.Errorf("got %d occurrences, want 0", len(occs))
		}
	})

	t.Run("before the first year is empty", func(t *testing.T) {
		if occs := Expand(rule, mustMonth(t, "2022-03")); len(occs) != 0 {
			t.Errorf("got %d occurrences, want 0", len(occs))
		}
	})
}

func TestExpand_MalformedAmountIsZero(t *testing.T) {
	rule := core.Rule{
		ID: "bad", Description: "Corrupt", Amount: "not-a-number",
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, time.January, 1),
		DayOfMonth: intPtr(1),
	}
	occs := Expand(rule, mustMonth(t, "2024-02"))
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if !occs[0].Amount.IsZero() {
		t.Errorf("amount = %s, want 0", occs[0].Amount)
	}
}

func TestResolveAmount(t *testing.T) {
	rule := core.Rule{
		ID: "salary", Description: "Salary", Amount: "3200.00",
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, time.January, 1),
		DayOfMonth: intPtr(27),
	}
	overrides := []core.Override{
		{RecurringID: "salary", Month: core.Month{Year: 2025, Month: time.June}, Amount: "3800.00"},
		{RecurringID: "gone-rule", Month: core.Month{Year: 2025, Month: time.May}, Amount: "9999.00"},
	}

	tests := []struct {
		name  string
		month string
		want  string
	}{
		{"override month wins", "2025-06", "3800.00"},
		{"other months use the base amount", "2025-05", "3200.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAmount(rule, overrides, mustMonth(t, tt.month))
			if got.StringFixed(2) != tt.want {
				t.Errorf("ResolveAmount() = %s, want %s", got.StringFixed(2), tt.want)
			}
		})
	}

	t.Run("orphaned override is inert", func(t *testing.T) {
		got := ResolveAmount(rule, overrides, mustMonth(t, "2025-05"))
		if got.StringFixed(2) != "3200.00" {
			t.Errorf("orphaned override leaked into resolution: got %s", got.StringFixed(2))
		}
	})
}

func TestExpandWithOverrides(t *testing.T) {
	rule := core.Rule{
		ID: "salary", Description: "Salary", Amount: "3200.00",
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, time.January, 1),
		DayOfMonth: intPtr(27),
	}
	overrides := []core.Override{
		{RecurringID: "salary", Month: core.Month{Year: 2025, Month: time.June}, Amount: "3800.00"},
	}

	occs := ExpandWithOverrides(rule, overrides, mustMonth(t, "2025-06"))
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if got := occs[0].Amount.StringFixed(2); got != "3800.00" {
		t.Errorf("amount = %s, want 3800.00", got)
	}
}
