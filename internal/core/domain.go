package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

type (
	// Frequency is the closed set of recurrence schedules.
	Frequency string

	// Kind distinguishes the expense and income collections.
	Kind string

	Date struct {
		time.Time
	}

	// Month identifies a calendar month ("YYYY-MM" on the wire).
	Month struct {
		Year  int
		Month time.Month
	}

	// Entry is a one-off movement. Identity for removal and update is the
	// exact (Date, Description, Amount) triple.
	Entry struct {
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Speculative bool   `json:"speculative,omitempty"`
	}

	// Rule is a recurring movement template. DayOfMonth is meaningful only
	// for monthly rules, DayOfWeek only for weekly ones.
	Rule struct {
		ID          string        `json:"id"`
		Description string        `json:"description"`
		Amount      string        `json:"amount"`
		Frequency   Frequency     `json:"frequency"`
		StartDate   Date          `json:"startDate"`
		EndDate     *Date         `json:"endDate,omitempty"`
		DayOfMonth  *int          `json:"dayOfMonth,omitempty"`
		DayOfWeek   *time.Weekday `json:"dayOfWeek,omitempty"`
		Speculative bool          `json:"speculative,omitempty"`
	}

	// Override replaces an income rule's amount for a single month.
	// At most one exists per (RecurringID, Month) pair.
	Override struct {
		RecurringID string `json:"recurringId"`
		Month       Month  `json:"yearMonth"`
		Amount      string `json:"amount"`
		Speculative bool   `json:"speculative,omitempty"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEndBeforeStart     = errors.New("end date before start date")
	ErrMissingRuleID      = errors.New("missing rule id")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrDayOutOfRange      = errors.New("day out of range")
)

// IsValid reports whether the frequency is one of the closed set.
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// IsValid reports whether the kind is expense or income.
func (k Kind) IsValid() bool {
	return k == Expense || k == Income
}

// NewDate creates a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Time.Year(), Month: d.Time.Month()}
}

// ParseMonth parses a "YYYY-MM" month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return NewDate(m.Year, m.Month+1, 0)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Last().Day()
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return MonthOf(Date{Time: m.First().AddDate(0, 1, 0)})
}

// Before reports whether m precedes o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Time.Year() == m.Year && d.Time.Month() == m.Month
}

// MarshalJSON encodes the month as "YYYY-MM".
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM" string.
func (m *Month) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Matches reports whether two entries share the exact identity triple.
// The speculative tag is not part of the identity.
func (e Entry) Matches(o Entry) bool {
	return e.Date.Equal(o.Date.Time) &&
		e.Description == o.Description &&
		e.Amount == o.Amount
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w (max 200 characters)", ErrDescriptionTooLong)
	}
	if _, err := ParseAmountStrict(e.Amount); err != nil {
		return err
	}
	return nil
}

func (r Rule) Validate() error {
	if r.StartDate.IsZero() {
		return fmt.Errorf("invalid start date: %w", ErrInvalidDate)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate.Time) {
		return ErrEndBeforeStart
	}
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return fmt.Errorf("%w: day of month %d", ErrDayOutOfRange, *r.DayOfMonth)
	}
	if r.DayOfWeek != nil && (*r.DayOfWeek < time.Sunday || *r.DayOfWeek > time.Saturday) {
		return fmt.Errorf("%w: day of week %d", ErrDayOutOfRange, *r.DayOfWeek)
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Description) > 200 {
		return fmt.Errorf("%w (max 200 characters)", ErrDescriptionTooLong)
	}
	if _, err := ParseAmountStrict(r.Amount); err != nil {
		return err
	}
	return nil
}

func (o Override) Validate() error {
	if strings.TrimSpace(o.RecurringID) == "" {
		return ErrMissingRuleID
	}
	if o.Month.Year == 0 {
		return ErrInvalidMonth
	}
	if _, err := ParseAmountStrict(o.Amount); err != nil {
		return err
	}
	return nil
}
