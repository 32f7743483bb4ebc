package quota

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity point in time (UTC)
// =============================================================================

type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddYears(n int) Date { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// DayOfYear returns the 1-indexed ordinal day of the year, inclusive of the
// current day (Jan 1 = 1, Dec 31 = 365 or 366).
func (d Date) DayOfYear() int { return d.normalize().YearDay() }

// =============================================================================
// YEAR MATH
// =============================================================================

// IsLeapYear implements the Gregorian rule: divisible by 4, except century
// years, unless also divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years, 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }
