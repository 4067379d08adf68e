package domain

import (
	"fmt"
	"time"
)

// DateLayout is the canonical ISO-8601 text form of a Date.
const DateLayout = "2006-01-02"

// readDateLayout tolerates single-digit month/day on input.
const readDateLayout = "2006-1-2"

// Date is a civil date with day-level granularity. The zero value means
// "unset" (an empty cell, an unclosed ledger, an open-ended exercise).
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// DateFromTime truncates t to its civil date.
func DateFromTime(t time.Time) Date {
	return NewDate(t.Date())
}

// Today returns the current civil date.
func Today() Date {
	return NewDate(time.Now().Date())
}

// ParseDate parses s with the given layout, falling back to the permissive
// ISO form. An empty string parses to the zero Date without error.
func ParseDate(s, layout string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	if layout == "" {
		layout = DateLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		t, err = time.Parse(readDateLayout, s)
	}
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateFromTime(t), nil
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

// Time returns the canonical time.Time for the date (midnight UTC).
func (d Date) Time() time.Time { return d.time() }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether d falls strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d falls strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// AddDays returns the date i days after d.
func (d Date) AddDays(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// String formats the date in its canonical ISO-8601 form, empty when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(DateLayout)
}

// Format formats the date according to the given time layout.
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(layout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text), DateLayout)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MaxDate returns the later of the given dates, ignoring unset ones.
func MaxDate(dates ...Date) Date {
	var max Date
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if max.IsZero() || d.After(max) {
			max = d
		}
	}
	return max
}
