package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the canonical wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is a value object representing a calendar date with no time-of-day
// or time-zone component. All date arithmetic in the ledger is whole-day
// arithmetic; two records on the same calendar day compare equal regardless
// of the wall-clock time they were captured at.
type Date struct {
	t time.Time
}

// NewDate creates a Date from year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a date in the canonical "2006-01-02" format
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate parses a date, panicking on bad input. For fixtures only.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current calendar date
func Today() Date {
	return DateOf(time.Now())
}

// IsZero returns true if the date is the zero value
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the date as a time.Time at UTC midnight
func (d Date) Time() time.Time {
	return d.t
}

// Year returns the calendar year
func (d Date) Year() int {
	return d.t.Year()
}

// AddDays returns the date n days later (or earlier for negative n)
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the number of whole days from other to d.
// Positive when d is after other.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

// Before reports whether d is before other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After reports whether d is after other
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal reports whether d and other are the same calendar date
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// String returns the date in the canonical format
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.t.Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.t, nil
}

// Scan implements sql.Scanner for database retrieval
func (d *Date) Scan(value any) error {
	if value == nil {
		*d = Date{}
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v[:min(len(v), len(DateLayout))])
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}
