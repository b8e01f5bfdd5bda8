package caldate

import (
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
	invalidText    = "Invalid date"
)

// Date is a point-in-time value that may have failed to parse.
// Dates are wall-clock values: they are stored in UTC and never converted.
// The zero value is invalid.
type Date struct {
	t       time.Time
	valid   bool
	hasTime bool
	raw     string
}

// New returns a valid date-only value.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), valid: true}
}

// NewDateTime returns a valid date-and-time value with minute precision.
func NewDateTime(year int, month time.Month, day, hour, min int) Date {
	return Date{t: time.Date(year, month, day, hour, min, 0, 0, time.UTC), valid: true, hasTime: true}
}

// FromTime takes the calendar day of t in its own location.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Invalid records text that looked like a date but could not be read.
func Invalid(raw string) Date {
	return Date{raw: raw}
}

// Parse reads a strict YYYY-MM-DD date. Anything else is invalid.
func Parse(s string) Date {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Invalid(s)
	}
	return Date{t: t, valid: true}
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Date {
	d := Parse(s)
	if !d.valid {
		panic("caldate: invalid date " + s)
	}
	return d
}

// Ptr returns a pointer to a copy of d.
func Ptr(d Date) *Date {
	return &d
}

func (d Date) IsValid() bool { return d.valid }

func (d Date) HasTime() bool { return d.valid && d.hasTime }

func (d Date) Time() time.Time { return d.t }

// Raw returns the text an invalid date was read from.
func (d Date) Raw() string { return d.raw }

// Before, After and Same are false when either side is invalid.
func (d Date) Before(o Date) bool {
	return d.valid && o.valid && d.t.Before(o.t)
}

func (d Date) After(o Date) bool {
	return d.valid && o.valid && d.t.After(o.t)
}

func (d Date) Same(o Date) bool {
	return d.valid && o.valid && d.t.Equal(o.t)
}

// StartOfDay drops the time component.
func (d Date) StartOfDay() Date {
	if !d.valid {
		return d
	}
	return New(d.t.Year(), d.t.Month(), d.t.Day())
}

// AddDate shifts a valid date, keeping its time component.
func (d Date) AddDate(years, months, days int) Date {
	if !d.valid {
		return d
	}
	d.t = d.t.AddDate(years, months, days)
	return d
}

// AddMonths shifts a valid date by whole months, clamping the day to the
// end of the target month (Jan 31 + 1 month is Feb 28 or 29).
func (d Date) AddMonths(months int) Date {
	if !d.valid {
		return d
	}
	first := time.Date(d.t.Year(), d.t.Month()+time.Month(months), 1, d.t.Hour(), d.t.Minute(), 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.t.Day()
	if day > last {
		day = last
	}
	d.t = first.AddDate(0, 0, day-1)
	return d
}

// Format applies a time layout, or returns "Invalid date".
func (d Date) Format(layout string) string {
	if !d.valid {
		return invalidText
	}
	return d.t.Format(layout)
}

// String is the canonical text used in task lines. Invalid dates keep
// their original text so a line is reproduced byte for byte.
func (d Date) String() string {
	switch {
	case !d.valid && d.raw != "":
		return d.raw
	case !d.valid:
		return invalidText
	case d.hasTime:
		return d.t.Format(DateTimeLayout)
	default:
		return d.t.Format(DateLayout)
	}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC); err == nil {
		*d = Date{t: t, valid: true, hasTime: true}
		return nil
	}
	*d = Parse(s)
	return nil
}
