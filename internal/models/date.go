package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	legacyDateLayout = "Mon Jan 02 2006"
)

// Date is a calendar day without a time of day or a time zone.
//
// Dates are taken from a time.Time in that time's own location, so a Date built from a device-local clock
// represents the user's day rather than the UTC day. The zero Date means "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02", the legacy "Mon Jan 02 2006" form or an RFC 3339 timestamp.
//
// An empty string yields the zero Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	for _, layout := range []string{dateLayout, legacyDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOf(t), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date: %q", value)
}

// IsZero reports whether d is unset
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// AddDays returns the date n calendar days after d (n may be negative)
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Equal reports whether both dates name the same day
func (d Date) Equal(other Date) bool {
	return d == other
}

// Before reports whether d is an earlier day than other
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// String formats d as "2006-01-02", or "" for the zero Date
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes d as "2006-01-02" or null
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, an empty string or any format understood by ParseDate
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
