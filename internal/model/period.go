package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Period is a calendar quarter-end date in YYYY-MM-DD form.
type Period string

const periodLayout = "2006-01-02"

// ParsePeriod parses and validates a reporting period. Call Report filings
// cover calendar quarters, so the date must fall on a quarter-end.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", eris.Wrapf(err, "model: parse period %q", s)
	}
	switch t.Month() {
	case time.March, time.June, time.September, time.December:
	default:
		return "", eris.Errorf("model: period %q does not end a calendar quarter", s)
	}
	if t.AddDate(0, 0, 1).Month() == t.Month() {
		return "", eris.Errorf("model: period %q is not the last day of the month", s)
	}
	return Period(t.Format(periodLayout)), nil
}

// Time returns the period as a time.Time (UTC midnight).
func (p Period) Time() time.Time {
	t, _ := time.Parse(periodLayout, string(p))
	return t
}

// Month returns the calendar month the period ends in.
func (p Period) Month() time.Month {
	return p.Time().Month()
}

func (p Period) String() string { return string(p) }
