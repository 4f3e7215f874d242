// Package week provides ISO-8601 week arithmetic.
//
// Every entity in the local store is keyed off a week identifier of the form
// "YYYY-Www" (e.g. "2026-W01"). A week always starts on Monday and spans
// seven days. Week 1 of a year is the week containing the first Thursday of
// that year, which means it can begin in the previous calendar year.
//
// All functions are pure; no I/O is performed.
package week

import (
	"fmt"
	"regexp"
	"time"
)

// idPattern is the canonical week identifier format. Callers must validate
// against this pattern before doing boundary math.
var idPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

// FormatError reports a week identifier that does not match the
// YYYY-Www format or carries an out-of-range week number.
type FormatError struct {
	ID string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed week id %q (want YYYY-Www, week 01-53)", e.ID)
}

// Valid reports whether id matches the YYYY-Www pattern with a week number
// between 1 and 53.
func Valid(id string) bool {
	_, _, err := Parse(id)
	return err == nil
}

// Parse splits a week identifier into its year and week number.
// Returns a *FormatError if the identifier is malformed.
func Parse(id string) (year, wk int, err error) {
	if !idPattern.MatchString(id) {
		return 0, 0, &FormatError{ID: id}
	}
	if _, err := fmt.Sscanf(id, "%4d-W%2d", &year, &wk); err != nil {
		return 0, 0, &FormatError{ID: id}
	}
	if wk < 1 || wk > 53 {
		return 0, 0, &FormatError{ID: id}
	}
	return year, wk, nil
}

// Format renders a year and week number as a week identifier.
func Format(year, wk int) string {
	return fmt.Sprintf("%04d-W%02d", year, wk)
}

// CurrentID returns the week identifier for the given instant in the given
// timezone. A nil location means the instant's own location is used.
func CurrentID(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	y, w := now.ISOWeek()
	return Format(y, w)
}

// Boundaries returns the Monday start date and Sunday end date of the week,
// both at midnight UTC. The end date is always start+6 days.
func Boundaries(id string) (start, end time.Time, err error) {
	year, wk, err := Parse(id)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = week1Monday(year).AddDate(0, 0, (wk-1)*7)
	end = start.AddDate(0, 0, 6)
	return start, end, nil
}

// week1Monday returns the Monday of ISO week 1, which is the week containing
// January 4th.
func week1Monday(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7 // Sunday
	}
	return jan4.AddDate(0, 0, 1-wd)
}

// Previous returns the identifier of the week before id. Crossing a year
// boundary recomputes the previous year's last week number; it is not a
// hardcoded 52.
func Previous(id string) (string, error) {
	year, wk, err := Parse(id)
	if err != nil {
		return "", err
	}
	wk--
	if wk < 1 {
		year--
		wk = LastWeekOfYear(year)
	}
	return Format(year, wk), nil
}

// Next returns the identifier of the week after id.
func Next(id string) (string, error) {
	year, wk, err := Parse(id)
	if err != nil {
		return "", err
	}
	if wk >= LastWeekOfYear(year) {
		return Format(year+1, 1), nil
	}
	return Format(year, wk+1), nil
}

// Add returns the identifier n weeks after id. Negative n steps backwards.
func Add(id string, n int) (string, error) {
	if _, _, err := Parse(id); err != nil {
		return "", err
	}
	var err error
	for ; n > 0; n-- {
		if id, err = Next(id); err != nil {
			return "", err
		}
	}
	for ; n < 0; n++ {
		if id, err = Previous(id); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Compare orders two week identifiers chronologically. It returns a negative
// value if a is before b, zero if equal, positive if after.
func Compare(a, b string) (int, error) {
	ay, aw, err := Parse(a)
	if err != nil {
		return 0, err
	}
	by, bw, err := Parse(b)
	if err != nil {
		return 0, err
	}
	if ay != by {
		return ay - by, nil
	}
	return aw - bw, nil
}

// LastWeekOfYear returns 52 or 53. A year has 53 ISO weeks iff December 31st
// falls on a Thursday, or the year is a leap year and December 31st falls on
// a Friday.
func LastWeekOfYear(year int) int {
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	switch dec31.Weekday() {
	case time.Thursday:
		return 53
	case time.Friday:
		if isLeap(year) {
			return 53
		}
	}
	return 52
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
