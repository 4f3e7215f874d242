package week

import (
	"errors"
	"testing"
	"time"
)

// TestParse_Valid tests parsing of well-formed week identifiers.
func TestParse_Valid(t *testing.T) {
	tests := []struct {
		id   string
		year int
		wk   int
	}{
		{"2026-W01", 2026, 1},
		{"2025-W53", 2025, 53},
		{"1999-W09", 1999, 9},
		{"2020-W52", 2020, 52},
	}
	for _, tt := range tests {
		year, wk, err := Parse(tt.id)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.id, err)
			continue
		}
		if year != tt.year || wk != tt.wk {
			t.Errorf("Parse(%q) = (%d, %d), want (%d, %d)", tt.id, year, wk, tt.year, tt.wk)
		}
	}
}

// TestParse_Malformed tests that bad identifiers produce a FormatError.
func TestParse_Malformed(t *testing.T) {
	bad := []string{
		"",
		"2026-1",
		"2026-W1",
		"2026W01",
		"26-W01",
		"2026-W00",
		"2026-W54",
		"2026-w01",
		"2026-W011",
	}
	for _, id := range bad {
		_, _, err := Parse(id)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", id)
			continue
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("Parse(%q) error = %T, want *FormatError", id, err)
		}
	}
}

// TestBoundaries_KnownWeek tests the year-straddling first week of 2026.
func TestBoundaries_KnownWeek(t *testing.T) {
	start, end, err := Boundaries("2026-W01")
	if err != nil {
		t.Fatalf("Boundaries() failed: %v", err)
	}
	wantStart := time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

// TestBoundaries_AlwaysMondayToSunday tests the Monday/Sunday invariant over
// a spread of years and week numbers.
func TestBoundaries_AlwaysMondayToSunday(t *testing.T) {
	for year := 1995; year <= 2035; year++ {
		for wk := 1; wk <= LastWeekOfYear(year); wk++ {
			id := Format(year, wk)
			start, end, err := Boundaries(id)
			if err != nil {
				t.Fatalf("Boundaries(%q) failed: %v", id, err)
			}
			if start.Weekday() != time.Monday {
				t.Errorf("%s: start %v is %v, want Monday", id, start, start.Weekday())
			}
			if end.Weekday() != time.Sunday {
				t.Errorf("%s: end %v is %v, want Sunday", id, end, end.Weekday())
			}
			if !end.Equal(start.AddDate(0, 0, 6)) {
				t.Errorf("%s: end is not start+6 days", id)
			}
		}
	}
}

// TestCurrentID_RoundTrip tests that the current week's boundaries always
// contain the instant the identifier was computed from.
func TestCurrentID_RoundTrip(t *testing.T) {
	now := time.Date(2024, time.March, 7, 15, 30, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		id := CurrentID(now, time.UTC)
		start, end, err := Boundaries(id)
		if err != nil {
			t.Fatalf("Boundaries(%q) failed: %v", id, err)
		}
		if start.Weekday() != time.Monday {
			t.Fatalf("%s: start is %v, want Monday", id, start.Weekday())
		}
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(start) || day.After(end) {
			t.Fatalf("%s: %v outside [%v, %v]", id, day, start, end)
		}
		now = now.AddDate(0, 0, 3)
	}
}

// TestCurrentID_Timezone tests that the timezone shifts the week at a year
// boundary.
func TestCurrentID_Timezone(t *testing.T) {
	// 2024-12-30 23:30 UTC is already Tuesday week 1 of 2025 in Auckland.
	instant := time.Date(2024, time.December, 30, 23, 30, 0, 0, time.UTC)
	if got := CurrentID(instant, time.UTC); got != "2025-W01" {
		t.Errorf("CurrentID(UTC) = %q, want 2025-W01", got)
	}
	akl, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := CurrentID(instant, akl); got != "2025-W01" {
		t.Errorf("CurrentID(Auckland) = %q, want 2025-W01", got)
	}
}

// TestLastWeekOfYear_Rule tests the 52/53 rule against the weekday of Dec 31.
func TestLastWeekOfYear_Rule(t *testing.T) {
	for year := 1900; year <= 2100; year++ {
		got := LastWeekOfYear(year)
		if got != 52 && got != 53 {
			t.Fatalf("LastWeekOfYear(%d) = %d, want 52 or 53", year, got)
		}
		dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		want53 := dec31.Weekday() == time.Thursday ||
			(isLeap(year) && dec31.Weekday() == time.Friday)
		if (got == 53) != want53 {
			t.Errorf("LastWeekOfYear(%d) = %d, Dec 31 is %v, leap=%v", year, got, dec31.Weekday(), isLeap(year))
		}
	}
}

// TestLastWeekOfYear_KnownYears tests a few years with known week counts.
func TestLastWeekOfYear_KnownYears(t *testing.T) {
	long := []int{2004, 2009, 2015, 2020, 2026}
	for _, year := range long {
		if got := LastWeekOfYear(year); got != 53 {
			t.Errorf("LastWeekOfYear(%d) = %d, want 53", year, got)
		}
	}
	short := []int{2021, 2022, 2023, 2024, 2025}
	for _, year := range short {
		if got := LastWeekOfYear(year); got != 52 {
			t.Errorf("LastWeekOfYear(%d) = %d, want 52", year, got)
		}
	}
}

// TestPrevious_YearBoundary tests stepping back over a year boundary into a
// 52- and a 53-week year.
func TestPrevious_YearBoundary(t *testing.T) {
	got, err := Previous("2026-W01")
	if err != nil {
		t.Fatalf("Previous() failed: %v", err)
	}
	if got != "2025-W52" {
		t.Errorf("Previous(2026-W01) = %q, want 2025-W52", got)
	}

	// 2020 had 53 weeks.
	got, err = Previous("2021-W01")
	if err != nil {
		t.Fatalf("Previous() failed: %v", err)
	}
	if got != "2020-W53" {
		t.Errorf("Previous(2021-W01) = %q, want 2020-W53", got)
	}
}

// TestNext_YearBoundary tests stepping forward over both kinds of year end.
func TestNext_YearBoundary(t *testing.T) {
	got, err := Next("2025-W52")
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if got != "2026-W01" {
		t.Errorf("Next(2025-W52) = %q, want 2026-W01", got)
	}

	got, err = Next("2020-W52")
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if got != "2020-W53" {
		t.Errorf("Next(2020-W52) = %q, want 2020-W53", got)
	}
}

// TestPreviousNext_Inverse tests that Next undoes Previous across two years
// of weeks.
func TestPreviousNext_Inverse(t *testing.T) {
	id := "2020-W01"
	for i := 0; i < 110; i++ {
		next, err := Next(id)
		if err != nil {
			t.Fatalf("Next(%q) failed: %v", id, err)
		}
		back, err := Previous(next)
		if err != nil {
			t.Fatalf("Previous(%q) failed: %v", next, err)
		}
		if back != id {
			t.Fatalf("Previous(Next(%q)) = %q", id, back)
		}
		id = next
	}
}

// TestAdd tests multi-week stepping in both directions.
func TestAdd(t *testing.T) {
	got, err := Add("2025-W50", 4)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if got != "2026-W02" {
		t.Errorf("Add(2025-W50, 4) = %q, want 2026-W02", got)
	}

	got, err = Add("2026-W02", -4)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if got != "2025-W50" {
		t.Errorf("Add(2026-W02, -4) = %q, want 2025-W50", got)
	}
}

// TestCompare tests chronological ordering of identifiers.
func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		sign int
	}{
		{"2025-W53", "2026-W01", -1},
		{"2026-W01", "2025-W53", 1},
		{"2026-W10", "2026-W10", 0},
		{"2026-W09", "2026-W10", -1},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Compare(%q, %q) failed: %v", tt.a, tt.b, err)
		}
		switch {
		case tt.sign < 0 && got >= 0,
			tt.sign == 0 && got != 0,
			tt.sign > 0 && got <= 0:
			t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.sign)
		}
	}
}
