package normalize

import (
	"strings"
	"testing"
)

func TestInferDatesPriorityOrder(t *testing.T) {
	start, _ := InferDates(
		"Saturday 12 March 2026",
		"Previously held on 1 January 2020.",
		"First announced 5 May 2019.",
		testLoc)

	if !strings.HasPrefix(start, "2026-03-12") {
		t.Errorf("Expected display text to take priority, got start: %q", start)
	}
}

func TestInferDatesFallsBackToBody(t *testing.T) {
	start, end := InferDates("every weekend", "", "Doors open 5 May 2026 at the hall.", testLoc)

	if !strings.HasPrefix(start, "2026-05-05") {
		t.Errorf("Expected body date, got start: %q", start)
	}
	if end != start {
		t.Errorf("Expected end to default to start, got: %q vs %q", end, start)
	}
}

func TestInferDatesSecondMatchBecomesEnd(t *testing.T) {
	start, end := InferDates("12 March 2026 - 14 March 2026", "", "", testLoc)

	if !strings.HasPrefix(start, "2026-03-12") {
		t.Errorf("Expected start on first date, got: %q", start)
	}
	if !strings.HasPrefix(end, "2026-03-14") {
		t.Errorf("Expected end on second date, got: %q", end)
	}
}

func TestInferDatesOrdinalAndMonthFirst(t *testing.T) {
	start, _ := InferDates("March 14th, 2026", "", "", testLoc)

	if !strings.HasPrefix(start, "2026-03-14") {
		t.Errorf("Expected ordinal month-first phrase parsed, got: %q", start)
	}
}

func TestInferDatesISOForm(t *testing.T) {
	start, _ := InferDates("", "Registration closes 2026-07-01.", "", testLoc)

	if !strings.HasPrefix(start, "2026-07-01") {
		t.Errorf("Expected ISO date parsed, got: %q", start)
	}
}

func TestInferDatesCivilOffset(t *testing.T) {
	start, _ := InferDates("12 March 2026", "", "", testLoc)

	if !strings.HasSuffix(start, "+08:00") {
		t.Errorf("Expected +08:00 civil offset, got: %q", start)
	}
}

func TestInferDatesNothingDateLike(t *testing.T) {
	start, end := InferDates("every weekend", "fun for everyone", "see website", testLoc)

	if start != "" || end != "" {
		t.Errorf("Expected no inference from date-free text, got: %q / %q", start, end)
	}
}

func TestDisplayDateRange(t *testing.T) {
	display := displayDate("2026-03-12T00:00:00+08:00", "2026-03-14T00:00:00+08:00", testLoc)
	if display != "12 Mar 2026 - 14 Mar 2026" {
		t.Errorf("Expected range display, got: %q", display)
	}

	single := displayDate("2026-03-12T00:00:00+08:00", "2026-03-12T00:00:00+08:00", testLoc)
	if single != "12 Mar 2026" {
		t.Errorf("Expected single-day display, got: %q", single)
	}
}
