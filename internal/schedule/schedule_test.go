package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseClockToMinutes(t *testing.T) {
	min, err := ParseClockToMinutes("10:30")
	if err != nil {
		t.Fatalf("ParseClockToMinutes error: %v", err)
	}
	if min != 630 {
		t.Fatalf("expected 630, got %d", min)
	}

	if _, err := ParseClockToMinutes("25:00"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestMinutesToClock(t *testing.T) {
	if got := MinutesToClock(630); got != "10:30" {
		t.Fatalf("expected 10:30, got %s", got)
	}
	if got := MinutesToClock(540); got != "09:00" {
		t.Fatalf("expected 09:00, got %s", got)
	}
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)
	past, err := IsDatePast("2026-02-03", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected date to be past")
	}

	past, err = IsDatePast("2026-02-04", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected date to be not past")
	}
}

func TestWeekday(t *testing.T) {
	loc := mustLoadLoc(t)
	day, err := Weekday("2026-02-01", loc)
	if err != nil {
		t.Fatalf("Weekday error: %v", err)
	}
	if day != time.Sunday {
		t.Fatalf("expected Sunday, got %v", day)
	}
}

func TestOverlaps(t *testing.T) {
	a := Interval{Start: 600, End: 660}
	b := Interval{Start: 630, End: 690}
	c := Interval{Start: 660, End: 720}

	if !Overlaps(a, b) {
		t.Fatalf("expected a and b to overlap")
	}
	if Overlaps(a, c) {
		t.Fatalf("expected adjacent intervals to not overlap")
	}
}

func TestOverlapsWithBuffer(t *testing.T) {
	// 10:00-11:00 booking, 15 minute buffer required.
	existing := Interval{Start: 600, End: 660}

	// 11:10 start leaves only a 10 minute gap.
	tooClose := Interval{Start: 670, End: 720}
	if !OverlapsWithBuffer(existing, tooClose, 15) {
		t.Fatalf("expected 10 minute gap to conflict with 15 minute buffer")
	}

	// 11:20 start leaves a 20 minute gap.
	farEnough := Interval{Start: 680, End: 720}
	if OverlapsWithBuffer(existing, farEnough, 15) {
		t.Fatalf("expected 20 minute gap to clear 15 minute buffer")
	}

	// Buffer applies on the other side too.
	before := Interval{Start: 530, End: 590}
	if !OverlapsWithBuffer(existing, before, 15) {
		t.Fatalf("expected buffer to apply symmetrically")
	}

	if !OverlapsWithBuffer(existing, Interval{Start: 630, End: 690}, 0) {
		t.Fatalf("expected zero buffer to behave like plain overlap")
	}
}

func TestSubtractSplits(t *testing.T) {
	blocks := []Interval{{Start: 840, End: 960}} // 14:00-16:00
	got := Subtract(blocks, Interval{Start: 870, End: 900})
	if len(got) != 2 {
		t.Fatalf("expected split into 2 intervals, got %v", got)
	}
	if got[0] != (Interval{Start: 840, End: 870}) || got[1] != (Interval{Start: 900, End: 960}) {
		t.Fatalf("unexpected split result: %v", got)
	}
}

func TestSubtractRemovesCovered(t *testing.T) {
	blocks := []Interval{
		{Start: 840, End: 900},
		{Start: 900, End: 960},
	}
	got := Subtract(blocks, Interval{Start: 840, End: 900})
	if len(got) != 1 || got[0] != (Interval{Start: 900, End: 960}) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestSubtractTrims(t *testing.T) {
	blocks := []Interval{{Start: 840, End: 960}}
	got := Subtract(blocks, Interval{Start: 900, End: 1020})
	if len(got) != 1 || got[0] != (Interval{Start: 840, End: 900}) {
		t.Fatalf("unexpected trim result: %v", got)
	}
}

func TestSubtractUntouched(t *testing.T) {
	blocks := []Interval{{Start: 600, End: 660}}
	got := Subtract(blocks, Interval{Start: 700, End: 760})
	if len(got) != 1 || got[0] != blocks[0] {
		t.Fatalf("expected untouched interval, got %v", got)
	}
}
