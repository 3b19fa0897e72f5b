package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidTime     = errors.New("invalid time format")
	ErrInvalidDuration = errors.New("invalid duration")
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse("15:04", timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	_, err := ParseDate(dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}

	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

func Weekday(dateStr string, loc *time.Location) (time.Weekday, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return 0, err
	}
	return date.Weekday(), nil
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// Interval is a half-open [Start, End) range in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Empty() bool {
	return i.End <= i.Start
}

func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// OverlapsWithBuffer reports whether two intervals conflict once a mandatory
// idle gap is enforced between them. The buffer applies symmetrically: a gap
// smaller than bufferMinutes on either side counts as a conflict.
func OverlapsWithBuffer(a, b Interval, bufferMinutes int) bool {
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	return a.Start < b.End+bufferMinutes && b.Start < a.End+bufferMinutes
}

// Subtract removes cut from each interval, dropping fully covered pieces and
// splitting any interval the cut bisects. Input order is preserved.
func Subtract(intervals []Interval, cut Interval) []Interval {
	if cut.Empty() {
		return intervals
	}
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !Overlaps(iv, cut) {
			out = append(out, iv)
			continue
		}
		left := Interval{Start: iv.Start, End: cut.Start}
		right := Interval{Start: cut.End, End: iv.End}
		if !left.Empty() {
			out = append(out, left)
		}
		if !right.Empty() {
			out = append(out, right)
		}
	}
	return out
}
