// Package schedule spreads a batch of card-creation requests over a pool of
// assignees and a pool of eligible business days.
package schedule

import (
	"fmt"
	"time"
)

// Mode selects how the eligible-day pool is built for a batch.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeWeekly Mode = "weekly"
	ModePeriod Mode = "period"
)

// Weekday indices use a Monday-start week: 0=Monday .. 6=Sunday.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func isBusinessDay(t time.Time) bool {
	return mondayIndex(t.Weekday()) < 5
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// PeriodPool returns every Monday-Friday calendar day in [start, end]
// inclusive, in ascending order. Time-of-day on the bounds is ignored.
func PeriodPool(start, end time.Time) []time.Time {
	var days []time.Time
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		if isBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// WeeklyPool finds the next occurrence of startWeekday (0=Monday .. 6=Sunday)
// on or after today, then takes that day plus the four subsequent calendar
// days, keeping business days only. The pool therefore never exceeds five
// days.
func WeeklyPool(startWeekday int, today time.Time) ([]time.Time, error) {
	if startWeekday < 0 || startWeekday > 6 {
		return nil, fmt.Errorf("invalid start weekday %d: must be 0 (Monday) to 6 (Sunday)", startWeekday)
	}

	base := dateOnly(today)
	offset := (startWeekday - mondayIndex(base.Weekday()) + 7) % 7
	first := base.AddDate(0, 0, offset)

	var days []time.Time
	for i := 0; i < 5; i++ {
		d := first.AddDate(0, 0, i)
		if isBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days, nil
}

// Distribute computes the assignee and due date for the i-th item of a batch
// given the assignee pool and the eligible-day pool. It is a pure function:
// the same inputs always yield the same pair.
//
// With both pools non-empty, assignees rotate round-robin and the day only
// advances once every assignee has received one item; both dimensions wrap
// independently. A due date, when assigned, is end-of-day of the chosen
// calendar day.
func Distribute(i int, assignees []string, days []time.Time) (string, *time.Time) {
	a := len(assignees)
	d := len(days)

	var assignee string
	var due *time.Time

	switch {
	case a > 0 && d > 0:
		assignee = assignees[i%a]
		day := endOfDay(days[(i/a)%d])
		due = &day
	case a > 0:
		assignee = assignees[i%a]
	case d > 0:
		day := endOfDay(days[i%d])
		due = &day
	}

	return assignee, due
}
