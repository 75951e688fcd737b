package analysis

import (
	"fmt"
	"time"
)

// Period is a named reporting window ending today.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want week, month, year or all)", s)
}

// Window is a half-open time range [From, To).
type Window struct {
	From  time.Time
	To    time.Time
	Label string
}

// Contains reports whether t falls in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Window returns the range the period covers as of now. Week is the last
// seven days including today; month and year are the current calendar month
// and year. Every window ends at the end of today.
func (p Period) Window(now time.Time, loc *time.Location) Window {
	today := dayOf(now, loc)
	end := nextDay(today)
	switch p {
	case PeriodWeek:
		from := today.AddDate(0, 0, -6)
		return Window{From: from, To: end, Label: "last 7 days"}
	case PeriodMonth:
		from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return Window{From: from, To: end, Label: from.Format("January 2006")}
	case PeriodYear:
		from := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Window{From: from, To: end, Label: from.Format("2006")}
	default:
		return Window{From: time.Unix(0, 0).In(loc), To: end, Label: "all time"}
	}
}

// DateRange builds a window from an explicit start and end date, both
// inclusive.
func DateRange(from, to time.Time, loc *time.Location) Window {
	start := dayOf(from, loc)
	last := dayOf(to, loc)
	return Window{
		From:  start,
		To:    nextDay(last),
		Label: fmt.Sprintf("%s to %s", start.Format(time.DateOnly), last.Format(time.DateOnly)),
	}
}
