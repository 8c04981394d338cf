package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/marketmodel/utils"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	None   CalendarID = "NONE"
	TARGET CalendarID = "TARGET"
	USD    CalendarID = "USD"
	JPN    CalendarID = "JPN"
	KRW    CalendarID = "KRW"
)

// fixed-date holidays as MM-DD; moveable feasts are not modelled
var fixedHolidays = map[CalendarID]map[string]struct{}{
	TARGET: set("01-01", "05-01", "12-25", "12-26"),
	USD:    set("01-01", "06-19", "07-04", "11-11", "12-25"),
	JPN:    set("01-01", "01-02", "01-03", "02-11", "02-23", "04-29", "05-03", "05-04", "05-05", "11-03", "11-23", "12-31"),
	KRW:    set("01-01", "03-01", "05-05", "06-06", "08-15", "10-03", "10-09", "12-25"),
}

func set(days ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(days))
	for _, d := range days {
		m[d] = struct{}{}
	}
	return m
}

// Parse resolves a calendar name. An empty name means no holidays.
func Parse(name string) (CalendarID, error) {
	id := CalendarID(strings.ToUpper(strings.TrimSpace(name)))
	if id == "" || id == None {
		return None, nil
	}
	if _, ok := fixedHolidays[id]; !ok {
		return "", fmt.Errorf("unknown calendar %q", name)
	}
	return id, nil
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := fixedHolidays[cal][t.Format("01-02")]
	return !holiday
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// RegularDates returns periods+1 dates spaced tenorMonths apart from start,
// each rolled Modified Following. Months are counted from the unadjusted start
// so adjustments do not accumulate; start itself is returned unadjusted.
func RegularDates(cal CalendarID, start time.Time, tenorMonths, periods int) []time.Time {
	out := make([]time.Time, 0, periods+1)
	out = append(out, start)
	for i := 1; i <= periods; i++ {
		out = append(out, Adjust(cal, utils.AddMonth(start, tenorMonths*i)))
	}
	return out
}
