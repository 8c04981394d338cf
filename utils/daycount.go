package utils

import (
	"fmt"
	"strings"
	"time"
)

// Supported day count conventions.
const (
	Act360    = "ACT/360"
	Act365F   = "ACT/365F"
	Thirty360 = "30/360"
)

// ParseDayCount normalises a day count name. An empty name means ACT/365F,
// the time basis of the curve axis.
func ParseDayCount(name string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "ACT/365F", "ACT/365", "A365F":
		return Act365F, nil
	case "ACT/360", "A360":
		return Act360, nil
	case "30/360", "30E/360":
		return Thirty360, nil
	default:
		return "", fmt.Errorf("unsupported day count %q", name)
	}
}

// YearFraction computes year fraction between two dates using the specified day count convention.
// Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Thirty360:
		// 30E/360: day-of-month capped at 30 on both ends
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// YearFractions maps dates onto a time axis anchored at anchor.
func YearFractions(anchor time.Time, dates []time.Time, convention string) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = YearFraction(anchor, d, convention)
	}
	return out
}
