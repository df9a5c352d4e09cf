package dimension

import "time"

// The business week runs Saturday (day 1) through Friday (day 7). Week 1 of
// a year starts on the first Saturday on or after January 1; dates before
// that Saturday still count as week 1. January dates belong to the previous
// fiscal year.

// Fiscal holds the derived fiscal calendar dimensions for one date.
type Fiscal struct {
	Week    int `json:"week"`
	Day     int `json:"day"`
	Quarter int `json:"quarter"`
	Year    int `json:"year"`
}

// FiscalOf derives the fiscal week, day, quarter, and year for a date.
func FiscalOf(d time.Time) Fiscal {
	d = midnight(d)

	week := fiscalWeek(d)
	return Fiscal{
		Week:    week,
		Day:     fiscalDay(d),
		Quarter: fiscalQuarter(week),
		Year:    fiscalYear(d),
	}
}

// fiscalWeek is 1 plus the number of whole 7-day periods between the date's
// week start and the first Saturday on/after January 1, floored, minimum 1.
func fiscalWeek(d time.Time) int {
	start := weekStart(d)
	first := firstSaturday(d.Year())

	days := int(start.Sub(first) / (24 * time.Hour))
	week := 1 + days/7
	if week < 1 {
		week = 1
	}
	return week
}

// fiscalDay maps Saturday to 1 through Friday to 7.
func fiscalDay(d time.Time) int {
	return (int(d.Weekday())+1)%7 + 1
}

func fiscalQuarter(week int) int {
	switch {
	case week <= 13:
		return 1
	case week <= 26:
		return 2
	case week <= 39:
		return 3
	default:
		return 4
	}
}

// fiscalYear is the calendar year, except January dates roll back to the
// previous fiscal year.
func fiscalYear(d time.Time) int {
	if d.Month() == time.January {
		return d.Year() - 1
	}
	return d.Year()
}

// weekStart returns the most recent Saturday on or before d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 1) % 7
	return d.AddDate(0, 0, -offset)
}

// firstSaturday returns the first Saturday on or after January 1 of year.
func firstSaturday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Saturday) - int(jan1.Weekday()) + 7) % 7
	return jan1.AddDate(0, 0, offset)
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
