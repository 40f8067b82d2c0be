package pricing

import "time"

// holidayRange is a recurring month/day span. An end month earlier than the
// start month means the range wraps into the next year.
type holidayRange struct {
	startMonth time.Month
	startDay   int
	endMonth   time.Month
	endDay     int
}

// High-demand periods the analyzer treats as holidays. Resolved against the
// booking's own year, so the table does not expire.
var holidayCalendar = []holidayRange{
	{time.December, 20, time.January, 5}, // Christmas / New Year
	{time.January, 25, time.February, 5}, // Chinese New Year
	{time.March, 28, time.April, 5},      // Easter
}

// overlapsHoliday reports whether the interval [start, end) intersects any
// holiday period. End days are inclusive.
func overlapsHoliday(start, end time.Time) bool {
	for _, hr := range holidayCalendar {
		if hr.overlaps(start, end) {
			return true
		}
	}
	return false
}

func (hr holidayRange) overlaps(start, end time.Time) bool {
	for year := start.Year() - 1; year <= end.Year(); year++ {
		hs := time.Date(year, hr.startMonth, hr.startDay, 0, 0, 0, 0, start.Location())
		endYear := year
		if hr.endMonth < hr.startMonth {
			endYear++
		}
		he := time.Date(endYear, hr.endMonth, hr.endDay, 0, 0, 0, 0, start.Location()).AddDate(0, 0, 1)
		if start.Before(he) && end.After(hs) {
			return true
		}
	}
	return false
}
