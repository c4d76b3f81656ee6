package finance

import "time"

// marketLocation is the New York exchange zone; a fixed EST offset stands in when tzdata is missing.
func marketLocation() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*3600)
}

// LookbackRange returns [start, end] covering the given number of years up to
// today's date on the US market calendar. start keeps today's month and day;
// Feb 29 rolls to Mar 1 in non-leap years.
func LookbackRange(now time.Time, years int) (time.Time, time.Time) {
	y, m, d := now.In(marketLocation()).Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := time.Date(y-years, m, d, 0, 0, 0, 0, time.UTC)
	return start, end
}
