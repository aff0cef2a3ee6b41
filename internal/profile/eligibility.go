package profile

import "time"

// Cutoff returns the run cutoff instant: now minus inactiveDays whole days, in UTC.
// It is computed once per run, before any remote call.
func Cutoff(now time.Time, inactiveDays int) time.Time {
	return now.UTC().Add(-time.Duration(inactiveDays) * 24 * time.Hour)
}

// Eligible decides inclusion: an unknown last use is eligible, otherwise the
// last use must be at or before the cutoff (inclusive boundary).
func Eligible(lastUseUTC *time.Time, cutoffUTC time.Time) bool {
	if lastUseUTC == nil {
		return true
	}
	return !lastUseUTC.After(cutoffUTC)
}
