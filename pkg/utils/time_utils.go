package utils

import "time"

// TwoDigitYear is the year of t in loc, modulo 100, e.g. "25".
func TwoDigitYear(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("06")
}
