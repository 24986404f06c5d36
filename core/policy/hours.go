// Package policy holds the pure decision rules the conversation consults.
package policy

import (
	"time"

	"github.com/m3rciful/leadbot/core/tenant"
)

// IsOpen reports whether now falls inside the tenant's working hours. The tenant-local
// weekday and hour are derived by shifting UTC by the fixed offset, so the result depends
// only on the arguments.
func IsOpen(h tenant.WorkingHours, now time.Time) bool {
	local := now.UTC().Add(h.UTCOffset)
	if !containsDay(h.Days, local.Weekday()) {
		return false
	}
	hour := local.Hour()
	return hour >= h.StartHour && hour < h.EndHour
}

func containsDay(days []time.Weekday, d time.Weekday) bool {
	for _, wd := range days {
		if wd == d {
			return true
		}
	}
	return false
}
