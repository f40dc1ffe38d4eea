package wsman

import (
	"strconv"
	"time"
)

// FormatDuration renders d as an ISO 8601 duration in seconds, as used by
// OperationTimeout and IdleTimeOut: 20s is "PT20S", 1500ms is "PT1.5S".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d%time.Second == 0 {
		return "PT" + strconv.FormatInt(int64(d/time.Second), 10) + "S"
	}
	return "PT" + strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S"
}
