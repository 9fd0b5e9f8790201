package timetrack

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// FormatDuration renders d as [D day[s], ]H:MM:SS[.ffffff]. Negative
// durations are rendered with a leading minus sign.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Microsecond)

	days := d / day
	d -= days * day
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	us := (d - s*time.Second) / time.Microsecond

	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	if us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, %s", days, out)
	}
	return sign + out
}
