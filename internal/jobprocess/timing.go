// Package jobprocess implements the per-job lifecycle: deadline timing math,
// the fork-a-child-process fire callback, kill/cancel, and recurring-job
// backup durability.
//
// Grounded on serversystem/scheduler.py's deadline arithmetic and
// serverengine/jobmodel.py's Job.run/kill, adapted onto this module's
// container/heap event queue (internal/eventqueue, itself modeled on the
// same Python file) rather than the teacher's own ticker-based scheduler.
package jobprocess

import (
	"time"

	"github.com/mattjoyce/automationd/internal/wire"
)

// Stride returns the recurrence interval for a mode. Only meaningful for
// recurring modes (HOURLY, DAILY, WEEKLY, EVERY_X).
func Stride(mode wire.SchedMode, at [6]int) time.Duration {
	h, m, s := at[3], at[4], at[5]
	switch mode {
	case wire.SchedHourly:
		return time.Hour
	case wire.SchedDaily:
		return 24 * time.Hour
	case wire.SchedWeekly:
		return 7 * 24 * time.Hour
	case wire.SchedEveryX:
		return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	default:
		return 0
	}
}

// pythonWeekday converts Go's time.Weekday (Sunday=0) to the original
// source's convention (Monday=0), since WEEKLY's `D` field is authored
// against that convention — see SPEC_FULL.md.
func pythonWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ComputeDeadline implements the §4.D timing table for the initial deadline,
// then advances a recurring result by its stride in a loop until it is
// >= now.
func ComputeDeadline(now time.Time, mode wire.SchedMode, at [6]int) time.Time {
	y, mo, d, h, mi, s := at[0], at[1], at[2], at[3], at[4], at[5]

	var deadline time.Time
	switch mode {
	case wire.SchedNow:
		deadline = now
	case wire.SchedAt:
		deadline = time.Date(y, time.Month(mo), d, h, mi, s, 0, now.Location())
	case wire.SchedHourly:
		deadline = time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), mi, s, 0, now.Location())
	case wire.SchedDaily:
		deadline = time.Date(now.Year(), now.Month(), now.Day(), h, mi, s, 0, now.Location())
	case wire.SchedWeekly:
		deadline = nextWeekday(now, d, h, mi, s)
	case wire.SchedEveryX:
		deadline = now.Add(Stride(mode, at))
	default:
		deadline = now
	}

	if mode.Recurring() {
		stride := Stride(mode, at)
		if stride <= 0 {
			return deadline
		}
		for deadline.Before(now) {
			deadline = deadline.Add(stride)
		}
	}
	return deadline
}

// nextWeekday finds the next day (starting from today, inclusive) whose
// Python-convention weekday index equals target, at the given time of day.
func nextWeekday(now time.Time, target, h, mi, s int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), h, mi, s, 0, now.Location())
	for i := 0; i < 7; i++ {
		candidate := day.AddDate(0, 0, i)
		if pythonWeekday(candidate) == target {
			return candidate
		}
	}
	return day
}
