package jobprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/automationd/internal/wire"
)

func TestComputeDeadline_NowIsImmediate(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	d := ComputeDeadline(now, wire.SchedNow, [6]int{})
	require.Equal(t, now, d)
}

func TestComputeDeadline_AtUsesExplicitCalendar(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	d := ComputeDeadline(now, wire.SchedAt, [6]int{2026, 8, 1, 9, 30, 0})
	require.Equal(t, time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC), d)
}

func TestComputeDeadline_DailyPastAdvancesByExactly86400(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 30, 0, time.UTC)
	// h:m:s = 10:00:00, 30s in the past relative to now.
	d := ComputeDeadline(now, wire.SchedDaily, [6]int{0, 0, 0, 10, 0, 0})
	require.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), d)
}

func TestComputeDeadline_HourlyUsesCurrentHour(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 45, 0, 0, time.UTC)
	d := ComputeDeadline(now, wire.SchedHourly, [6]int{0, 0, 0, 0, 15, 0})
	// 10:15:00 is in the past relative to 10:45 -> advance one stride (1h).
	require.Equal(t, time.Date(2026, 7, 31, 11, 15, 0, 0, time.UTC), d)
}

func TestComputeDeadline_WeeklyNextMonday(t *testing.T) {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC) // Friday
	d := ComputeDeadline(now, wire.SchedWeekly, [6]int{0, 0, 0, 9, 0, 0})
	require.Equal(t, time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC), d) // next Monday
}

func TestComputeDeadline_EveryXIsAStride(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	d := ComputeDeadline(now, wire.SchedEveryX, [6]int{0, 0, 0, 0, 5, 0})
	require.Equal(t, now.Add(5*time.Minute), d)
}

func TestStride_MatchesSpecSeconds(t *testing.T) {
	require.Equal(t, time.Hour, Stride(wire.SchedHourly, [6]int{}))
	require.Equal(t, 24*time.Hour, Stride(wire.SchedDaily, [6]int{}))
	require.Equal(t, 7*24*time.Hour, Stride(wire.SchedWeekly, [6]int{}))
	require.Equal(t, 90*time.Second, Stride(wire.SchedEveryX, [6]int{0, 0, 0, 0, 1, 30}))
}
