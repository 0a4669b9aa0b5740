package wire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LogKind is the second field of a job.log line.
type LogKind string

const (
	KindJobStarted     LogKind = "job-started"
	KindJobStopped     LogKind = "job-stopped"
	KindJobError       LogKind = "job-error"
	KindJobLog         LogKind = "job-log"
	KindSnippetBegin   LogKind = "snippet-begin"
	KindSnippetEnding  LogKind = "snippet-ending"
	KindSnippetLog     LogKind = "snippet-log"
	KindSnippetError   LogKind = "snippet-error"
)

// JobRef is the log-line ref used for job-scoped lines (id 0).
const JobRef = "0"

// Timestamp renders t as "HH:MM:SS.mmmm" where mmmm = int((unix*10000) % 10000),
// matching the original tracer's get_timestamp().
func Timestamp(t time.Time) string {
	clock := t.Format("15:04:05")
	frac := t.Nanosecond() / 100000
	return fmt.Sprintf("%s.%04d", clock, frac)
}

// FormatLogLine renders a single job.log line: "HH:MM:SS.mmmm <ref> <kind> <payload>".
// payload may be empty (job-started carries none), in which case no trailing
// space is written after kind.
func FormatLogLine(t time.Time, ref string, kind LogKind, payload string) string {
	var b strings.Builder
	b.WriteString(Timestamp(t))
	b.WriteByte(' ')
	b.WriteString(ref)
	b.WriteByte(' ')
	b.WriteString(string(kind))
	if payload != "" {
		b.WriteByte(' ')
		b.WriteString(payload)
	}
	b.WriteByte('\n')
	return b.String()
}

// FormatDuration renders a duration payload field to 3 decimal places, as
// used by job-stopped and snippet-ending lines.
func FormatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
