// Package format turns raw thread record fields into display strings.
//
// Absence is handled per field family: sentinel integers (-1) and missing
// identifiers render as a dash, missing durations render as a dash, and a
// missing CPU percentage renders as an empty string so "not measured" stays
// distinguishable from "measured but unavailable". Every function is pure.
package format

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Dash is shown for unknown sentinel integers, identifiers and durations.
const Dash = "—"

// Ellipsis is appended to truncated compact values.
const Ellipsis = "…"

// NoStackTrace is the placeholder for a thread without a captured trace.
const NoStackTrace = "No stack trace available"

// DefaultLockInfoWidth is the compact lock info width, in runes.
const DefaultLockInfoWidth = 45

// Severity classifies a CPU percentage for coloring.
type Severity int

const (
	SeverityNone   Severity = iota // value absent
	SeverityLow                    // <= 10%
	SeverityMedium                 // > 10% and <= 50%
	SeverityHigh                   // > 50%
)

// String returns the class name used by the HTML report
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return ""
	}
}

// Duration formats a millisecond duration with thousands grouping and at
// most two fractional digits.
func Duration(v *float64) string {
	if v == nil {
		return Dash
	}
	rounded := math.Round(*v*100) / 100
	return humanize.CommafWithDigits(rounded, 2)
}

// Percent formats a CPU percentage with one fractional digit and returns
// its severity. Tier lower bounds are exclusive: 50.0 is medium, 10.0 low.
func Percent(v *float64) (string, Severity) {
	if v == nil {
		return "", SeverityNone
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%", PercentSeverity(*v)
}

// PercentSeverity returns the severity tier of a present percentage.
func PercentSeverity(v float64) Severity {
	switch {
	case v > 50:
		return SeverityHigh
	case v > 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ThreadNum formats the JVM thread serial number as "#N".
func ThreadNum(n int) string {
	if n < 0 {
		return Dash
	}
	return "#" + strconv.Itoa(n)
}

// Sentinel formats priority-like integers where a negative value means unknown.
func Sentinel(n int) string {
	if n < 0 {
		return Dash
	}
	return strconv.Itoa(n)
}

// Ident formats an opaque identifier (tid, nid, nid decimal).
func Ident(s string) string {
	if s == "" {
		return Dash
	}
	return s
}

// Text returns free text as-is; absence is the empty string.
func Text(s string) string {
	return s
}

// StackTrace returns the trace or the absence placeholder.
func StackTrace(s string) string {
	if s == "" {
		return NoStackTrace
	}
	return s
}

// Daemon formats the daemon flag.
func Daemon(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Truncate cuts s to max runes and appends a single ellipsis when it was
// longer. A non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + Ellipsis
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the reserved markup characters so a field value can
// be placed inside element content or a quoted attribute.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}
