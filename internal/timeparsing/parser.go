// Package timeparsing provides layered parsing for the time expressions
// CLI flags accept (`--older-than 2d`, `--since "last friday"`).
//
// Layers, tried in order:
//  1. Compact duration (2d, +6h, -1w)
//  2. Natural language ("2 days ago", "last friday", "yesterday")
//  3. Absolute timestamp (RFC3339, date-only)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// compactDurationRe matches compact duration patterns: [+-]?(\d+)([hdwmy])
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration parses compact duration syntax against the given
// reference time.
//
// Units: h=hours, d=days, w=weeks, m=months, y=years. A bare duration
// ("2d") means that far in the past when parsed through ParsePast, and
// that far in the future through ParseExpression; the sign always wins
// when present.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}

	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] == "-" {
		amount = -amount
	}
	return applyDuration(now, amount, matches[3]), nil
}

// IsCompactDuration reports whether s matches compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	default:
		return base
	}
}

// absoluteLayouts are accepted absolute timestamp formats.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseAbsolute parses an absolute timestamp.
func ParseAbsolute(s string) (time.Time, error) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an absolute timestamp: %q", s)
}

// ParseExpression parses any supported time expression against now.
// Compact durations apply forward unless signed.
func ParseExpression(s string, now time.Time) (time.Time, error) {
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, err := ParseNaturalLanguage(s, now); err == nil {
		return t, nil
	}
	if t, err := ParseAbsolute(s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time expression: %q (try 2d, \"last friday\", or 2026-01-15)", s)
}

// ParsePast parses a time expression that conventionally points backward:
// an unsigned compact duration ("2d") is treated as that long ago, which
// is what `--older-than 2d` and `--since 1w` mean.
func ParsePast(s string, now time.Time) (time.Time, error) {
	if IsCompactDuration(s) && s[0] != '+' && s[0] != '-' {
		return ParseCompactDuration("-"+s, now)
	}
	return ParseExpression(s, now)
}
