package timeparsing

import (
	"testing"
	"time"
)

var ref = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParseCompactDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2h", ref.Add(2 * time.Hour)},
		{"+6h", ref.Add(6 * time.Hour)},
		{"-6h", ref.Add(-6 * time.Hour)},
		{"2d", ref.AddDate(0, 0, 2)},
		{"-2d", ref.AddDate(0, 0, -2)},
		{"1w", ref.AddDate(0, 0, 7)},
		{"3m", ref.AddDate(0, 3, 0)},
		{"1y", ref.AddDate(1, 0, 0)},
	}
	for _, tc := range cases {
		got, err := ParseCompactDuration(tc.in, ref)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%q = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseCompactDuration_Rejects(t *testing.T) {
	for _, in := range []string{"", "2", "d", "2x", "2dd", "two days", "2 d"} {
		if _, err := ParseCompactDuration(in, ref); err == nil {
			t.Errorf("%q accepted", in)
		}
		if IsCompactDuration(in) {
			t.Errorf("IsCompactDuration(%q) = true", in)
		}
	}
}

func TestParseAbsolute(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-15T10:30:00Z", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"2026-01-15 10:30:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.Local)},
		{"2026-01-15 10:30", time.Date(2026, 1, 15, 10, 30, 0, 0, time.Local)},
		{"2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range cases {
		got, err := ParseAbsolute(tc.in)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%q = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseAbsolute("15/01/2026"); err == nil {
		t.Error("non-ISO date accepted")
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	got, err := ParseNaturalLanguage("tomorrow", ref)
	if err != nil {
		t.Fatalf("tomorrow: %v", err)
	}
	if got.Day() != 11 || got.Month() != time.March {
		t.Errorf("tomorrow = %v", got)
	}

	got, err = ParseNaturalLanguage("yesterday", ref)
	if err != nil {
		t.Fatalf("yesterday: %v", err)
	}
	if got.Day() != 9 {
		t.Errorf("yesterday = %v", got)
	}

	if _, err := ParseNaturalLanguage("flurble", ref); err == nil {
		t.Error("nonsense accepted")
	}
}

func TestParseExpression_LayerOrder(t *testing.T) {
	// Compact wins over everything.
	got, err := ParseExpression("2d", ref)
	if err != nil || !got.Equal(ref.AddDate(0, 0, 2)) {
		t.Errorf("2d = %v, %v", got, err)
	}
	// Absolute fallback.
	got, err = ParseExpression("2026-01-15", ref)
	if err != nil || got.Year() != 2026 || got.Month() != time.January {
		t.Errorf("2026-01-15 = %v, %v", got, err)
	}
	if _, err := ParseExpression("not a time at all %%", ref); err == nil {
		t.Error("garbage accepted")
	}
}

func TestParsePast_UnsignedMeansAgo(t *testing.T) {
	got, err := ParsePast("2d", ref)
	if err != nil {
		t.Fatalf("2d: %v", err)
	}
	if !got.Equal(ref.AddDate(0, 0, -2)) {
		t.Errorf("past 2d = %v, want 2 days ago", got)
	}

	// Explicit sign always wins.
	got, err = ParsePast("+2d", ref)
	if err != nil {
		t.Fatalf("+2d: %v", err)
	}
	if !got.Equal(ref.AddDate(0, 0, 2)) {
		t.Errorf("past +2d = %v, want 2 days ahead", got)
	}

	// Non-compact expressions pass through unchanged.
	got, err = ParsePast("2026-01-15", ref)
	if err != nil || got.Month() != time.January {
		t.Errorf("absolute through ParsePast = %v, %v", got, err)
	}
}
