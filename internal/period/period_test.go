package period

import (
	"errors"
	"testing"
	"time"

	"coin100/internal/domain"
)

func TestIsValid(t *testing.T) {
	valid := []string{"", "5m", "1h", "1d", "2w", "1y", "15M", "365D"}
	for _, token := range valid {
		if !IsValid(token) {
			t.Fatalf("expected %q to be valid", token)
		}
	}

	invalid := []string{"5x", "m5", "5", "m", "5mm", "1.5h", "-5m", "5m ", "0m", "0h", "00d"}
	for _, token := range invalid {
		if IsValid(token) {
			t.Fatalf("expected %q to be invalid", token)
		}
	}
}

func TestToDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"1m":  time.Minute,
		"5m":  5 * time.Minute,
		"2h":  2 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
		"1y":  365 * 24 * time.Hour,
		"10H": 10 * time.Hour,
	}
	for token, expected := range tests {
		if got := ToDuration(token, DefaultLookback); got != expected {
			t.Fatalf("%s expected %v, got %v", token, expected, got)
		}
	}
}

func TestToDurationDefaults(t *testing.T) {
	if got := ToDuration("", time.Hour); got != time.Hour {
		t.Fatalf("empty token should give default, got %v", got)
	}
	if got := ToDuration("5x", time.Hour); got != time.Hour {
		t.Fatalf("invalid unit should degrade to default, got %v", got)
	}
	if got := ToDuration("xm", time.Hour); got != time.Hour {
		t.Fatalf("non-numeric value should degrade to default, got %v", got)
	}
	if got := ToDuration("0m", time.Hour); got != time.Hour {
		t.Fatalf("zero value should degrade to default, got %v", got)
	}
}

func TestResolveExplicitRange(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	w, err := Resolve("2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "", now, DefaultLookback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", w.End)
	}
}

func TestResolveInvalidDates(t *testing.T) {
	now := time.Now()

	_, err := Resolve("not-a-date", "2024-01-02T00:00:00Z", "", now, DefaultLookback)
	if !errors.Is(err, domain.ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}

	_, err = Resolve("2024-01-01T00:00:00Z", "also-bad", "", now, DefaultLookback)
	if !errors.Is(err, domain.ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}

	// A lone start (or end) still routes through date parsing.
	_, err = Resolve("2024-01-01T00:00:00Z", "", "", now, DefaultLookback)
	if !errors.Is(err, domain.ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat for missing end, got %v", err)
	}
}

func TestResolvePeriodToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	w, err := Resolve("", "", "1h", now, DefaultLookback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.End.Equal(now) || !w.Start.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected window: %+v", w)
	}
	if w.Period != "1h" {
		t.Fatalf("expected period token retained, got %q", w.Period)
	}
}

func TestResolveInvalidPeriod(t *testing.T) {
	_, err := Resolve("", "", "5x", time.Now(), DefaultLookback)
	if !errors.Is(err, domain.ErrInvalidPeriodFormat) {
		t.Fatalf("expected ErrInvalidPeriodFormat, got %v", err)
	}
}

func TestResolveDefaultWindow(t *testing.T) {
	now := time.Now()

	w, err := Resolve("", "", "", now, DefaultLookback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := w.End.Sub(w.Start); got != DefaultLookback {
		t.Fatalf("expected %v lookback, got %v", DefaultLookback, got)
	}
	if w.End.Before(now.Add(-2*time.Second)) || w.End.After(now.Add(2*time.Second)) {
		t.Fatalf("window end too far from now: %v vs %v", w.End, now)
	}
}
