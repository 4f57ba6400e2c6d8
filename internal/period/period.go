package period

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coin100/internal/domain"
)

// DefaultLookback is the window used when a request carries neither an
// explicit date range nor a period token.
const DefaultLookback = 5 * time.Minute

// Zero is excluded so that every token IsValid accepts converts to a
// usable lookback; "0m" would otherwise validate and then degrade.
var periodPattern = regexp.MustCompile(`(?i)^[1-9]\d*[mhdwy]$`)

// IsValid reports whether token is a well-formed period such as "5m", "1h",
// "1d", "2w" or "1y". An empty token is valid and means "use the default".
func IsValid(token string) bool {
	if token == "" {
		return true
	}
	return periodPattern.MatchString(token)
}

// ToDuration converts a period token into a duration. An empty token yields
// def. An invalid token also yields def; callers are expected to have
// checked IsValid first, so this only logs a warning.
func ToDuration(token string, def time.Duration) time.Duration {
	if token == "" {
		return def
	}

	unit := strings.ToLower(token[len(token)-1:])
	value, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || value <= 0 {
		log.Printf("invalid period %q, using default %v", token, def)
		return def
	}

	switch unit {
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour
	case "y":
		return time.Duration(value) * 365 * 24 * time.Hour
	default:
		log.Printf("invalid period %q, using default %v", token, def)
		return def
	}
}

// Window is a resolved [Start, End] query range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// Period holds the token the window was resolved from, if any.
	Period string `json:"-"`
}

// Resolve computes the query window for a request. Explicit start/end win
// over a period token; with neither present the window is the def lookback
// ending at now.
func Resolve(start, end, token string, now time.Time, def time.Duration) (Window, error) {
	if start != "" || end != "" {
		from, err := parseInstant(start)
		if err != nil {
			return Window{}, fmt.Errorf("%w: start=%q", domain.ErrInvalidDateFormat, start)
		}
		to, err := parseInstant(end)
		if err != nil {
			return Window{}, fmt.Errorf("%w: end=%q", domain.ErrInvalidDateFormat, end)
		}
		return Window{Start: from, End: to}, nil
	}

	if token != "" && !IsValid(token) {
		return Window{}, fmt.Errorf("%w: %q", domain.ErrInvalidPeriodFormat, token)
	}

	dur := ToDuration(token, def)
	return Window{Start: now.Add(-dur), End: now, Period: token}, nil
}

func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
