package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/thoughtweave/internal/retrieval"
)

// parseTimeWindow turns a caller-supplied window into an epoch range.
// Accepted forms:
//   - a relative span like "90d", "12w", "6m", "1y" (days/weeks/months/years
//     back from now)
//   - an absolute range "2024-01-01..2024-06-30" (RFC 3339 dates, end
//     exclusive of nothing — it bounds ToEpochMs)
//
// An empty string yields a nil window (no bound).
func parseTimeWindow(raw string, now time.Time) (*retrieval.TimeWindow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if from, to, ok := strings.Cut(raw, ".."); ok {
		fromTime, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid time window start %q", from)
		}
		toTime, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid time window end %q", to)
		}
		return &retrieval.TimeWindow{FromEpochMs: fromTime.UnixMilli(), ToEpochMs: toTime.Add(24 * time.Hour).UnixMilli()}, nil
	}

	unit := raw[len(raw)-1]
	n, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid time window %q", raw)
	}

	var span time.Duration
	switch unit {
	case 'd':
		span = time.Duration(n) * 24 * time.Hour
	case 'w':
		span = time.Duration(n) * 7 * 24 * time.Hour
	case 'm':
		span = time.Duration(n) * 30 * 24 * time.Hour
	case 'y':
		span = time.Duration(n) * 365 * 24 * time.Hour
	default:
		return nil, fmt.Errorf("invalid time window %q", raw)
	}
	return &retrieval.TimeWindow{FromEpochMs: now.Add(-span).UnixMilli()}, nil
}
