package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeWindowRelative(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		back time.Duration
	}{
		{"90d", 90 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"6m", 180 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			w, err := parseTimeWindow(tt.raw, now)
			require.NoError(t, err)
			require.NotNil(t, w)
			require.Equal(t, now.Add(-tt.back).UnixMilli(), w.FromEpochMs)
			require.Zero(t, w.ToEpochMs)
		})
	}
}

func TestParseTimeWindowAbsoluteRange(t *testing.T) {
	w, err := parseTimeWindow("2024-01-01..2024-06-30", time.Now())
	require.NoError(t, err)
	require.NotNil(t, w)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, from.UnixMilli(), w.FromEpochMs)
	// The end bound covers the whole final day.
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, to.UnixMilli(), w.ToEpochMs)
}

func TestParseTimeWindowEmpty(t *testing.T) {
	w, err := parseTimeWindow("", time.Now())
	require.NoError(t, err)
	require.Nil(t, w)
}

func TestParseTimeWindowInvalid(t *testing.T) {
	for _, raw := range []string{"soon", "0d", "-3d", "12", "d", "2024-13-01..2024-12-31"} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseTimeWindow(raw, time.Now())
			require.Error(t, err)
		})
	}
}
