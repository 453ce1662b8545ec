package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 45, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		end       string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "both missing", wantStart: "2024-02-14", wantEnd: "2024-03-15"},
		{name: "end only", end: "2024-01-31", wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "start only", start: "2024-03-01", wantStart: "2024-03-01", wantEnd: "2024-03-15"},
		{name: "both given", start: "2023-12-01", end: "2023-12-31", wantStart: "2023-12-01", wantEnd: "2023-12-31"},
		{name: "single day", start: "2024-03-02", end: "2024-03-02", wantStart: "2024-03-02", wantEnd: "2024-03-02"},
		{name: "malformed start", start: "2024/03/01", wantErr: true},
		{name: "malformed end", end: "yesterday", wantErr: true},
		{name: "reversed", start: "2024-03-10", end: "2024-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NormalizeWindow(tt.start, tt.end, now, 30)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDateRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.StartDate())
			assert.Equal(t, tt.wantEnd, w.EndDate())
		})
	}
}

func TestWindow_ContainsDate(t *testing.T) {
	w := Window{Start: day0, End: day0.AddDate(0, 0, 1)}

	assert.True(t, w.ContainsDate(day0))
	assert.True(t, w.ContainsDate(day0.Add(47*time.Hour)), "end date is inclusive")
	assert.False(t, w.ContainsDate(day0.Add(48*time.Hour)))
	assert.False(t, w.ContainsDate(day0.Add(-time.Minute)))
	assert.Equal(t, day0.AddDate(0, 0, 2), w.Until())
}
