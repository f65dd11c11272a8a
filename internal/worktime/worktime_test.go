package worktime

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func TestComputeClosedSession(t *testing.T) {
	start := time.Date(2025, 3, 27, 8, 0, 0, 0, time.UTC)
	end := start.Add(9 * time.Hour)
	pauses := []Interval{
		{From: start.Add(3 * time.Hour), To: ptr(start.Add(3*time.Hour + 45*time.Minute))},
		{From: start.Add(6 * time.Hour), To: ptr(start.Add(6*time.Hour + 15*time.Minute))},
	}

	got := Compute(start, &end, pauses, time.Time{})
	want := Breakdown{
		TotalMs: (9 * time.Hour).Milliseconds(),
		PauseMs: time.Hour.Milliseconds(),
		NetMs:   (8 * time.Hour).Milliseconds(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Compute mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "09:00:00", got.Total())
	assert.Equal(t, "01:00:00", got.Pause())
	assert.Equal(t, "08:00:00", got.Net())
}

func TestComputeOpenSessionUsesNow(t *testing.T) {
	start := time.Date(2025, 3, 27, 8, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Minute)

	got := Compute(start, nil, nil, now)
	assert.Equal(t, (90 * time.Minute).Milliseconds(), got.TotalMs)
	assert.Equal(t, int64(0), got.PauseMs)
	assert.Equal(t, got.TotalMs, got.NetMs)
}

func TestComputeIgnoresOpenPause(t *testing.T) {
	start := time.Date(2025, 3, 27, 8, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Hour)
	pauses := []Interval{
		{From: start.Add(10 * time.Minute), To: ptr(start.Add(20 * time.Minute))},
		{From: start.Add(time.Hour)},
	}

	got := Compute(start, nil, pauses, now)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), got.PauseMs)
	assert.Equal(t, (110 * time.Minute).Milliseconds(), got.NetMs)
}

func TestComputeTotalEqualsPausePlusNet(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48*time.Hour + 17*time.Second)
	var pauses []Interval
	for i := 0; i < 10; i++ {
		from := start.Add(time.Duration(i) * 4 * time.Hour)
		pauses = append(pauses, Interval{From: from, To: ptr(from.Add(time.Duration(i+1) * 7 * time.Minute))})
	}

	got := Compute(start, &end, pauses, time.Time{})
	assert.Equal(t, got.TotalMs, got.PauseMs+got.NetMs)
	assert.Less(t, got.NetMs, got.TotalMs)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	start := time.Date(2025, 3, 27, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	pauses := []Interval{{From: start.Add(time.Minute), To: ptr(start.Add(2 * time.Minute))}}
	before := []Interval{{From: pauses[0].From, To: ptr(*pauses[0].To)}}

	first := Compute(start, &end, pauses, time.Time{})
	second := Compute(start, &end, pauses, time.Time{})

	assert.Equal(t, first, second)
	assert.True(t, cmp.Equal(before, pauses))
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00"},
		{999, "00:00:00"},
		{61_000, "00:01:01"},
		{(25*time.Hour + 3*time.Minute + 4*time.Second).Milliseconds(), "25:03:04"},
		{(123 * time.Hour).Milliseconds(), "123:00:00"},
		{-5_000, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.ms), "ms=%d", tt.ms)
	}
}
