package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/tests/helpers"
)

// manual records a finished session starting at start and lasting d.
func (f *fixture) manual(t *testing.T, accountID int64, missionID *int64, start time.Time, d time.Duration) domain.WorkSession {
	t.Helper()
	got, err := f.svc.CreateManualWorkSession(context.Background(), domain.ManualWorkSessionRequest{
		AccountID: &accountID,
		MissionID: missionID,
		StartTime: timePtr(start),
		EndTime:   timePtr(start.Add(d)),
	})
	require.NoError(t, err)
	return got.WorkSession
}

func sessionIDs(views []domain.WorkSessionView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestListWorkSessionsByAccountRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accountID := idString(f.account.ID)

	before := f.manual(t, f.account.ID, nil, time.Date(2025, 3, 26, 9, 0, 0, 0, time.UTC), time.Hour)
	onDay := f.manual(t, f.account.ID, nil, time.Date(2025, 3, 27, 9, 0, 0, 0, time.UTC), time.Hour)
	after := f.manual(t, f.account.ID, nil, time.Date(2025, 3, 28, 9, 0, 0, 0, time.UTC), time.Hour)

	rng, err := ParseWorkSessionRange("2025-03-27", "", "", t0)
	require.NoError(t, err)
	views, err := f.svc.ListWorkSessionsByAccount(ctx, accountID, rng)
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{after.ID, onDay.ID}, sessionIDs(views)); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	rng, err = ParseWorkSessionRange("2025-03-26", "2025-03-27", "", t0)
	require.NoError(t, err)
	views, err = f.svc.ListWorkSessionsByAccount(ctx, accountID, rng)
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{onDay.ID, before.ID}, sessionIDs(views)); diff != "" {
		t.Errorf("date-only to covers the whole day (-want +got):\n%s", diff)
	}

	rng, err = ParseWorkSessionRange("", "March 27, 2025", "", t0)
	require.NoError(t, err)
	views, err = f.svc.ListWorkSessionsByAccount(ctx, accountID, rng)
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{onDay.ID, before.ID}, sessionIDs(views)); diff != "" {
		t.Errorf("written-out to covers the whole day (-want +got):\n%s", diff)
	}

	views, err = f.svc.ListWorkSessionsByAccount(ctx, accountID, domain.WorkSessionRange{Limit: 2})
	require.NoError(t, err)
	if diff := cmp.Diff([]int64{after.ID, onDay.ID}, sessionIDs(views)); diff != "" {
		t.Errorf("limit keeps the most recent (-want +got):\n%s", diff)
	}
}

func TestLatestOpenWorkSessionSkipsCanceledMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	canceled := helpers.CreateMission(t, f.store, "Roof inspection", true)

	_, err := f.svc.StartWorkSession(ctx, domain.StartWorkSessionRequest{AccountID: &f.account.ID, MissionID: &canceled.ID})
	require.NoError(t, err)

	got, err := f.svc.LatestOpenWorkSession(ctx, idString(f.account.ID))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatestOpenWorkSessionFlattensMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mission := helpers.CreateMission(t, f.store, "Boiler maintenance", false)

	ws, err := f.svc.StartWorkSession(ctx, domain.StartWorkSessionRequest{AccountID: &f.account.ID, MissionID: &mission.ID})
	require.NoError(t, err)
	f.clock.Advance(90 * time.Minute)

	got, err := f.svc.LatestOpenWorkSession(ctx, idString(f.account.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ws.ID, got.ID)
	require.NotNil(t, got.MissionDescription)
	assert.Equal(t, "Boiler maintenance", *got.MissionDescription)
	assert.Equal(t, "01:30:00", got.Durations.TotalDuration, "open sessions are measured up to now")

	_, err = f.svc.LatestOpenWorkSession(ctx, "999")
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound), "got %v", err)
	_, err = f.svc.LatestOpenWorkSession(ctx, "x")
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidID), "got %v", err)
}

func TestListWorkSessionsByMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := helpers.CreateAccount(t, f.store, "Lea", "Bernard")
	mission := helpers.CreateMission(t, f.store, "Fiber installation", false)

	first := f.manual(t, f.account.ID, &mission.ID, t0, time.Hour)
	second := f.manual(t, other.ID, &mission.ID, t0.Add(24*time.Hour), 2*time.Hour)
	f.manual(t, f.account.ID, nil, t0.Add(48*time.Hour), time.Hour)

	views, err := f.svc.ListWorkSessionsByMission(ctx, idString(mission.ID))
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)

	want := &domain.AccountSummary{ID: other.ID, FirstName: "Lea", LastName: "Bernard"}
	if diff := cmp.Diff(want, views[0].Account); diff != "" {
		t.Errorf("account summary mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "02:00:00", views[0].Durations.NetDuration)
	assert.NotNil(t, views[0].Pauses)

	_, err = f.svc.ListWorkSessionsByMission(ctx, "999")
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound), "got %v", err)
	_, err = f.svc.ListWorkSessionsByMission(ctx, "1.5")
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidID), "got %v", err)
}

func TestListWorkSessionsWithoutMission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mission := helpers.CreateMission(t, f.store, "Fiber installation", false)

	f.manual(t, f.account.ID, &mission.ID, t0, time.Hour)
	free := f.manual(t, f.account.ID, nil, t0.Add(24*time.Hour), time.Hour)

	views, err := f.svc.ListWorkSessionsWithoutMission(ctx, idString(f.account.ID))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, free.ID, views[0].ID)
	assert.Nil(t, views[0].MissionID)

	_, err = f.svc.ListWorkSessionsWithoutMission(ctx, "999")
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound), "got %v", err)
}

func TestGetWorkSessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetWorkSession(context.Background(), "77")
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotFound), "got %v", err)
}

func TestParseWorkSessionRange(t *testing.T) {
	now := time.Date(2025, 3, 27, 15, 30, 0, 0, time.UTC)

	rng, err := ParseWorkSessionRange("", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkSessionRange{}, rng)

	rng, err = ParseWorkSessionRange("2025-03-01T08:00:00+02:00", "2025-03-27", "10", now)
	require.NoError(t, err)
	require.NotNil(t, rng.From)
	require.NotNil(t, rng.To)
	assert.True(t, rng.From.Equal(time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)))
	assert.True(t, rng.To.Equal(time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)))
	assert.Equal(t, 10, rng.Limit)

	for _, limit := range []string{"0", "-3", "ten"} {
		_, err = ParseWorkSessionRange("", "", limit, now)
		assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidInput), "limit %q: got %v", limit, err)
	}

	_, err = ParseWorkSessionRange("not a date at all", "", "", now)
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidInput), "got %v", err)

	endOfDay := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	for _, to := range []string{"March 27, 2025", "27 March 2025"} {
		rng, err = ParseWorkSessionRange("", to, "", now)
		require.NoError(t, err, "to %q", to)
		require.NotNil(t, rng.To)
		assert.True(t, rng.To.Equal(endOfDay), "to %q: got %v", to, rng.To)
	}

	rng, err = ParseWorkSessionRange("yesterday", "", "", now)
	require.NoError(t, err)
	require.NotNil(t, rng.From)
	assert.True(t, rng.From.Equal(time.Date(2025, 3, 26, 0, 0, 0, 0, time.UTC)), "got %v", rng.From)

	for _, bad := range []string{"2025-02-30", "2025-13-01", "2025-02-30T10:00:00Z"} {
		_, err = ParseWorkSessionRange("", bad, "", now)
		assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidInput), "to %q: got %v", bad, err)
	}
}

func TestComputeDurations(t *testing.T) {
	end := t0.Add(3 * time.Hour)
	ws := domain.WorkSession{StartTime: t0, EndTime: &end}
	pauses := []domain.WorkSessionPause{
		{PauseTime: t0.Add(time.Hour), ResumeTime: timePtr(t0.Add(time.Hour + 30*time.Minute))},
		{PauseTime: t0.Add(2 * time.Hour)},
	}

	got := ComputeDurations(ws, pauses, t0.Add(100*time.Hour))
	want := domain.Durations{
		TotalMs:       (3 * time.Hour).Milliseconds(),
		PauseMs:       (30 * time.Minute).Milliseconds(),
		NetMs:         (150 * time.Minute).Milliseconds(),
		TotalDuration: "03:00:00",
		TotalPause:    "00:30:00",
		NetDuration:   "02:30:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("durations mismatch (-want +got):\n%s", diff)
	}
}
