package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insert(t *testing.T, s *Store, host string, atRisk int, collectedAt time.Time) int64 {
	t.Helper()
	id, _, err := s.Insert(context.Background(), &ReportRecord{
		ReportID:    host + collectedAt.Format(time.RFC3339),
		Hostname:    host,
		SystemUUID:  "uuid-" + host,
		Devices:     2,
		AtRisk:      atRisk,
		CollectedAt: collectedAt,
		ReportJSON:  `{"hostname":"` + host + `"}`,
	})
	require.NoError(t, err)
	return id
}

func TestInsertGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	collected := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	id, storedAt, err := s.Insert(ctx, &ReportRecord{
		ReportID:     "7f8e",
		Hostname:     "WS-042",
		SystemUUID:   "4c4c4544",
		SystemSerial: "SN1",
		Devices:      3,
		AtRisk:       1,
		TargetAtRisk: true,
		CollectedAt:  collected,
		ReportJSON:   `{"id":"7f8e"}`,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "7f8e", got.ReportID)
	assert.Equal(t, "WS-042", got.Hostname)
	assert.Equal(t, 3, got.Devices)
	assert.Equal(t, 1, got.AtRisk)
	assert.True(t, got.TargetAtRisk)
	assert.True(t, collected.Equal(got.CollectedAt))
	assert.True(t, storedAt.Equal(got.StoredAt))
	assert.Equal(t, `{"id":"7f8e"}`, got.ReportJSON)

	_, err = s.Get(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLatestByHostname(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	insert(t, s, "WS-042", 0, base)
	latest := insert(t, s, "WS-042", 1, base.Add(90*time.Minute+500*time.Millisecond))
	insert(t, s, "WS-042", 0, base.Add(time.Hour))
	insert(t, s, "WS-099", 0, base.Add(2*time.Hour))

	got, err := s.GetLatestByHostname(context.Background(), "WS-042")
	require.NoError(t, err)
	assert.Equal(t, latest, got.ID)

	_, err = s.GetLatestByHostname(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		insert(t, s, "WS-042", i%2, base.Add(time.Duration(i)*time.Hour))
	}
	insert(t, s, "WS-099", 1, base)

	all, total, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, all, 6)
	assert.Empty(t, all[0].ReportJSON)
	assert.True(t, all[0].CollectedAt.After(all[len(all)-1].CollectedAt))

	page, total, err := s.List(ctx, ListFilter{Hostname: "WS-042", PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.True(t, base.Add(2*time.Hour).Equal(page[0].CollectedAt))

	risky, total, err := s.List(ctx, ListFilter{AtRiskOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, r := range risky {
		assert.Positive(t, r.AtRisk)
	}

	after := base.Add(3 * time.Hour)
	recent, total, err := s.List(ctx, ListFilter{CollectedAfter: &after})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, recent, 2)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := insert(t, s, "WS-042", 0, time.Now())

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}

func TestPurge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert(t, s, "old", 0, now.Add(-40*24*time.Hour))
	insert(t, s, "older", 0, now.Add(-90*24*time.Hour))
	keep := insert(t, s, "new", 0, now.Add(-time.Hour))

	n, err := s.Purge(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, total, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, err = s.Get(ctx, keep)
	assert.NoError(t, err)
}
