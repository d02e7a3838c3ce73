package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSessions_OrderAndRange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		status := SessionActive
		if i%2 == 1 {
			status = SessionEnded
		}
		appendSession(t, s, "42", "Ana", status, baseTime.Add(time.Duration(i)*time.Hour))
	}

	all, err := s.ListSessions(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, SessionActive, all[0].Status)
	assert.Equal(t, SessionEnded, all[3].Status)

	ranged, err := s.ListSessions(ctx, HistoryFilter{Since: baseTime.Add(time.Hour), Until: baseTime.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.True(t, ranged[0].CreatedAt.Equal(baseTime.Add(time.Hour)))
}

func TestListSessions_LimitKeepsNewest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, appendSession(t, s, "42", "Ana", SessionActive, baseTime.Add(time.Duration(i)*time.Minute)).ID)
	}

	got, err := s.ListSessions(ctx, HistoryFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[3], got[0].ID)
	assert.Equal(t, ids[4], got[1].ID)
}

func TestListRuns_MachineFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	appendRun(t, s, "M1", "P7", RunStart, baseTime)
	appendRun(t, s, "M2", "P9", RunStart, baseTime)
	appendRun(t, s, "M1", "P7", RunStop, baseTime.Add(time.Minute))

	runs, err := s.ListRuns(ctx, HistoryFilter{MachineID: "M1"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunStart, runs[0].Action)
	assert.Equal(t, RunStop, runs[1].Action)
}

func TestListSamples_Empty(t *testing.T) {
	s := setupTestStore(t)

	samples, err := s.ListSamples(context.Background(), HistoryFilter{MachineID: "machine_01"})
	require.NoError(t, err)
	assert.NotNil(t, samples)
	assert.Empty(t, samples)
}
