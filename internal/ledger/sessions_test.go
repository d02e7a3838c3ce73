package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestSession_Empty(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.LatestSession(context.Background())
	assert.True(t, IsNotFound(err))
}

func TestLatestSession_IsGlobalAcrossOperators(t *testing.T) {
	s := setupTestStore(t)

	appendSession(t, s, "42", "Ana", SessionActive, baseTime)
	appendSession(t, s, "42", "Ana", SessionEnded, baseTime.Add(time.Minute))
	last := appendSession(t, s, "7", "Budi", SessionActive, baseTime.Add(2*time.Minute))

	latest, err := s.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)
	assert.Equal(t, "7", latest.OperatorID)
	assert.Equal(t, SessionActive, latest.Status)
	assert.True(t, latest.CreatedAt.Equal(baseTime.Add(2*time.Minute)))
}

func TestLatestSession_UsesAppendOrderNotTimestamp(t *testing.T) {
	s := setupTestStore(t)

	appendSession(t, s, "42", "Ana", SessionActive, baseTime.Add(time.Hour))
	appendSession(t, s, "42", "Ana", SessionEnded, baseTime)

	latest, err := s.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SessionEnded, latest.Status)
}

func TestAppendSession_Validation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		sess OperatorSession
	}{
		{"missing id", OperatorSession{OperatorName: "Ana", Status: SessionActive, CreatedAt: baseTime}},
		{"missing name", OperatorSession{OperatorID: "42", Status: SessionActive, CreatedAt: baseTime}},
		{"bad status", OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: "paused", CreatedAt: baseTime}},
		{"missing time", OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: SessionActive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := tt.sess
			assert.Error(t, s.AppendSession(ctx, &sess))
		})
	}

	_, err := s.LatestSession(ctx)
	assert.True(t, IsNotFound(err), "rejected rows must not be written")
}

func TestActiveOperator(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		s := setupTestStore(t)
		_, err := s.ActiveOperator(ctx)
		assert.True(t, IsNotFound(err))
	})

	t.Run("single active", func(t *testing.T) {
		s := setupTestStore(t)
		appendSession(t, s, "42", "Ana", SessionActive, baseTime)

		active, err := s.ActiveOperator(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ana", active.OperatorName)
	})

	t.Run("ended by later row", func(t *testing.T) {
		s := setupTestStore(t)
		appendSession(t, s, "42", "Ana", SessionActive, baseTime)
		appendSession(t, s, "42", "Ana", SessionEnded, baseTime.Add(time.Minute))

		_, err := s.ActiveOperator(ctx)
		assert.True(t, IsNotFound(err))
	})

	t.Run("earlier end does not close later start", func(t *testing.T) {
		s := setupTestStore(t)
		appendSession(t, s, "42", "Ana", SessionActive, baseTime)
		appendSession(t, s, "42", "Ana", SessionEnded, baseTime.Add(time.Minute))
		again := appendSession(t, s, "42", "Ana", SessionActive, baseTime.Add(2*time.Minute))

		active, err := s.ActiveOperator(ctx)
		require.NoError(t, err)
		assert.Equal(t, again.ID, active.ID)
	})

	t.Run("another operator's end does not close the session", func(t *testing.T) {
		s := setupTestStore(t)
		appendSession(t, s, "42", "Ana", SessionActive, baseTime)
		appendSession(t, s, "7", "Budi", SessionEnded, baseTime.Add(time.Minute))

		active, err := s.ActiveOperator(ctx)
		require.NoError(t, err)
		assert.Equal(t, "42", active.OperatorID)
	})

	t.Run("most recent open session wins", func(t *testing.T) {
		s := setupTestStore(t)
		appendSession(t, s, "42", "Ana", SessionActive, baseTime)
		appendSession(t, s, "7", "Budi", SessionActive, baseTime.Add(time.Minute))

		active, err := s.ActiveOperator(ctx)
		require.NoError(t, err)
		assert.Equal(t, "7", active.OperatorID)
	})
}

func TestRecordSessionEnd_WithAutoStop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	appendSession(t, s, "42", "Ana", SessionActive, baseTime)
	appendRun(t, s, "M1", "P7", RunStart, baseTime)

	end := &OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: SessionEnded, CreatedAt: baseTime.Add(time.Hour)}
	stop := &ProductRun{MachineID: "M1", ProductID: "P7", Action: RunStop, OperatorName: "Ana", CreatedAt: baseTime.Add(time.Hour)}
	require.NoError(t, s.RecordSessionEnd(ctx, end, stop))

	assert.NotZero(t, end.ID)
	assert.NotZero(t, stop.ID)

	run, err := s.LatestRunForMachine(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, RunStop, run.Action)

	sess, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, SessionEnded, sess.Status)
}

func TestRecordSessionEnd_WithoutAutoStop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	appendSession(t, s, "42", "Ana", SessionActive, baseTime)

	end := &OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: SessionEnded, CreatedAt: baseTime.Add(time.Hour)}
	require.NoError(t, s.RecordSessionEnd(ctx, end, nil))

	_, err := s.LatestRun(ctx)
	assert.True(t, IsNotFound(err))
}

func TestRecordSessionEnd_RollsBackOnInvalidRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	appendSession(t, s, "42", "Ana", SessionActive, baseTime)

	end := &OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: SessionEnded, CreatedAt: baseTime.Add(time.Hour)}
	bad := &ProductRun{MachineID: "M1", Action: RunStop, CreatedAt: baseTime}
	require.Error(t, s.RecordSessionEnd(ctx, end, bad))

	sess, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, sess.Status, "session end must not be written alone")
}

func TestRecordSessionEnd_RequiresEndedStatus(t *testing.T) {
	s := setupTestStore(t)

	sess := &OperatorSession{OperatorID: "42", OperatorName: "Ana", Status: SessionActive, CreatedAt: baseTime}
	assert.Error(t, s.RecordSessionEnd(context.Background(), sess, nil))
}
