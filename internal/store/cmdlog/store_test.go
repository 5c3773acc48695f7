package cmdlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "commands.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, Record{CommandID: "c1", Type: "execute", PlanID: 7, Payload: `{"price":"10"}`, Outcome: OutcomeApplied, CreatedAt: at}))
	require.NoError(t, s.Append(ctx, Record{CommandID: "c2", Type: "add", PlanID: 7, Outcome: OutcomeRejected, Error: "discipline violation", CreatedAt: at}))
	require.NoError(t, s.Append(ctx, Record{CommandID: "c3", Type: "create", PlanID: 8, Outcome: OutcomeApplied}))

	recs, err := s.ListByPlan(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c1", recs[0].CommandID)
	assert.Equal(t, `{"price":"10"}`, recs[0].Payload)
	assert.True(t, recs[0].CreatedAt.Equal(at))
	assert.Equal(t, OutcomeRejected, recs[1].Outcome)
	assert.Equal(t, "discipline violation", recs[1].Error)

	all, err := s.ListByPlan(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Append(context.Background(), Record{}))
	assert.NoError(t, s.Close())
	_, err := Open("  ")
	assert.Error(t, err)
}
