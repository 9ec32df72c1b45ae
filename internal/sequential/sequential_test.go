package sequential

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/reasonkit/internal/session"
)

func init() {
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func TestThink_ChainToCompletion(t *testing.T) {
	svc := NewService(NewStore())

	first, err := svc.Think(ThoughtInput{Thought: "Frame the problem", ThoughtNumber: 1, TotalThoughts: 2, NextThoughtNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseThinking, first.Phase)
	assert.Equal(t, "sequential_thinking", first.NextAction)

	id := first.SessionID
	third, err := svc.Think(ThoughtInput{SessionID: id, Thought: "Go further", ThoughtNumber: 3, TotalThoughts: 2, NextThoughtNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, 3, third.TotalThoughts, "total extends to the thought number")

	rev, err := svc.Think(ThoughtInput{SessionID: id, Thought: "Actually", ThoughtNumber: 4, TotalThoughts: 4, IsRevision: true, RevisesThought: 1, NextThoughtNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, 3, rev.HistoryLength)

	br, err := svc.Think(ThoughtInput{SessionID: id, Thought: "Alt path", ThoughtNumber: 5, TotalThoughts: 5, BranchFromThought: 3, BranchID: "alt", NextThoughtNeeded: false})
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, br.Phase)
	assert.Equal(t, []string{"alt"}, br.Branches)
	assert.Equal(t, "none (workflow complete)", br.NextAction)

	_, err = svc.Think(ThoughtInput{SessionID: id, Thought: "late", ThoughtNumber: 6, TotalThoughts: 6})
	assert.True(t, errors.Is(err, session.ErrAlreadyCompleted))

	got, err := svc.GetResult(id)
	require.NoError(t, err)
	assert.Len(t, got.Thoughts, 4)
	again, _ := svc.GetResult(id)
	assert.Equal(t, got, again)
}

func TestThink_RevisionMustExist(t *testing.T) {
	svc := NewService(NewStore())

	_, err := svc.Think(ThoughtInput{Thought: "x", ThoughtNumber: 1, TotalThoughts: 1, IsRevision: true, RevisesThought: 7, NextThoughtNeeded: true})
	require.Error(t, err)
	e, _ := session.AsError(err)
	assert.Equal(t, "revises_thought", e.Field)
	assert.Empty(t, svc.Store().List(), "failed first thought leaves no session behind")
}

func TestThink_BranchNeedsID(t *testing.T) {
	svc := NewService(NewStore())
	_, err := svc.Think(ThoughtInput{Thought: "x", ThoughtNumber: 1, TotalThoughts: 1, BranchFromThought: 1})
	require.Error(t, err)
	e, _ := session.AsError(err)
	assert.Equal(t, "branch_id", e.Field)
}
