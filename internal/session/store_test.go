package session

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	timeNow = func() time.Time { return fixedTime }
}

type notes struct {
	Items []string `json:"items"`
}

func (n *notes) Clone() *notes {
	return &notes{Items: append([]string(nil), n.Items...)}
}

func (n *notes) Stats() map[string]int {
	return map[string]int{"items": len(n.Items)}
}

func TestCreate_IDFormat(t *testing.T) {
	st := NewStore[*notes](KindSampling)
	sess := st.Create("initialized", &notes{}, "query")

	assert.Regexp(t, regexp.MustCompile(`^vs_\d+_[a-z0-9]{8}$`), sess.ID)
	assert.Equal(t, KindSampling, sess.Kind)
	assert.Equal(t, Phase("initialized"), sess.Phase)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "initialize", sess.History[0].Action)
	assert.Equal(t, fixedTime, sess.CreatedAt)
}

func TestCreate_RegeneratesOnCollision(t *testing.T) {
	st := NewStore[*notes](KindPlanning)
	ids := []string{"dup", "dup", "fresh"}
	st.idFunc = func(string) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := st.Create("active", &notes{}, "")
	second := st.Create("active", &notes{}, "")

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
	assert.Equal(t, 2, st.Len())
}

func TestGet_NotFound(t *testing.T) {
	st := NewStore[*notes](KindVibe)
	_, err := st.Get("vibe_1_missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "session_id", e.Field)
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	st := NewStore[*notes](KindVibe)
	sess := st.Create("active", &notes{Items: []string{"a"}}, "")

	snap, err := st.Get(sess.ID)
	require.NoError(t, err)
	snap.Payload.Items[0] = "mutated"
	snap.History = append(snap.History, HistoryEntry{Action: "bogus"})

	again, err := st.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Payload.Items)
	assert.Len(t, again.History, 1)
}

func TestUpdate_CommitsOnSuccess(t *testing.T) {
	st := NewStore[*notes](KindPlanning)
	sess := st.Create("active", &notes{}, "")

	updated, err := st.Update(sess.ID, func(s *Session[*notes]) error {
		s.Payload.Items = append(s.Payload.Items, "step")
		s.Record("add_step", "1 item", "active")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"step"}, updated.Payload.Items)
	assert.Len(t, updated.History, 2)

	got, _ := st.Get(sess.ID)
	assert.Equal(t, updated, got)
}

func TestUpdate_FailureLeavesSessionUntouched(t *testing.T) {
	st := NewStore[*notes](KindPlanning)
	sess := st.Create("active", &notes{Items: []string{"keep"}}, "")
	before, _ := st.Get(sess.ID)

	_, err := st.Update(sess.ID, func(s *Session[*notes]) error {
		s.Payload.Items = append(s.Payload.Items, "half")
		s.Record("add_step", "", "completed")
		return Invalid("wbs_items[0].parent_id", "unknown parent")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	after, _ := st.Get(sess.ID)
	assert.Equal(t, before, after)
}

func TestUpdate_SerializesSameSession(t *testing.T) {
	st := NewStore[*notes](KindSequential)
	sess := st.Create("thinking", &notes{}, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.Update(sess.ID, func(s *Session[*notes]) error {
				s.Payload.Items = append(s.Payload.Items, fmt.Sprint(i))
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := st.Get(sess.ID)
	assert.Len(t, got.Payload.Items, 50)
}

func TestDelete_Idempotent(t *testing.T) {
	st := NewStore[*notes](KindTreeOfThoughts)
	sess := st.Create("exploring", &notes{}, "")

	assert.True(t, st.Delete(sess.ID))
	assert.False(t, st.Delete(sess.ID))

	_, err := st.Update(sess.ID, func(*Session[*notes]) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_OrderedByCreation(t *testing.T) {
	st := NewStore[*notes](KindCounterfactual)
	defer func() { timeNow = func() time.Time { return fixedTime } }()

	timeNow = func() time.Time { return fixedTime.Add(2 * time.Minute) }
	late := st.Create("initialized", &notes{}, "")
	timeNow = func() time.Time { return fixedTime }
	early := st.Create("initialized", &notes{Items: []string{"x"}}, "")

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
	assert.Equal(t, 1, list[0].Stats["items"])
}

func TestRegistry_ListFiltersByKind(t *testing.T) {
	plans := NewStore[*notes](KindPlanning)
	samples := NewStore[*notes](KindSampling)
	reg := NewRegistry(plans, samples)

	plans.Create("active", &notes{}, "")
	samples.Create("initialized", &notes{}, "")
	samples.Create("initialized", &notes{}, "")

	all, err := reg.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	only, err := reg.List(KindSampling)
	require.NoError(t, err)
	assert.Len(t, only, 2)
	for _, s := range only {
		assert.Equal(t, KindSampling, s.Kind)
	}

	_, err = reg.List("bogus")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRegistry_Reap(t *testing.T) {
	defer func() { timeNow = func() time.Time { return fixedTime } }()
	plans := NewStore[*notes](KindPlanning)
	reg := NewRegistry(plans)

	timeNow = func() time.Time { return fixedTime.Add(-2 * time.Hour) }
	plans.Create("active", &notes{}, "")
	timeNow = func() time.Time { return fixedTime }
	fresh := plans.Create("active", &notes{}, "")

	assert.Equal(t, 1, reg.Reap(time.Hour))
	list := plans.List()
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestError_Message(t *testing.T) {
	err := InvalidTransition("active", "finalize", []string{"add_step"})
	assert.Contains(t, err.Error(), "InvalidTransition")
	assert.Contains(t, err.Error(), "add_step")
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrNotFound))
}
