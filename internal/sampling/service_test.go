package sampling

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
)

func init() {
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func newTestService() *Service {
	return NewService(NewStore(), WithRand(rand.New(rand.NewPCG(1, 2))))
}

func samples(probs ...float64) []Sample {
	out := make([]Sample, len(probs))
	for i, p := range probs {
		out[i] = Sample{Text: fmt.Sprintf("creative answer number %d", i+1), Probability: p}
	}
	return out
}

func TestInitialize_ModeCeiling(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		mode      Mode
		requested float64
		want      float64
	}{
		{ModeGenerate, 0, 0.10},
		{ModeExplore, 0, 0.05},
		{ModeBalanced, 0.5, 0.15},
		{ModeBalanced, 0.08, 0.08},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			res, err := svc.Initialize(InitializeInput{Query: "Name a cafe", Mode: tt.mode, MaxProbability: tt.requested})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.MaxProbability, 1e-12)
			assert.Equal(t, PhaseInitialized, res.Phase)
			assert.Equal(t, "vs_submit_samples", res.NextAction)
			assert.Contains(t, res.Instructions, "Name a cafe")
			assert.Contains(t, res.Instructions, "Generate 5")
		})
	}
}

func TestInitialize_Errors(t *testing.T) {
	svc := newTestService()

	_, err := svc.Initialize(InitializeInput{Query: "q", Mode: "wild"})
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "mode", e.Field)

	_, err = svc.Initialize(InitializeInput{Query: "q", Mode: ModeImprove})
	e, ok = session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "input_content", e.Field)

	_, err = svc.Initialize(InitializeInput{Query: "q", Mode: ModeGenerate, NumSamples: 11})
	e, ok = session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "num_samples", e.Field)
}

func TestScenario_ExploreRejectsThenAccepts(t *testing.T) {
	svc := newTestService()
	started, err := svc.Initialize(InitializeInput{Query: "Startup names", Mode: ModeExplore})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, started.MaxProbability, 1e-12)

	bad := samples(0.01, 0.02, 0.06, 0.03, 0.04)
	before, _ := svc.Store().Get(started.SessionID)
	_, err = svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: bad, Strategy: StrategyLowest})
	require.Error(t, err)
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, session.CodeValidationFailed, e.Code)
	assert.Equal(t, "samples[2].probability", e.Field)
	after, _ := svc.Store().Get(started.SessionID)
	assert.Equal(t, before, after)

	good := samples(0.03, 0.02, 0.04, 0.05, 0.01)
	res, err := svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: good, Strategy: StrategyLowest})
	require.NoError(t, err)
	assert.Equal(t, PhaseSampled, res.Phase)
	require.NotNil(t, res.Selected)
	assert.Equal(t, 4, res.Selected.Index)
	assert.InDelta(t, 0.01, res.Selected.Probability, 1e-12)
	assert.Equal(t, "vs_finalize", res.NextAction)
	require.NotNil(t, res.Statistics)
	assert.Equal(t, 5, res.Statistics.Count)
}

func TestSubmit_CountBoundaries(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		n  int
		ok bool
	}{
		{DefaultLimits.MinSamples - 1, false},
		{DefaultLimits.MinSamples, true},
		{DefaultLimits.MaxSamples, true},
		{DefaultLimits.MaxSamples + 1, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			started, err := svc.Initialize(InitializeInput{Query: "q", Mode: ModeGenerate})
			require.NoError(t, err)
			probs := make([]float64, tt.n)
			for i := range probs {
				probs[i] = 0.05
			}
			_, err = svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: samples(probs...), Strategy: StrategyHighest})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			e, ok := session.AsError(err)
			require.True(t, ok)
			assert.Equal(t, "samples", e.Field)
		})
	}
}

func TestSubmit_TextLength(t *testing.T) {
	svc := newTestService()
	started, _ := svc.Initialize(InitializeInput{Query: "q", Mode: ModeGenerate})
	in := samples(0.05, 0.05, 0.05)
	in[1].Text = "  short   "

	_, err := svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: in, Strategy: StrategyUniform})
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "samples[1].text", e.Field)
}

func TestSubmit_Strategies(t *testing.T) {
	svc := newTestService()
	probs := []float64{0.09, 0.02, 0.05}
	for _, strategy := range []Strategy{StrategyUniform, StrategyWeighted, StrategyLowest, StrategyHighest} {
		t.Run(string(strategy), func(t *testing.T) {
			started, _ := svc.Initialize(InitializeInput{Query: "q", Mode: ModeGenerate})
			res, err := svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: samples(probs...), Strategy: strategy})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Selected.Index, 0)
			assert.Less(t, res.Selected.Index, len(probs))
			switch strategy {
			case StrategyLowest:
				assert.Equal(t, 1, res.Selected.Index)
			case StrategyHighest:
				assert.Equal(t, 0, res.Selected.Index)
			}
		})
	}

	_, err := svc.SubmitSamples(SubmitInput{SessionID: "vs_0_missing", Samples: samples(probs...), Strategy: "random"})
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "selection_strategy", e.Field)
}

func TestSubmit_ResubmitKeepsEarlierRound(t *testing.T) {
	svc := newTestService()
	started, _ := svc.Initialize(InitializeInput{Query: "q", Mode: ModeBalanced})
	id := started.SessionID

	first, err := svc.SubmitSamples(SubmitInput{SessionID: id, Samples: samples(0.1, 0.12, 0.14), Strategy: StrategyLowest})
	require.NoError(t, err)
	assert.NotContains(t, first.Message, "replaced")

	res, err := svc.SubmitSamples(SubmitInput{SessionID: id, Samples: samples(0.05, 0.06, 0.07, 0.08), Strategy: StrategyHighest})
	require.NoError(t, err)
	assert.Equal(t, PhaseSampled, res.Phase)
	assert.Contains(t, res.Message, "kept as previous round 1")
	assert.InDelta(t, 0.08, res.Selected.Probability, 1e-9)

	sess, _ := svc.Store().Get(id)
	assert.Len(t, sess.Payload.Samples, 4)
	require.Len(t, sess.Payload.PreviousRounds, 1)
	assert.Len(t, sess.Payload.PreviousRounds[0].Samples, 3)
	assert.InDelta(t, 0.1, sess.Payload.PreviousRounds[0].Selected.Probability, 1e-9)
}

func TestResampleAndFinalize(t *testing.T) {
	svc := newTestService()
	started, _ := svc.Initialize(InitializeInput{Query: "q", Mode: ModeBalanced})
	id := started.SessionID

	_, err := svc.Resample(id)
	assert.True(t, errors.Is(err, session.ErrInvalidTransition))

	_, err = svc.SubmitSamples(SubmitInput{SessionID: id, Samples: samples(0.1, 0.12, 0.14), Strategy: StrategyLowest})
	require.NoError(t, err)

	again, err := svc.Resample(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseInitialized, again.Phase)

	sess, _ := svc.Store().Get(id)
	require.Len(t, sess.Payload.PreviousRounds, 1)
	assert.Len(t, sess.Payload.PreviousRounds[0].Samples, 3)
	assert.Empty(t, sess.Payload.Samples)
	assert.Equal(t, "resample", sess.History[len(sess.History)-1].Action)

	empty, err := svc.GetAllSamples(id)
	require.NoError(t, err)
	assert.Equal(t, "No samples submitted yet", empty.Message)

	_, err = svc.SubmitSamples(SubmitInput{SessionID: id, Samples: samples(0.1, 0.12, 0.14), Strategy: StrategyHighest})
	require.NoError(t, err)
	fin, err := svc.Finalize(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, fin.Phase)
	assert.Equal(t, "none (workflow complete)", fin.NextAction)

	_, err = svc.SubmitSamples(SubmitInput{SessionID: id, Samples: samples(0.1, 0.12, 0.14), Strategy: StrategyHighest})
	assert.True(t, errors.Is(err, session.ErrAlreadyCompleted))

	st1, _ := svc.Status(id)
	st2, _ := svc.Status(id)
	assert.Equal(t, st1, st2)
	assert.True(t, st1.HasSelection)
}

func TestExport(t *testing.T) {
	svc := newTestService()
	started, _ := svc.Initialize(InitializeInput{Query: "Name a cafe", Mode: ModeGenerate})
	_, err := svc.SubmitSamples(SubmitInput{SessionID: started.SessionID, Samples: samples(0.05, 0.02, 0.05), Strategy: StrategyLowest})
	require.NoError(t, err)

	md, err := svc.Export(started.SessionID, render.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "### Sample 2 ⭐ **SELECTED**")
	assert.Contains(t, md, "- **Creativity Index:** 30.00")

	js, err := svc.Export(started.SessionID, render.FormatJSON)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, md, decoded.Markdown())

	txt, err := svc.Export(started.SessionID, render.FormatText)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(txt, "Verbalized Sampling Session: "+started.SessionID))
	assert.Contains(t, txt, "Selected Sample (lowest)")

	html, err := svc.Export(started.SessionID, render.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Verbalized Sampling Session Report</h1>")
}

func TestList_TruncatesQuery(t *testing.T) {
	svc := newTestService()
	_, err := svc.Initialize(InitializeInput{Query: strings.Repeat("x", 60), Mode: ModeGenerate})
	require.NoError(t, err)
	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, strings.Repeat("x", 50)+"...", list[0].Query)
	assert.True(t, svc.Delete(list[0].SessionID))
	assert.Empty(t, svc.List())
}
