package vibe

import (
	"encoding/json"
	"errors"
	"fmt"
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

const specificPrompt = "Build a React dashboard for admin users with a PostgreSQL database and a REST API. " +
	"It must support role based access, should be responsive and secure, and include charts and a table " +
	"of orders with export to CSV for performance reviews"

func TestAssess(t *testing.T) {
	tests := []struct {
		prompt       string
		score        int
		idea, system int
	}{
		{"make a game", 3, 6, 5},
		{"make a fun 2048 game", 2, 6, 5},
		{"I want a web app where users can track their reading list", 25, 4, 3},
		{specificPrompt, 90, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			a := Assess(tt.prompt)
			assert.Equal(t, tt.score, a.Score)
			assert.Equal(t, tt.idea, a.IdeaSteps)
			assert.Equal(t, tt.system, a.SystemSteps)
			assert.Equal(t, tt.idea+tt.system, a.TotalSteps)
			assert.Equal(t, Interpret(tt.score), a.Interpretation)
		})
	}
}

func TestAssess_Clamped(t *testing.T) {
	a := Assess("fun good nice cool stuff")
	assert.Equal(t, 0, a.Score)
	last := a.Factors[len(a.Factors)-1]
	assert.Equal(t, "vague_language", last.Name)
	assert.Equal(t, -10, last.Points)
}

func suggestions(recommended int) []Suggestion {
	titles := []string{"Go services on Kubernetes", "Python monolith", "Serverless functions", "Rails with Postgres", "Elixir cluster"}
	out := make([]Suggestion, len(titles))
	for i, title := range titles {
		out[i] = Suggestion{
			ID:            fmt.Sprintf("s%d", i+1),
			Title:         title,
			Description:   "An approach built around " + title,
			IsRecommended: i == recommended,
		}
	}
	return out
}

func TestRefinementFlow(t *testing.T) {
	svc := NewService(NewStore())
	res, err := svc.Initialize(InitializeInput{InitialPrompt: specificPrompt})
	require.NoError(t, err)
	id := res.SessionID
	require.NotNil(t, res.Analysis)
	assert.Equal(t, 2, res.Analysis.TotalSteps)
	assert.Equal(t, "vibe_refinement_get_next", res.NextAction)

	step, err := svc.GetNext(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingSuggestions, step.Phase)
	assert.Equal(t, StageSystem, step.Progress.Stage)
	assert.Equal(t, "What technology stack would best fit your project?", step.Question)
	assert.Equal(t, 5, step.Instructions.NumberOfSuggestions)

	_, err = svc.Suggest(SuggestInput{SessionID: id, Suggestions: suggestions(1)})
	require.NoError(t, err)

	before, _ := svc.Store().Get(id)
	_, err = svc.Submit(SubmitInput{SessionID: id, Selection: "I want the blue one"})
	assert.True(t, errors.Is(err, session.ErrAmbiguousSelection))
	after, _ := svc.Store().Get(id)
	assert.Equal(t, before, after)

	sub, err := svc.Submit(SubmitInput{SessionID: id, Selection: "I'll take the recommended one"})
	require.NoError(t, err)
	assert.Equal(t, PhaseActive, sub.Phase)
	require.NotNil(t, sub.Selection)
	assert.Equal(t, "Python monolith", sub.Selection.Title)
	assert.Equal(t, 50, sub.Progress.Percentage)

	step, err = svc.GetNext(id)
	require.NoError(t, err)
	assert.Equal(t, "What development tools and frameworks should be used?", step.Question)
	assert.Equal(t, []string{"Step 1 (system): Python monolith"}, step.Instructions.DecisionsSoFar)

	_, err = svc.Suggest(SuggestInput{SessionID: id, Suggestions: suggestions(0)})
	require.NoError(t, err)
	sub, err = svc.Submit(SubmitInput{SessionID: id, Selection: "3"})
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, sub.Phase)
	assert.Equal(t, "Serverless functions", sub.Selection.Title)
	assert.Equal(t, "none (workflow complete)", sub.NextAction)

	_, err = svc.GetNext(id)
	assert.True(t, errors.Is(err, session.ErrAlreadyCompleted))

	md, err := svc.Report(id, "")
	require.NoError(t, err)
	assert.Contains(t, md, "**Status:** WBS-Ready Specification")
	assert.Contains(t, md, "**Technical Decision: Python monolith** ⭐ *Recommended*")
	assert.Contains(t, md, "**Technical Decision: Serverless functions**\n")
	assert.Contains(t, md, "*No decisions yet*")

	st1, _ := svc.Status(id)
	st2, _ := svc.Status(id)
	assert.Equal(t, st1, st2)
	assert.Len(t, st1.Decisions, 2)
}

func TestSuggest_Validation(t *testing.T) {
	svc := NewService(NewStore())
	res, _ := svc.Initialize(InitializeInput{InitialPrompt: "make a game"})
	id := res.SessionID

	_, err := svc.Suggest(SuggestInput{SessionID: id, Suggestions: suggestions(0)})
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, session.CodeInvalidTransition, e.Code)
	assert.Equal(t, []string{"vibe_refinement_get_next"}, e.Expected)

	_, err = svc.GetNext(id)
	require.NoError(t, err)

	dup := suggestions(0)
	dup[3].ID = "S1"
	noTitle := suggestions(0)
	noTitle[2].Title = "   "
	twoRecommended := suggestions(0)
	twoRecommended[4].IsRecommended = true

	tests := []struct {
		name  string
		in    []Suggestion
		field string
	}{
		{"four suggestions", suggestions(0)[:4], "suggestions"},
		{"none recommended", suggestions(-1), "suggestions"},
		{"two recommended", twoRecommended, "suggestions"},
		{"duplicate id", dup, "suggestions[3].id"},
		{"blank title", noTitle, "suggestions[2].title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Suggest(SuggestInput{SessionID: id, Suggestions: tt.in})
			e, ok := session.AsError(err)
			require.True(t, ok)
			assert.Equal(t, session.CodeValidationFailed, e.Code)
			assert.Equal(t, tt.field, e.Field)
		})
	}
	st, _ := svc.Status(id)
	assert.Equal(t, PhaseAwaitingSuggestions, st.Phase)
}

func TestIdeaStageFirst(t *testing.T) {
	svc := NewService(NewStore())
	res, _ := svc.Initialize(InitializeInput{InitialPrompt: "make a game"})
	step, err := svc.GetNext(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StageIdea, step.Progress.Stage)
	assert.Equal(t, "What is the core value proposition of your project?", step.Question)
	assert.Contains(t, step.Instructions.Task, "'make a game'")
}

func TestReport_RoundTrip(t *testing.T) {
	svc := NewService(NewStore())
	res, _ := svc.Initialize(InitializeInput{InitialPrompt: "make a game"})
	id := res.SessionID
	_, _ = svc.GetNext(id)
	_, _ = svc.Suggest(SuggestInput{SessionID: id, Suggestions: suggestions(2)})
	_, err := svc.Submit(SubmitInput{SessionID: id, Selection: "s5"})
	require.NoError(t, err)

	md, err := svc.Report(id, render.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, md, "**Status:** In Progress (1/11 decisions)")
	assert.Contains(t, md, "**Decision: Elixir cluster**")

	js, err := svc.Report(id, render.FormatJSON)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(js), &doc))
	assert.Equal(t, md, doc.Markdown())

	_, err = svc.Report(id, "pdf")
	e, ok := session.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "format", e.Field)

	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, 11, list[0].TotalSteps)
	assert.True(t, svc.Delete(id))
}

func TestSubmit_LetterIDsInSentence(t *testing.T) {
	svc := NewService(NewStore())
	res, _ := svc.Initialize(InitializeInput{InitialPrompt: "make a game"})
	id := res.SessionID
	_, err := svc.GetNext(id)
	require.NoError(t, err)

	lettered := suggestions(1)
	for i := range lettered {
		lettered[i].ID = string(rune('a' + i))
	}
	_, err = svc.Suggest(SuggestInput{SessionID: id, Suggestions: lettered})
	require.NoError(t, err)

	sub, err := svc.Submit(SubmitInput{SessionID: id, Selection: "go with the recommended, it's a good fit"})
	require.NoError(t, err)
	require.NotNil(t, sub.Selection)
	assert.Equal(t, "Python monolith", sub.Selection.Title)
}
