package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklist_Empty(t *testing.T) {
	assert.Equal(t, "*No WBS items yet*", Checklist(nil, ChecklistOptions{Empty: "*No WBS items yet*"}))
}

func TestChecklist_NestsAndOrders(t *testing.T) {
	items := []Item{
		{ID: "2.0", Title: "Ship", Priority: "Low", Order: 2},
		{ID: "1.1", ParentID: "1.0", Title: "Init repo", Priority: "Medium", Level: 1, Order: 1},
		{ID: "1.0", Title: "Setup", Priority: "High", Order: 1, Dependencies: []string{"0.0"}},
		{ID: "1.2", ParentID: "1.0", Title: "CI", Priority: "Medium", Level: 1, Order: 0, Done: true},
	}
	got := Checklist(items, ChecklistOptions{})

	want := strings.Join([]string{
		"- [ ] **Setup** (Priority: High)",
		"  - ID: 1.0",
		"  - Description: ",
		"  - Dependencies: 0.0",
		"",
		"  - [x] **CI** (Priority: Medium)",
		"    - ID: 1.2",
		"    - Description: ",
		"",
		"  - [ ] **Init repo** (Priority: Medium)",
		"    - ID: 1.1",
		"    - Description: ",
		"",
		"- [ ] **Ship** (Priority: Low)",
		"  - ID: 2.0",
		"  - Description: ",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestChecklist_Compact(t *testing.T) {
	items := []Item{
		{ID: "a", Title: "A"},
		{ID: "b", ParentID: "a", Title: "B", Done: true},
	}
	assert.Equal(t, "- [ ] **A**\n  - [x] **B**", Checklist(items, ChecklistOptions{Compact: true}))
}

func TestChecklist_Pure(t *testing.T) {
	items := []Item{{ID: "1", Title: "x"}, {ID: "2", ParentID: "1", Title: "y"}}
	assert.Equal(t, Checklist(items, ChecklistOptions{}), Checklist(items, ChecklistOptions{}))
}

func TestTree_Connectors(t *testing.T) {
	nodes := []TreeNode{
		{ID: "r", Label: "root"},
		{ID: "a", ParentID: "r", Label: "a"},
		{ID: "a1", ParentID: "a", Label: "a1"},
		{ID: "b", ParentID: "r", Label: "b"},
	}
	want := "root\n├── a\n│   └── a1\n└── b"
	assert.Equal(t, want, Tree(nodes, TreeOptions{}))
}

func TestTree_Truncates(t *testing.T) {
	nodes := []TreeNode{{ID: "0", Label: "n0"}}
	for i := 1; i < 10; i++ {
		nodes = append(nodes, TreeNode{ID: string(rune('0' + i)), ParentID: string(rune('0' + i - 1)), Label: "n"})
	}
	got := Tree(nodes, TreeOptions{MaxDepth: 3})
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], Truncated)
}

func TestTree_CycleOmitted(t *testing.T) {
	nodes := []TreeNode{
		{ID: "r", Label: "root"},
		{ID: "x", ParentID: "y", Label: "x"},
		{ID: "y", ParentID: "x", Label: "y"},
	}
	assert.Equal(t, "root", Tree(nodes, TreeOptions{}))
}

func TestStats(t *testing.T) {
	s := Stats([]float64{0.05, 0.1, 0.02}, []int{10, 20, 30})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.02, s.Probability.Min, 1e-9)
	assert.InDelta(t, 0.1, s.Probability.Max, 1e-9)
	assert.InDelta(t, 0.17, s.Probability.Sum, 1e-9)
	assert.InDelta(t, 0.17/3, s.Probability.Mean, 1e-9)
	assert.InDelta(t, 20.0, s.TextLength.Mean, 1e-9)
	assert.InDelta(t, (20.0+10.0+50.0)/3, s.CreativityIndex, 1e-9)
}

func TestStats_Empty(t *testing.T) {
	assert.Equal(t, SampleStats{}, Stats(nil, nil))
}

type doc struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func (d doc) Markdown() string  { return "# " + d.Title + "\n\n- " + strings.Join(d.Tags, "\n- ") + "\n" }
func (d doc) PlainText() string { return d.Title }

func TestExport_Formats(t *testing.T) {
	d := doc{Title: "Plan", Tags: []string{"a", "b"}}

	js, err := Export(FormatJSON, d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Plan","tags":["a","b"]}`, js)

	y, err := Export(FormatYAML, d)
	require.NoError(t, err)
	assert.Contains(t, y, "title: Plan")

	h, err := Export(FormatHTML, d)
	require.NoError(t, err)
	assert.Contains(t, h, "<h1>Plan</h1>")
	assert.Contains(t, h, "<li>a</li>")

	txt, err := Export(FormatText, d)
	require.NoError(t, err)
	assert.Equal(t, "Plan", txt)

	_, err = Export("pdf", d)
	assert.Error(t, err)
}
