// Package thoughts implements tree-of-thoughts exploration: scored
// thoughts branch from a root, weak branches are pruned, and one leaf is
// finally selected as the answer path.
package thoughts

import (
	"slices"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseExploring session.Phase = "exploring"
	PhaseCompleted session.Phase = "completed"
)

// Machine is the tree-of-thoughts state machine.
var Machine = workflow.NewMachine("tot_", []workflow.Transition{
	{From: PhaseExploring, Action: "add_thought", To: PhaseExploring},
	{From: PhaseExploring, Action: "prune", To: PhaseExploring},
	{From: PhaseExploring, Action: "select", To: PhaseCompleted},
}, PhaseCompleted)

const (
	DefaultMaxDepth       = 5
	DefaultBranchingLimit = 5
)

// Thought is one node of the tree. The root has no parent and depth 0.
type Thought struct {
	ID          string  `json:"id"`
	ParentID    string  `json:"parent_id,omitempty"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	Depth       int     `json:"depth"`
	Pruned      bool    `json:"pruned,omitempty"`
	PruneReason string  `json:"prune_reason,omitempty"`
}

// Payload is the tree-of-thoughts session data.
type Payload struct {
	Problem        string    `json:"problem"`
	MaxDepth       int       `json:"max_depth"`
	BranchingLimit int       `json:"branching_limit"`
	Thoughts       []Thought `json:"thoughts"`
	SelectedPath   []string  `json:"selected_path,omitempty"`
	Selection      string    `json:"selection,omitempty"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Thoughts = slices.Clone(p.Thoughts)
	c.SelectedPath = slices.Clone(p.SelectedPath)
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	pruned := 0
	for _, t := range p.Thoughts {
		if t.Pruned {
			pruned++
		}
	}
	return map[string]int{
		"thoughts": len(p.Thoughts),
		"pruned":   pruned,
		"leaves":   len(p.leaves()),
	}
}

func (p *Payload) find(id string) (int, bool) {
	i := slices.IndexFunc(p.Thoughts, func(t Thought) bool { return t.ID == id })
	return i, i >= 0
}

func (p *Payload) root() (Thought, bool) {
	for _, t := range p.Thoughts {
		if t.ParentID == "" {
			return t, true
		}
	}
	return Thought{}, false
}

func (p *Payload) childCount(id string) int {
	n := 0
	for _, t := range p.Thoughts {
		if t.ParentID == id {
			n++
		}
	}
	return n
}

// leaves are the live thoughts with no live children, in insertion order.
func (p *Payload) leaves() []Thought {
	hasLiveChild := make(map[string]bool)
	for _, t := range p.Thoughts {
		if !t.Pruned && t.ParentID != "" {
			hasLiveChild[t.ParentID] = true
		}
	}
	var out []Thought
	for _, t := range p.Thoughts {
		if !t.Pruned && !hasLiveChild[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// path returns the ids from the root down to id.
func (p *Payload) path(id string) []string {
	var out []string
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		i, ok := p.find(id)
		if !ok {
			break
		}
		out = append(out, id)
		id = p.Thoughts[i].ParentID
	}
	slices.Reverse(out)
	return out
}

func (p *Payload) pathScore(path []string) float64 {
	if len(path) == 0 {
		return 0
	}
	var sum float64
	for _, id := range path {
		if i, ok := p.find(id); ok {
			sum += p.Thoughts[i].Score
		}
	}
	return sum / float64(len(path))
}

// bestLeaf is the leaf whose root path has the highest mean score.
// Ties go to the earlier leaf.
func (p *Payload) bestLeaf() (Thought, bool) {
	var best Thought
	bestScore := -1.0
	found := false
	for _, l := range p.leaves() {
		if s := p.pathScore(p.path(l.ID)); s > bestScore {
			best, bestScore, found = l, s, true
		}
	}
	return best, found
}
