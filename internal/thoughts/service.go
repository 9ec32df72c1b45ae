package thoughts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// Store is the session store used by the tree-of-thoughts family.
type Store = session.Store[*Payload]

// NewStore creates an empty tree-of-thoughts store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindTreeOfThoughts)
}

// Service implements the tree-of-thoughts operations.
type Service struct {
	store *Store
}

// NewService creates a tree-of-thoughts service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Result is returned by the mutating operations.
type Result struct {
	SessionID  string        `json:"session_id"`
	Phase      session.Phase `json:"phase"`
	Thoughts   int           `json:"total_thoughts"`
	Leaves     []Thought     `json:"leaves,omitempty"`
	Message    string        `json:"message"`
	NextAction string        `json:"next_action"`
	Expected   []string      `json:"expected_actions,omitempty"`
}

func result(sess *session.Session[*Payload], msg string) *Result {
	return &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Thoughts:   len(sess.Payload.Thoughts),
		Leaves:     sess.Payload.leaves(),
		Message:    msg,
		NextAction: Machine.Hint(sess.Phase),
		Expected:   Machine.Expected(sess.Phase),
	}
}

// InitializeInput starts an exploration.
type InitializeInput struct {
	Problem        string `json:"problem" validate:"required"`
	MaxDepth       int    `json:"max_depth" validate:"gte=0,lte=32"`
	BranchingLimit int    `json:"branching_limit" validate:"gte=0,lte=20"`
}

// Initialize starts a session. Zero limits take the defaults.
func (s *Service) Initialize(in InitializeInput) (*Result, error) {
	in.Problem = strings.TrimSpace(in.Problem)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.MaxDepth == 0 {
		in.MaxDepth = DefaultMaxDepth
	}
	if in.BranchingLimit == 0 {
		in.BranchingLimit = DefaultBranchingLimit
	}
	sess := s.store.Create(PhaseExploring, &Payload{
		Problem:        in.Problem,
		MaxDepth:       in.MaxDepth,
		BranchingLimit: in.BranchingLimit,
	}, in.Problem)
	return result(sess, "Add the root thought with tot_add_thought (no parent_id)."), nil
}

// AddThoughtInput adds one scored thought.
type AddThoughtInput struct {
	SessionID string  `json:"session_id" validate:"required"`
	ThoughtID string  `json:"thought_id" validate:"required"`
	ParentID  string  `json:"parent_id"`
	Content   string  `json:"content" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0,lte=10"`
}

// AddThought adds a thought under its parent. The first thought without a
// parent becomes the root; there is only ever one root.
func (s *Service) AddThought(in AddThoughtInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.ThoughtID = strings.TrimSpace(in.ThoughtID)
	in.ParentID = strings.TrimSpace(in.ParentID)
	in.Content = strings.TrimSpace(in.Content)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "add_thought"); err != nil {
			return err
		}
		p := sess.Payload
		if _, dup := p.find(in.ThoughtID); dup {
			return workflow.FieldError("thought_id", "thought %q already exists", in.ThoughtID)
		}
		t := Thought{ID: in.ThoughtID, ParentID: in.ParentID, Content: in.Content, Score: in.Score}
		if in.ParentID == "" {
			if root, ok := p.root(); ok {
				return workflow.FieldError("parent_id", "root %q already exists; give a parent_id", root.ID)
			}
		} else {
			i, ok := p.find(in.ParentID)
			if !ok {
				return workflow.FieldError("parent_id", "parent thought %q does not exist", in.ParentID)
			}
			parent := p.Thoughts[i]
			if parent.Pruned {
				return workflow.FieldError("parent_id", "parent thought %q was pruned", in.ParentID)
			}
			if parent.Depth+1 > p.MaxDepth {
				return workflow.FieldError("parent_id", "depth %d exceeds max_depth %d", parent.Depth+1, p.MaxDepth)
			}
			if p.childCount(parent.ID) >= p.BranchingLimit {
				return workflow.FieldError("parent_id", "thought %q already has %d children (branching_limit)", parent.ID, p.BranchingLimit)
			}
			t.Depth = parent.Depth + 1
		}
		p.Thoughts = append(p.Thoughts, t)
		return workflow.Apply(sess, Machine, "add_thought", fmt.Sprintf("%s (score %g)", t.ID, t.Score))
	})
	if err != nil {
		return nil, err
	}
	return result(sess, fmt.Sprintf("Thought %s added.", in.ThoughtID)), nil
}

// PruneInput cuts a subtree.
type PruneInput struct {
	SessionID string `json:"session_id" validate:"required"`
	ThoughtID string `json:"thought_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// Prune marks a thought and all its descendants pruned.
func (s *Service) Prune(in PruneInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.ThoughtID = strings.TrimSpace(in.ThoughtID)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	var n int
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "prune"); err != nil {
			return err
		}
		p := sess.Payload
		i, ok := p.find(in.ThoughtID)
		if !ok {
			return workflow.FieldError("thought_id", "thought %q does not exist", in.ThoughtID)
		}
		if p.Thoughts[i].ParentID == "" {
			return workflow.FieldError("thought_id", "the root thought cannot be pruned")
		}
		if p.Thoughts[i].Pruned {
			return workflow.FieldError("thought_id", "thought %q is already pruned", in.ThoughtID)
		}
		subtree := map[string]bool{in.ThoughtID: true}
		// Thoughts are appended after their parents, so one pass in order
		// reaches every descendant.
		for j := range p.Thoughts {
			t := &p.Thoughts[j]
			if subtree[t.ID] || subtree[t.ParentID] {
				subtree[t.ID] = true
				if !t.Pruned {
					t.Pruned = true
					t.PruneReason = in.Reason
					n++
				}
			}
		}
		return workflow.Apply(sess, Machine, "prune", in.ThoughtID+": "+in.Reason)
	})
	if err != nil {
		return nil, err
	}
	return result(sess, fmt.Sprintf("Pruned %d thoughts.", n)), nil
}

// SelectInput picks a leaf by free text.
type SelectInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Selection string `json:"selection" validate:"required"`
}

// Select resolves the selection against the current leaves, records the
// path from the root to the chosen leaf and completes the session. "best"
// names the leaf with the highest mean path score.
func (s *Service) Select(in SelectInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Selection = strings.TrimSpace(in.Selection)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "select"); err != nil {
			return err
		}
		p := sess.Payload
		leaves := p.leaves()
		if len(leaves) == 0 {
			return workflow.FieldError("selection", "there are no thoughts to select yet")
		}
		best, _ := p.bestLeaf()
		candidates := make([]workflow.Candidate, len(leaves))
		for i, l := range leaves {
			c := workflow.Candidate{ID: l.ID, Title: l.Content}
			if l.ID == best.ID {
				c.Synonyms = []string{"best", "best path", "highest score"}
			}
			candidates[i] = c
		}
		idx, err := workflow.Resolve(in.Selection, candidates)
		if err != nil {
			return err
		}
		p.SelectedPath = p.path(leaves[idx].ID)
		p.Selection = in.Selection
		return workflow.Apply(sess, Machine, "select", leaves[idx].ID)
	})
	if err != nil {
		return nil, err
	}
	return result(sess, "Selected path: "+strings.Join(sess.Payload.SelectedPath, " → ")), nil
}

// Outcome is the read-only view of an exploration.
type Outcome struct {
	SessionID    string        `json:"session_id"`
	Phase        session.Phase `json:"phase"`
	Problem      string        `json:"problem"`
	Tree         string        `json:"tree"`
	Thoughts     []Thought     `json:"thoughts"`
	BestPath     []string      `json:"best_path,omitempty"`
	BestScore    float64       `json:"best_path_score"`
	SelectedPath []string      `json:"selected_path,omitempty"`
	NextAction   string        `json:"next_action"`
}

// GetResult returns the tree, the best path and the selected path.
func (s *Service) GetResult(id string) (*Outcome, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	out := &Outcome{
		SessionID:    sess.ID,
		Phase:        sess.Phase,
		Problem:      p.Problem,
		Tree:         renderTree(p),
		Thoughts:     p.Thoughts,
		SelectedPath: p.SelectedPath,
		NextAction:   Machine.Hint(sess.Phase),
	}
	if best, ok := p.bestLeaf(); ok {
		out.BestPath = p.path(best.ID)
		out.BestScore = p.pathScore(out.BestPath)
	}
	return out, nil
}

// List returns summaries of every session.
func (s *Service) List() []session.Summary {
	return s.store.List()
}

// Reset removes a session.
func (s *Service) Reset(id string) bool {
	return s.store.Delete(id)
}

const labelRunes = 60

func renderTree(p *Payload) string {
	nodes := make([]render.TreeNode, len(p.Thoughts))
	for i, t := range p.Thoughts {
		content := []rune(t.Content)
		if len(content) > labelRunes {
			content = append(content[:labelRunes-1], '…')
		}
		label := fmt.Sprintf("[%s] %s (score %s)", t.ID, string(content), strconv.FormatFloat(t.Score, 'g', -1, 64))
		if t.Pruned {
			label += " ✂ pruned"
		}
		nodes[i] = render.TreeNode{ID: t.ID, ParentID: t.ParentID, Label: label}
	}
	return render.Tree(nodes, render.TreeOptions{})
}
