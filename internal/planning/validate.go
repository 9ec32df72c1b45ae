package planning

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// ItemInput is one WBS item as submitted by the caller.
type ItemInput struct {
	ID           string   `json:"id" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	Level        int      `json:"level" validate:"gte=0"`
	Priority     string   `json:"priority" validate:"omitempty,oneof=High Medium Low"`
	Dependencies []string `json:"dependencies"`
	Order        int      `json:"order"`
	ParentID     string   `json:"parent_id" validate:"required_unless=Level 0"`
}

// InitializeInput starts a planning session.
type InitializeInput struct {
	ProblemStatement string `json:"problem_statement" validate:"required"`
	ProjectName      string `json:"project_name"`
}

// AddStepInput records one planning step and its new items.
type AddStepInput struct {
	SessionID        string      `json:"session_id" validate:"required"`
	StepNumber       int         `json:"step_number" validate:"gte=1"`
	PlanningAnalysis string      `json:"planning_analysis" validate:"required"`
	Items            []ItemInput `json:"wbs_items" validate:"dive"`
}

func (in *AddStepInput) normalize() {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.PlanningAnalysis = strings.TrimSpace(in.PlanningAnalysis)
	for i := range in.Items {
		it := &in.Items[i]
		it.ID = strings.TrimSpace(it.ID)
		it.Title = strings.TrimSpace(it.Title)
		it.Description = strings.TrimSpace(it.Description)
		it.ParentID = strings.TrimSpace(it.ParentID)
		it.Priority = strings.TrimSpace(it.Priority)
		if it.Priority == "" {
			it.Priority = string(PriorityMedium)
		}
		deps := make([]string, 0, len(it.Dependencies))
		for _, d := range it.Dependencies {
			if d = strings.TrimSpace(d); d != "" {
				deps = append(deps, d)
			}
		}
		it.Dependencies = deps
	}
}

// checkItems enforces the cross-item rules against the items already in
// the plan: unique ids, parents present before their children, and
// dependencies that name a known item.
func checkItems(existing []Item, items []ItemInput) error {
	known := make(map[string]bool, len(existing)+len(items))
	for _, it := range existing {
		known[it.ID] = true
	}

	incoming := make(map[string]bool, len(items))
	for i, it := range items {
		if known[it.ID] || incoming[it.ID] {
			return workflow.FieldError(fmt.Sprintf("wbs_items[%d].id", i), "duplicate WBS item id %q", it.ID)
		}
		incoming[it.ID] = true
	}

	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if it.ParentID != "" {
			if it.ParentID == it.ID {
				return workflow.FieldError(fmt.Sprintf("wbs_items[%d].parent_id", i), "item %q cannot be its own parent", it.ID)
			}
			if !known[it.ParentID] && !seen[it.ParentID] {
				return workflow.FieldError(fmt.Sprintf("wbs_items[%d].parent_id", i),
					"parent %q of item %q does not exist yet; add the parent in an earlier step or earlier in this list", it.ParentID, it.ID)
			}
		}
		for j, dep := range it.Dependencies {
			if dep == it.ID {
				return workflow.FieldError(fmt.Sprintf("wbs_items[%d].dependencies[%d]", i, j), "item %q cannot depend on itself", it.ID)
			}
			if !known[dep] && !incoming[dep] {
				return workflow.FieldError(fmt.Sprintf("wbs_items[%d].dependencies[%d]", i, j), "dependency %q of item %q is not a known WBS item", dep, it.ID)
			}
		}
		seen[it.ID] = true
	}
	return nil
}
