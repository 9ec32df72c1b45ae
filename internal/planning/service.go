package planning

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/HendryAvila/reasonkit/internal/artifacts"
	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// Store is the session store used by the planning family.
type Store = session.Store[*Payload]

// NewStore creates an empty planning store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindPlanning)
}

// Service implements the planning operations.
type Service struct {
	store *Store
	files *artifacts.Writer
}

// NewService creates a planning service that writes WBS files through files.
func NewService(store *Store, files *artifacts.Writer) *Service {
	return &Service{store: store, files: files}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Result is returned by the mutating operations.
type Result struct {
	SessionID   string        `json:"session_id"`
	Phase       session.Phase `json:"phase"`
	ProjectName string        `json:"project_name"`
	OutputPath  string        `json:"output_path"`
	StepNumber  int           `json:"step_number,omitempty"`
	ItemsAdded  int           `json:"wbs_items_added"`
	TotalItems  int           `json:"total_wbs_items"`
	TotalSteps  int           `json:"total_steps"`
	Message     string        `json:"message"`
	NextAction  string        `json:"next_action"`
	Expected    []string      `json:"expected_actions,omitempty"`
}

func result(sess *session.Session[*Payload], msg string) *Result {
	return &Result{
		SessionID:   sess.ID,
		Phase:       sess.Phase,
		ProjectName: sess.Payload.ProjectName,
		OutputPath:  sess.Payload.OutputPath,
		TotalItems:  len(sess.Payload.Items),
		TotalSteps:  len(sess.Payload.Steps),
		Message:     msg,
		NextAction:  Machine.Hint(sess.Phase),
		Expected:    Machine.Expected(sess.Phase),
	}
}

// defaultProjectName is the first five words of the problem statement.
func defaultProjectName(problem string) string {
	words := strings.Fields(problem)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}

// Initialize starts a session and writes the empty WBS file.
func (s *Service) Initialize(in InitializeInput) (*Result, error) {
	in.ProblemStatement = strings.TrimSpace(in.ProblemStatement)
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.ProjectName == "" {
		in.ProjectName = defaultProjectName(in.ProblemStatement)
	}
	sess := s.store.Create(PhaseActive, &Payload{
		ProblemStatement: in.ProblemStatement,
		ProjectName:      in.ProjectName,
	}, in.ProjectName)
	id := sess.ID

	rel := wbsFile(in.ProjectName)
	if s.fileInUse(rel, id) {
		rel = wbsFile(in.ProjectName + "_" + id)
	}
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		sess.Payload.WBSFile = rel
		sess.Payload.OutputPath = s.files.Path(rel)
		return s.writeFile(sess)
	})
	if err != nil {
		s.store.Delete(id)
		return nil, err
	}
	return result(sess, "Session initialized. WBS file created at: "+sess.Payload.OutputPath), nil
}

// AddStep records a planning step, appends its items and rewrites the file.
func (s *Service) AddStep(in AddStepInput) (*Result, error) {
	in.normalize()
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	var added int
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "add_step"); err != nil {
			return err
		}
		if err := checkItems(sess.Payload.Items, in.Items); err != nil {
			return err
		}
		for _, it := range in.Items {
			sess.Payload.Items = append(sess.Payload.Items, Item{
				ID:           it.ID,
				Title:        it.Title,
				Description:  it.Description,
				Level:        it.Level,
				Priority:     Priority(it.Priority),
				Dependencies: it.Dependencies,
				Order:        it.Order,
				ParentID:     it.ParentID,
			})
		}
		added = len(in.Items)
		sess.Payload.Steps = append(sess.Payload.Steps, Step{
			Number:     in.StepNumber,
			Analysis:   in.PlanningAnalysis,
			ItemsAdded: added,
			Timestamp:  timeNow().UTC(),
		})
		summary := fmt.Sprintf("step %d, %d items", in.StepNumber, added)
		if err := workflow.Apply(sess, Machine, "add_step", summary); err != nil {
			return err
		}
		return s.writeFile(sess)
	})
	if err != nil {
		return nil, err
	}

	res := result(sess, fmt.Sprintf("Step %d completed. WBS file updated.", in.StepNumber))
	res.StepNumber = in.StepNumber
	res.ItemsAdded = added
	return res, nil
}

// Finalize completes the plan. The WBS body is unchanged; only the status
// line of the summary moves to completed.
func (s *Service) Finalize(id string) (*Result, error) {
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := workflow.Apply(sess, Machine, "finalize", ""); err != nil {
			return err
		}
		return s.writeFile(sess)
	})
	if err != nil {
		return nil, err
	}
	return result(sess, fmt.Sprintf("Planning completed! %d WBS items generated.", len(sess.Payload.Items))), nil
}

// wbsFile is the WBS path relative to the output directory.
func wbsFile(name string) string {
	return filepath.Join("planning", artifacts.FileStem(name)+"_WBS.md")
}

// fileInUse reports whether a live session other than self owns rel.
// Plans that share a project name get the session id in their file name.
func (s *Service) fileInUse(rel, self string) bool {
	for _, other := range s.store.Sessions() {
		if other.ID != self && other.Payload.WBSFile == rel {
			return true
		}
	}
	return false
}

func (s *Service) writeFile(sess *session.Session[*Payload]) error {
	_, err := s.files.Write(sess.Payload.WBSFile, newDocument(sess).Markdown())
	return err
}

// Status is the read-only view of a plan.
type Status struct {
	SessionID   string        `json:"session_id"`
	Phase       session.Phase `json:"phase"`
	ProjectName string        `json:"project_name"`
	CurrentStep int           `json:"current_step"`
	TotalSteps  int           `json:"total_steps"`
	TotalItems  int           `json:"total_wbs_items"`
	OutputPath  string        `json:"output_path"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	NextAction  string        `json:"next_action"`
}

// Status returns the current state of a plan.
func (s *Service) Status(id string) (*Status, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &Status{
		SessionID:   sess.ID,
		Phase:       sess.Phase,
		ProjectName: sess.Payload.ProjectName,
		CurrentStep: sess.Payload.CurrentStep(),
		TotalSteps:  len(sess.Payload.Steps),
		TotalItems:  len(sess.Payload.Items),
		OutputPath:  sess.Payload.OutputPath,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
		NextAction:  Machine.Hint(sess.Phase),
	}, nil
}

// ListEntry is one row of List.
type ListEntry struct {
	SessionID   string        `json:"session_id"`
	ProjectName string        `json:"project_name"`
	Phase       session.Phase `json:"phase"`
	TotalSteps  int           `json:"total_steps"`
	TotalItems  int           `json:"total_wbs_items"`
	LastUpdated time.Time     `json:"last_updated"`
	Updated     string        `json:"updated"`
}

// List returns every plan, most recently updated first.
func (s *Service) List() []ListEntry {
	sessions := s.store.Sessions()
	out := make([]ListEntry, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, ListEntry{
			SessionID:   sess.ID,
			ProjectName: sess.Payload.ProjectName,
			Phase:       sess.Phase,
			TotalSteps:  len(sess.Payload.Steps),
			TotalItems:  len(sess.Payload.Items),
			LastUpdated: sess.UpdatedAt,
			Updated:     humanize.Time(sess.UpdatedAt),
		})
	}
	slices.SortStableFunc(out, func(a, b ListEntry) int {
		return b.LastUpdated.Compare(a.LastUpdated)
	})
	return out
}

// Export renders the plan in format.
func (s *Service) Export(id string, format render.Format) (string, error) {
	if err := render.ValidateFormat(format); err != nil {
		return "", workflow.FieldError("format", "%s", err.Error())
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	return render.Export(format, newDocument(sess))
}

// Delete removes a plan. The WBS file is left on disk.
func (s *Service) Delete(id string) bool {
	return s.store.Delete(id)
}
