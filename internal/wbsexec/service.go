package wbsexec

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/artifacts"
	"github.com/HendryAvila/reasonkit/internal/planning"
	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Store is the session store used by the execution family.
type Store = session.Store[*Payload]

// NewStore creates an empty execution store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindWBSExecution)
}

// PlanSource reads planning sessions.
type PlanSource interface {
	Get(id string) (*session.Session[*planning.Payload], error)
}

// Service implements the execution operations.
type Service struct {
	store *Store
	plans PlanSource
	files *artifacts.Writer
}

// NewService creates an execution service over plans.
func NewService(store *Store, plans PlanSource, files *artifacts.Writer) *Service {
	return &Service{store: store, plans: plans, files: files}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Result is returned by every execution operation.
type Result struct {
	SessionID  string        `json:"session_id"`
	Phase      session.Phase `json:"phase"`
	NextTask   *Task         `json:"next_task,omitempty"`
	Blocked    []string      `json:"blocked_tasks,omitempty"`
	Completed  int           `json:"completed_tasks"`
	Total      int           `json:"total_tasks"`
	Progress   int           `json:"progress_percentage"`
	OutputPath string        `json:"output_path"`
	Message    string        `json:"message"`
	NextAction string        `json:"next_action"`
}

func (s *Service) result(sess *session.Session[*Payload], msg string) *Result {
	p := sess.Payload
	res := &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Completed:  p.doneCount(),
		Total:      len(p.Tasks),
		OutputPath: p.OutputPath,
		Message:    msg,
		NextAction: Machine.Hint(sess.Phase),
	}
	if res.Total > 0 {
		res.Progress = res.Completed * 100 / res.Total
	}
	if i := p.index(p.Current); i >= 0 && !p.Tasks[i].Done {
		t := p.Tasks[i]
		res.NextTask = &t
	}
	if sess.Phase == PhaseReady {
		res.NextAction = Machine.Tool("next")
	}
	if sess.Phase == PhaseInProgress && res.NextTask == nil {
		res.NextAction = Machine.Tool("next")
	}
	return res
}

// StartInput starts executing a plan.
type StartInput struct {
	PlanningSessionID string `json:"planning_session_id" validate:"required"`
}

// Start snapshots the items of a planning session into a new execution
// session and writes the progress file.
func (s *Service) Start(in StartInput) (*Result, error) {
	in.PlanningSessionID = strings.TrimSpace(in.PlanningSessionID)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	plan, err := s.plans.Get(in.PlanningSessionID)
	if err != nil {
		return nil, err
	}
	if len(plan.Payload.Items) == 0 {
		return nil, workflow.FieldError("planning_session_id", "plan %q has no WBS items to execute", plan.ID)
	}

	tasks := make([]Task, len(plan.Payload.Items))
	for i, it := range plan.Payload.Items {
		tasks[i] = Task{
			ID:           it.ID,
			ParentID:     it.ParentID,
			Title:        it.Title,
			Description:  it.Description,
			Priority:     string(it.Priority),
			Level:        it.Level,
			Order:        it.Order,
			Dependencies: slices.Clone(it.Dependencies),
		}
	}
	sess := s.store.Create(PhaseReady, &Payload{
		PlanningSessionID: plan.ID,
		ProjectName:       plan.Payload.ProjectName,
		Tasks:             tasks,
	}, plan.ID)
	id := sess.ID

	rel := progressFile(plan.Payload.WBSFile, "")
	if s.fileInUse(rel, id) {
		rel = progressFile(plan.Payload.WBSFile, id)
	}
	sess, err = s.store.Update(id, func(sess *session.Session[*Payload]) error {
		sess.Payload.ProgressFile = rel
		sess.Payload.OutputPath = s.files.Path(rel)
		return s.writeFile(sess)
	})
	if err != nil {
		s.store.Delete(id)
		return nil, err
	}
	return s.result(sess, fmt.Sprintf("Execution started with %d tasks.", len(tasks))), nil
}

// Next picks the next unblocked task and makes it current.
func (s *Service) Next(id string) (*Result, error) {
	var msg string
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "next"); err != nil {
			return err
		}
		i := nextTask(sess.Payload.Tasks)
		if i < 0 {
			return workflow.FieldError("session_id", "no unblocked task remains; check for dependency cycles among: %s",
				strings.Join(openTasks(sess.Payload.Tasks), ", "))
		}
		sess.Payload.Current = sess.Payload.Tasks[i].ID
		msg = fmt.Sprintf("Work on %s: %s", sess.Payload.Tasks[i].ID, sess.Payload.Tasks[i].Title)
		if err := workflow.Apply(sess, Machine, "next", sess.Payload.Current); err != nil {
			return err
		}
		return s.writeFile(sess)
	})
	if err != nil {
		return nil, err
	}
	return s.result(sess, msg), nil
}

// CompleteInput marks one task done.
type CompleteInput struct {
	SessionID string `json:"session_id" validate:"required"`
	TaskID    string `json:"task_id" validate:"required"`
	Notes     string `json:"notes"`
}

// CompleteTask marks a task done and completes the session after the last one.
func (s *Service) CompleteTask(in CompleteInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.TaskID = strings.TrimSpace(in.TaskID)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	var msg string
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "complete_task"); err != nil {
			return err
		}
		p := sess.Payload
		i := p.index(in.TaskID)
		if i < 0 {
			return workflow.FieldError("task_id", "task %q is not part of this plan", in.TaskID)
		}
		if p.Tasks[i].Done {
			return workflow.FieldError("task_id", "task %q is already done", in.TaskID)
		}
		if b := blockers(p.Tasks, i); len(b) > 0 {
			return workflow.FieldError("task_id", "task %q is blocked by: %s", in.TaskID, strings.Join(b, ", "))
		}

		now := timeNow().UTC()
		p.Tasks[i].Done = true
		p.Tasks[i].Notes = in.Notes
		p.Tasks[i].CompletedAt = &now

		to := PhaseInProgress
		msg = fmt.Sprintf("Task %s done.", in.TaskID)
		if p.doneCount() == len(p.Tasks) {
			to = PhaseCompleted
			p.Current = ""
			msg += " All tasks are complete."
		} else if j := nextTask(p.Tasks); j >= 0 {
			p.Current = p.Tasks[j].ID
			msg += fmt.Sprintf(" Next: %s: %s", p.Tasks[j].ID, p.Tasks[j].Title)
		} else {
			p.Current = ""
		}
		if err := workflow.ApplyTo(sess, Machine, "complete_task", to, in.TaskID); err != nil {
			return err
		}
		return s.writeFile(sess)
	})
	if err != nil {
		return nil, err
	}
	return s.result(sess, msg), nil
}

// Status returns the current progress without changing anything.
func (s *Service) Status(id string) (*Result, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	res := s.result(sess, "")
	for i, t := range sess.Payload.Tasks {
		if !t.Done && len(blockers(sess.Payload.Tasks, i)) > 0 {
			res.Blocked = append(res.Blocked, t.ID)
		}
	}
	return res, nil
}

func openTasks(tasks []Task) []string {
	var out []string
	for _, t := range tasks {
		if !t.Done {
			out = append(out, t.ID)
		}
	}
	return out
}

// progressFile sits next to the plan's WBS file. A second execution of the
// same plan gets its own session id in the name.
func progressFile(wbsFile, id string) string {
	stem := strings.TrimSuffix(wbsFile, ".md")
	if id != "" {
		stem += "_" + id
	}
	return stem + "_progress.md"
}

func (s *Service) fileInUse(rel, self string) bool {
	for _, other := range s.store.Sessions() {
		if other.ID != self && other.Payload.ProgressFile == rel {
			return true
		}
	}
	return false
}

func (s *Service) writeFile(sess *session.Session[*Payload]) error {
	_, err := s.files.Write(sess.Payload.ProgressFile, progressMarkdown(sess))
	return err
}

func progressMarkdown(sess *session.Session[*Payload]) string {
	p := sess.Payload
	items := make([]render.Item, len(p.Tasks))
	for i, t := range p.Tasks {
		items[i] = render.Item{
			ID:           t.ID,
			ParentID:     t.ParentID,
			Title:        t.Title,
			Description:  t.Description,
			Priority:     t.Priority,
			Level:        t.Level,
			Order:        t.Order,
			Dependencies: t.Dependencies,
			Done:         t.Done,
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Execution: %s\n\n", p.ProjectName)
	fmt.Fprintf(&b, "Source plan: %s\n\n", p.PlanningSessionID)
	b.WriteString("## Progress\n\n")
	b.WriteString(render.Checklist(items, render.ChecklistOptions{}))
	b.WriteString("\n\n")

	var notes []string
	for _, i := range preorder(p.Tasks) {
		if t := p.Tasks[i]; t.Notes != "" {
			notes = append(notes, fmt.Sprintf("- **%s**: %s", t.ID, t.Notes))
		}
	}
	if len(notes) > 0 {
		b.WriteString("## Notes\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n\n")
	}

	done := p.doneCount()
	pct := 0
	if len(p.Tasks) > 0 {
		pct = done * 100 / len(p.Tasks)
	}
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Completed**: %d/%d (%d%%)\n", done, len(p.Tasks), pct)
	if p.Current != "" {
		fmt.Fprintf(&b, "- **Current Task**: %s\n", p.Current)
	}
	fmt.Fprintf(&b, "- **Status**: %s\n", sess.Phase)
	return b.String()
}
