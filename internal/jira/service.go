package jira

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

var (
	issueKeyRe   = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[0-9]+$`)
	projectKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)
)

// ValidIssueKey reports whether key looks like PROJECT-123.
func ValidIssueKey(key string) bool {
	return issueKeyRe.MatchString(key)
}

func checkIssueKey(key string) error {
	if !ValidIssueKey(key) {
		return workflow.FieldError("issue_key", "invalid issue key %q, expected format PROJECT-123", key)
	}
	return nil
}

// Service validates tool input, calls the client and shapes the results.
type Service struct {
	client         Client
	baseURL        string
	knowledgeField string
	attachmentsDir string
}

// NewService creates a JIRA service. Downloads are saved under
// attachmentsDir.
func NewService(client Client, cfg Config, attachmentsDir string) *Service {
	return &Service{
		client:         client,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		knowledgeField: cfg.KnowledgeField,
		attachmentsDir: attachmentsDir,
	}
}

// ─── Views ───────────────────────────────────────────────────────────────────

type UserView struct {
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

func userView(u *User) *UserView {
	if u == nil {
		return nil
	}
	id := u.AccountID
	if id == "" {
		id = u.Name
	}
	return &UserView{AccountID: id, DisplayName: u.DisplayName, Email: u.EmailAddress}
}

type StatusView struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type IssueSummary struct {
	Key         string     `json:"key"`
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Status      StatusView `json:"status"`
	IssueType   string     `json:"issue_type"`
	Project     ProjectRef `json:"project"`
	Assignee    *UserView  `json:"assignee"`
	Priority    string     `json:"priority,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	Created     string     `json:"created"`
	Updated     string     `json:"updated"`
	Preview     string     `json:"knowledge_preview,omitempty"`
}

func name(n *Named) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func summarize(is Issue) IssueSummary {
	f := is.Fields
	s := IssueSummary{
		Key:         is.Key,
		ID:          is.ID,
		Summary:     f.Summary,
		Description: truncate(f.Description, 200),
		IssueType:   name(f.IssueType),
		Assignee:    userView(f.Assignee),
		Priority:    name(f.Priority),
		Labels:      f.Labels,
		Created:     f.Created,
		Updated:     f.Updated,
	}
	if f.Status != nil {
		s.Status = StatusView{Name: f.Status.Name, Category: f.Status.StatusCategory.Name}
	}
	if f.Project != nil {
		s.Project = *f.Project
	}
	return s
}

type PageSummary struct {
	Total      int  `json:"total"`
	StartAt    int  `json:"start_at"`
	MaxResults int  `json:"max_results"`
	Returned   int  `json:"returned"`
	HasMore    bool `json:"has_more"`
}

// SearchResult is the output of SearchIssues.
type SearchResult struct {
	JQL        string         `json:"jql"`
	ExecutedAt time.Time      `json:"executed_at"`
	Summary    PageSummary    `json:"summary"`
	Issues     []IssueSummary `json:"issues"`
}

// ─── Issues ──────────────────────────────────────────────────────────────────

// SearchInput is the input of SearchIssues.
type SearchInput struct {
	JQL        string `json:"jql" validate:"required"`
	StartAt    int    `json:"start_at" validate:"min=0"`
	MaxResults int    `json:"max_results" validate:"min=1,max=1000"`
}

// SearchIssues runs a JQL search.
func (s *Service) SearchIssues(ctx context.Context, in SearchInput) (*SearchResult, error) {
	in.JQL = strings.TrimSpace(in.JQL)
	if in.MaxResults == 0 {
		in.MaxResults = 50
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	resp, err := s.client.SearchIssues(ctx, in.JQL, in.StartAt, in.MaxResults)
	if err != nil {
		return nil, err
	}
	out := &SearchResult{
		JQL:        in.JQL,
		ExecutedAt: timeNow().UTC(),
		Summary: PageSummary{
			Total:      resp.Total,
			StartAt:    resp.StartAt,
			MaxResults: resp.MaxResults,
			Returned:   len(resp.Issues),
			HasMore:    resp.StartAt+len(resp.Issues) < resp.Total,
		},
		Issues: make([]IssueSummary, len(resp.Issues)),
	}
	for i, is := range resp.Issues {
		out.Issues[i] = summarize(is)
	}
	log.Debug().Int("total", resp.Total).Int("returned", len(resp.Issues)).Msg("JIRA search completed")
	return out, nil
}

type ChangeView struct {
	ID      string       `json:"id"`
	Author  *UserView    `json:"author"`
	Created string       `json:"created"`
	Items   []ChangeItem `json:"items"`
}

type ChangeItem struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// IssueDetails is the output of GetIssueDetails.
type IssueDetails struct {
	IssueSummary
	Self             string            `json:"self"`
	Description      string            `json:"description"`
	Reporter         *UserView         `json:"reporter"`
	Creator          *UserView         `json:"creator"`
	Resolved         string            `json:"resolved,omitempty"`
	DueDate          string            `json:"due_date,omitempty"`
	Components       []string          `json:"components"`
	AttachmentsCount int               `json:"attachments_count"`
	CommentsCount    int               `json:"comments_count"`
	WebURL           string            `json:"web_url"`
	CustomFields     map[string]string `json:"custom_fields,omitempty"`
	History          []ChangeView      `json:"history,omitempty"`
}

// maxHistory bounds the change history returned with an issue.
const maxHistory = 10

// GetIssueDetails fetches one issue, optionally with its last changes.
func (s *Service) GetIssueDetails(ctx context.Context, key string, includeHistory bool) (*IssueDetails, error) {
	key = strings.TrimSpace(key)
	if err := checkIssueKey(key); err != nil {
		return nil, err
	}
	var expand []string
	if includeHistory {
		expand = append(expand, "changelog")
	}
	is, err := s.client.GetIssue(ctx, key, expand...)
	if err != nil {
		return nil, err
	}
	f := is.Fields
	d := &IssueDetails{
		IssueSummary: summarize(*is),
		Self:         is.Self,
		Description:  f.Description,
		Reporter:     userView(f.Reporter),
		Creator:      userView(f.Creator),
		Resolved:     f.ResolutionDate,
		DueDate:      f.DueDate,
		Components:   []string{},
		WebURL:       s.webURL(is.Key),
	}
	d.IssueSummary.Description = ""
	for _, c := range f.Components {
		d.Components = append(d.Components, c.Name)
	}
	d.AttachmentsCount = len(f.Attachment)
	if f.Comment != nil {
		d.CommentsCount = f.Comment.Total
	}
	if s.knowledgeField != "" {
		if v := is.CustomText(s.knowledgeField); v != "" {
			d.CustomFields = map[string]string{"knowledge": v}
		}
	}
	if includeHistory && is.Changelog != nil {
		for i, h := range is.Changelog.Histories {
			if i == maxHistory {
				break
			}
			cv := ChangeView{ID: h.ID, Author: userView(h.Author), Created: h.Created}
			for _, it := range h.Items {
				cv.Items = append(cv.Items, ChangeItem{Field: it.Field, From: it.FromString, To: it.ToString})
			}
			d.History = append(d.History, cv)
		}
	}
	return d, nil
}

func (s *Service) webURL(key string) string {
	return s.baseURL + "/browse/" + key
}

// CreateInput is the input of CreateIssue.
type CreateInput struct {
	Project     string   `json:"project" validate:"required"`
	Summary     string   `json:"summary" validate:"required,max=255"`
	IssueType   string   `json:"issue_type" validate:"required"`
	Description string   `json:"description"`
	Assignee    string   `json:"assignee_account_id"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=Highest High Medium Low Lowest"`
	Labels      []string `json:"labels"`
}

// Created is the output of CreateIssue.
type Created struct {
	CreatedIssue
	WebURL string `json:"web_url"`
}

// CreateIssue creates an issue.
func (s *Service) CreateIssue(ctx context.Context, in CreateInput) (*Created, error) {
	in.Project = strings.TrimSpace(in.Project)
	in.Summary = strings.TrimSpace(in.Summary)
	if in.IssueType == "" {
		in.IssueType = "Task"
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if !projectKeyRe.MatchString(in.Project) {
		return nil, workflow.FieldError("project", "project must contain only uppercase letters and numbers")
	}

	fields := map[string]any{
		"project":   map[string]string{"key": in.Project},
		"summary":   in.Summary,
		"issuetype": map[string]string{"name": in.IssueType},
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.Assignee != "" {
		fields["assignee"] = map[string]string{"accountId": in.Assignee}
	}
	if in.Priority != "" {
		fields["priority"] = map[string]string{"name": in.Priority}
	}
	if len(in.Labels) > 0 {
		fields["labels"] = in.Labels
	}
	created, err := s.client.CreateIssue(ctx, fields)
	if err != nil {
		return nil, err
	}
	log.Info().Str("key", created.Key).Msg("JIRA issue created")
	return &Created{CreatedIssue: *created, WebURL: s.webURL(created.Key)}, nil
}

// ─── Comments ────────────────────────────────────────────────────────────────

// maxCommentLength is the JIRA limit on a comment body.
const maxCommentLength = 32767

type CommentView struct {
	IssueKey   string      `json:"issue_key"`
	ID         string      `json:"comment_id"`
	Body       string      `json:"body"`
	Author     *UserView   `json:"author"`
	Created    string      `json:"created"`
	Updated    string      `json:"updated"`
	Visibility *Visibility `json:"visibility,omitempty"`
}

func commentView(key string, c Comment) CommentView {
	return CommentView{
		IssueKey:   key,
		ID:         c.ID,
		Body:       c.Body,
		Author:     userView(c.Author),
		Created:    c.Created,
		Updated:    c.Updated,
		Visibility: c.Visibility,
	}
}

// Comments is the output of GetComments.
type Comments struct {
	IssueKey string        `json:"issue_key"`
	Summary  PageSummary   `json:"summary"`
	Comments []CommentView `json:"comments"`
}

// GetComments lists the comments of an issue.
func (s *Service) GetComments(ctx context.Context, key string, startAt, maxResults int) (*Comments, error) {
	if err := checkIssueKey(key); err != nil {
		return nil, err
	}
	if maxResults == 0 {
		maxResults = 50
	}
	if startAt < 0 {
		return nil, workflow.FieldError("start_at", "start_at must be 0 or greater")
	}
	if maxResults < 1 || maxResults > 100 {
		return nil, workflow.FieldError("max_results", "max_results must be between 1 and 100")
	}
	page, err := s.client.GetComments(ctx, key, startAt, maxResults)
	if err != nil {
		return nil, err
	}
	out := &Comments{
		IssueKey: key,
		Summary: PageSummary{
			Total:      page.Total,
			StartAt:    page.StartAt,
			MaxResults: page.MaxResults,
			Returned:   len(page.Comments),
			HasMore:    page.StartAt+len(page.Comments) < page.Total,
		},
		Comments: make([]CommentView, len(page.Comments)),
	}
	for i, c := range page.Comments {
		out.Comments[i] = commentView(key, c)
	}
	return out, nil
}

// CommentInput is the input of AddComment and UpdateComment.
type CommentInput struct {
	IssueKey   string      `json:"issue_key" validate:"required"`
	CommentID  string      `json:"comment_id"`
	Body       string      `json:"body" validate:"required,max=32767"`
	Visibility *Visibility `json:"visibility" validate:"omitempty"`
}

func (s *Service) checkComment(in *CommentInput) error {
	in.Body = strings.TrimSpace(in.Body)
	if err := workflow.Validate(in); err != nil {
		return err
	}
	return checkIssueKey(in.IssueKey)
}

// AddComment adds a comment to an issue.
func (s *Service) AddComment(ctx context.Context, in CommentInput) (*CommentView, error) {
	if err := s.checkComment(&in); err != nil {
		return nil, err
	}
	c, err := s.client.AddComment(ctx, in.IssueKey, in.Body, in.Visibility)
	if err != nil {
		return nil, err
	}
	v := commentView(in.IssueKey, *c)
	return &v, nil
}

// UpdateComment replaces the body of a comment.
func (s *Service) UpdateComment(ctx context.Context, in CommentInput) (*CommentView, error) {
	if strings.TrimSpace(in.CommentID) == "" {
		return nil, workflow.FieldError("comment_id", "comment_id is required")
	}
	if err := s.checkComment(&in); err != nil {
		return nil, err
	}
	c, err := s.client.UpdateComment(ctx, in.IssueKey, in.CommentID, in.Body, in.Visibility)
	if err != nil {
		return nil, err
	}
	v := commentView(in.IssueKey, *c)
	return &v, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, key, id string) error {
	if err := checkIssueKey(key); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return workflow.FieldError("comment_id", "comment_id is required")
	}
	return s.client.DeleteComment(ctx, key, id)
}

// ─── Attachments ─────────────────────────────────────────────────────────────

type AttachmentView struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	SizeReadable string    `json:"size_readable"`
	MimeType     string    `json:"mime_type"`
	Created      string    `json:"created"`
	Author       *UserView `json:"author"`
	ContentURL   string    `json:"content_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// Attachments is the output of ListAttachments.
type Attachments struct {
	IssueKey    string           `json:"issue_key"`
	TotalCount  int              `json:"total_count"`
	Attachments []AttachmentView `json:"attachments"`
}

// ListAttachments lists the attachments of an issue.
func (s *Service) ListAttachments(ctx context.Context, key string) (*Attachments, error) {
	if err := checkIssueKey(key); err != nil {
		return nil, err
	}
	is, err := s.client.GetIssue(ctx, key)
	if err != nil {
		return nil, err
	}
	out := &Attachments{IssueKey: key, TotalCount: len(is.Fields.Attachment), Attachments: []AttachmentView{}}
	for _, a := range is.Fields.Attachment {
		out.Attachments = append(out.Attachments, AttachmentView{
			ID:           a.ID,
			Filename:     a.Filename,
			Size:         a.Size,
			SizeReadable: humanize.IBytes(uint64(max(a.Size, 0))),
			MimeType:     a.MimeType,
			Created:      a.Created,
			Author:       userView(a.Author),
			ContentURL:   a.Content,
			ThumbnailURL: a.Thumbnail,
		})
	}
	return out, nil
}

// DownloadInput is the input of DownloadAttachment. One of AttachmentID
// and ContentURL is required.
type DownloadInput struct {
	IssueKey     string `json:"issue_key" validate:"required"`
	AttachmentID string `json:"attachment_id" validate:"required_without=ContentURL"`
	ContentURL   string `json:"content_url"`
	Filename     string `json:"filename"`
}

// Downloaded is the output of DownloadAttachment.
type Downloaded struct {
	IssueKey     string `json:"issue_key"`
	Filename     string `json:"filename"`
	SavedPath    string `json:"saved_path"`
	Size         int    `json:"size"`
	SizeReadable string `json:"size_readable"`
}

// DownloadAttachment saves an attachment under the attachments directory.
func (s *Service) DownloadAttachment(ctx context.Context, in DownloadInput) (*Downloaded, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if err := checkIssueKey(in.IssueKey); err != nil {
		return nil, err
	}

	contentURL, filename := in.ContentURL, ""
	if in.AttachmentID != "" {
		is, err := s.client.GetIssue(ctx, in.IssueKey)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(is.Fields.Attachment, func(a Attachment) bool { return a.ID == in.AttachmentID })
		if i < 0 {
			return nil, workflow.FieldError("attachment_id", "attachment %s not found in issue %s", in.AttachmentID, in.IssueKey)
		}
		contentURL, filename = is.Fields.Attachment[i].Content, is.Fields.Attachment[i].Filename
	} else {
		filename = filenameFromURL(contentURL)
	}
	if in.Filename != "" {
		filename = in.Filename
	}
	filename = filepath.Base(filepath.Clean("/" + filename))
	if filename == "/" || filename == "." {
		filename = fmt.Sprintf("attachment_%s", timeNow().UTC().Format("20060102_150405"))
	}

	data, err := s.client.Download(ctx, contentURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.attachmentsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	dest := filepath.Join(s.attachmentsDir, filename)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("save attachment: %w", err)
	}
	abs, _ := filepath.Abs(dest)
	return &Downloaded{
		IssueKey:     in.IssueKey,
		Filename:     filename,
		SavedPath:    abs,
		Size:         len(data),
		SizeReadable: humanize.IBytes(uint64(len(data))),
	}, nil
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name, _ := url.PathUnescape(path.Base(u.Path))
	return name
}

// ─── Projects ────────────────────────────────────────────────────────────────

type ProjectView struct {
	Key         string            `json:"key"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ProjectType string            `json:"project_type"`
	Lead        *UserView         `json:"lead"`
	URL         string            `json:"url"`
	AvatarURLs  map[string]string `json:"avatar_urls,omitempty"`
}

// Projects is the output of GetProjects.
type Projects struct {
	Total        int            `json:"total"`
	ProjectTypes map[string]int `json:"project_types"`
	Projects     []ProjectView  `json:"projects"`
}

// GetProjects lists the visible projects sorted by key, name or type.
func (s *Service) GetProjects(ctx context.Context, sortBy string, includeArchived bool) (*Projects, error) {
	if sortBy == "" {
		sortBy = "key"
	}
	var sortKey func(Project) string
	switch sortBy {
	case "key":
		sortKey = func(p Project) string { return p.Key }
	case "name":
		sortKey = func(p Project) string { return p.Name }
	case "type":
		sortKey = func(p Project) string { return p.ProjectTypeKey }
	default:
		return nil, workflow.FieldError("sort_by", "sort_by must be one of: key, name, type")
	}

	all, err := s.client.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	var projects []Project
	for _, p := range all {
		if includeArchived || !p.Archived {
			projects = append(projects, p)
		}
	}
	slices.SortStableFunc(projects, func(a, b Project) int {
		return strings.Compare(strings.ToLower(sortKey(a)), strings.ToLower(sortKey(b)))
	})

	out := &Projects{Total: len(projects), ProjectTypes: map[string]int{}, Projects: []ProjectView{}}
	for _, p := range projects {
		typ := p.ProjectTypeKey
		if typ == "" {
			typ = "unknown"
		}
		out.ProjectTypes[typ]++
		out.Projects = append(out.Projects, ProjectView{
			Key:         p.Key,
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			ProjectType: p.ProjectTypeKey,
			Lead:        userView(p.Lead),
			URL:         p.Self,
			AvatarURLs:  p.AvatarURLs,
		})
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
