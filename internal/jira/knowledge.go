package jira

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// maxKnowledgePages bounds the pages fetched per project.
const maxKnowledgePages = 50

// KnowledgeInput is the input of SearchKnowledge.
type KnowledgeInput struct {
	Keyword    string   `json:"keyword" validate:"required"`
	Projects   []string `json:"projects" validate:"dive,required"`
	IssueType  string   `json:"issue_type"`
	MaxResults int      `json:"max_results" validate:"min=1,max=100"`
}

// KnowledgeResult is the output of SearchKnowledge.
type KnowledgeResult struct {
	Keyword string         `json:"keyword"`
	Field   string         `json:"knowledge_field"`
	Total   int            `json:"total"`
	Issues  []IssueSummary `json:"issues"`
}

// knowledgeJQL builds the JQL for one project ("" for all projects).
func (s *Service) knowledgeJQL(project, issueType, keyword string) string {
	var parts []string
	if project != "" {
		parts = append(parts, "project = "+project)
	}
	if issueType != "" {
		parts = append(parts, fmt.Sprintf("issueType = %q", issueType))
	}
	kw := strings.ReplaceAll(keyword, `"`, `\"`)
	if s.knowledgeField != "" {
		parts = append(parts, fmt.Sprintf(`cf[%s] ~ "%s"`, strings.TrimPrefix(s.knowledgeField, "customfield_"), kw))
	} else {
		parts = append(parts, fmt.Sprintf(`text ~ "%s"`, kw))
	}
	return strings.Join(parts, " AND ")
}

// SearchKnowledge searches the knowledge field of each project in
// parallel, following pagination, and merges the results in project order.
func (s *Service) SearchKnowledge(ctx context.Context, in KnowledgeInput) (*KnowledgeResult, error) {
	in.Keyword = strings.TrimSpace(in.Keyword)
	if in.MaxResults == 0 {
		in.MaxResults = 25
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	projects := in.Projects
	if len(projects) == 0 {
		projects = []string{""}
	}
	for i, p := range projects {
		if p != "" && !projectKeyRe.MatchString(p) {
			return nil, workflow.FieldError(fmt.Sprintf("projects[%d]", i), "invalid project key %q", p)
		}
	}

	perProject := make([][]Issue, len(projects))
	totals := make([]int, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range projects {
		jql := s.knowledgeJQL(p, in.IssueType, in.Keyword)
		g.Go(func() error {
			start := 0
			for page := 0; page < maxKnowledgePages; page++ {
				resp, err := s.client.SearchIssues(gctx, jql, start, in.MaxResults)
				if err != nil {
					return err
				}
				perProject[i] = append(perProject[i], resp.Issues...)
				totals[i] = resp.Total
				start += len(resp.Issues)
				if len(resp.Issues) == 0 || start >= resp.Total {
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &KnowledgeResult{Keyword: in.Keyword, Field: s.knowledgeField, Issues: []IssueSummary{}}
	for i, issues := range perProject {
		out.Total += totals[i]
		for _, is := range issues {
			sum := summarize(is)
			text := is.Fields.Description
			if s.knowledgeField != "" {
				text = is.CustomText(s.knowledgeField)
			}
			sum.Preview = Preview(text, in.Keyword)
			out.Issues = append(out.Issues, sum)
		}
	}
	return out, nil
}

// Preview returns about 100 characters either side of the first
// case-insensitive match of keyword, or the first 200 characters when
// there is no match.
func Preview(content, keyword string) string {
	if content == "" {
		return ""
	}
	r := []rune(content)
	lower := []rune(strings.ToLower(content))
	kw := []rune(strings.ToLower(keyword))
	pos := indexRunes(lower, kw)
	if pos < 0 {
		return truncate(content, 200)
	}
	start := max(0, pos-100)
	end := min(len(r), pos+len(kw)+100)
	preview := string(r[start:end])
	if start > 0 {
		preview = "..." + preview
	}
	if end < len(r) {
		preview += "..."
	}
	return preview
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if string(s[i:i+len(sub)]) == string(sub) {
			return i
		}
	}
	return -1
}
