package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/jira"
)

func issueKeyParam() mcp.ToolOption {
	return mcp.WithString("issue_key",
		mcp.Required(),
		mcp.Description("Issue key, e.g. PROJ-123"),
	)
}

var visibilitySchema = map[string]any{
	"type":  map[string]any{"type": "string", "enum": []string{"group", "role"}},
	"value": strProp("Group or role name"),
}

// Jira returns the jira_* tools.
func Jira(svc *jira.Service) []Tool {
	return []Tool{
		newTool(
			mcp.NewTool("jira_search_issues",
				mcp.WithDescription("Search issues with JQL."),
				mcp.WithString("jql",
					mcp.Required(),
					mcp.Description("JQL query, e.g. project = PROJ AND status = Open"),
				),
				mcp.WithNumber("start_at",
					mcp.Description("Index of the first result (default: 0)"),
				),
				mcp.WithNumber("max_results",
					mcp.Description("Page size, 1 to 1000 (default: 50)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.SearchInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.SearchIssues(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("jira_get_issue_details",
				mcp.WithDescription("Read one issue with its description, people, dates and optionally its change history."),
				issueKeyParam(),
				mcp.WithBoolean("include_history",
					mcp.Description("Include the changelog"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(svc.GetIssueDetails(ctx,
					req.GetString("issue_key", ""),
					req.GetBool("include_history", false),
				))
			},
		),
		newTool(
			mcp.NewTool("jira_create_issue",
				mcp.WithDescription("Create an issue."),
				mcp.WithString("project",
					mcp.Required(),
					mcp.Description("Project key"),
				),
				mcp.WithString("summary",
					mcp.Required(),
					mcp.Description("Summary, at most 255 characters"),
				),
				mcp.WithString("issue_type",
					mcp.Required(),
					mcp.Description("Issue type name, e.g. Task or Bug"),
				),
				mcp.WithString("description",
					mcp.Description("Description"),
				),
				mcp.WithString("assignee_account_id",
					mcp.Description("Account id of the assignee"),
				),
				mcp.WithString("priority",
					mcp.Description("Priority"),
					mcp.Enum("Highest", "High", "Medium", "Low", "Lowest"),
				),
				mcp.WithArray("labels",
					mcp.Description("Labels"),
					mcp.Items(map[string]any{"type": "string"}),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.CreateInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.CreateIssue(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("jira_get_comments",
				mcp.WithDescription("List the comments of an issue."),
				issueKeyParam(),
				mcp.WithNumber("start_at",
					mcp.Description("Index of the first comment (default: 0)"),
				),
				mcp.WithNumber("max_results",
					mcp.Description("Page size, 1 to 100 (default: 50)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(svc.GetComments(ctx,
					req.GetString("issue_key", ""),
					req.GetInt("start_at", 0),
					req.GetInt("max_results", 0),
				))
			},
		),
		newTool(
			mcp.NewTool("jira_add_comment",
				mcp.WithDescription("Add a comment to an issue."),
				issueKeyParam(),
				mcp.WithString("body",
					mcp.Required(),
					mcp.Description("Comment text"),
				),
				mcp.WithObject("visibility",
					mcp.Description("Restrict the comment to a group or role"),
					mcp.Properties(visibilitySchema),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.CommentInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.AddComment(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("jira_update_comment",
				mcp.WithDescription("Replace the text of a comment."),
				issueKeyParam(),
				mcp.WithString("comment_id",
					mcp.Required(),
					mcp.Description("Comment id"),
				),
				mcp.WithString("body",
					mcp.Required(),
					mcp.Description("New comment text"),
				),
				mcp.WithObject("visibility",
					mcp.Description("Restrict the comment to a group or role"),
					mcp.Properties(visibilitySchema),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.CommentInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.UpdateComment(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("jira_delete_comment",
				mcp.WithDescription("Delete a comment."),
				issueKeyParam(),
				mcp.WithString("comment_id",
					mcp.Required(),
					mcp.Description("Comment id"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				key := req.GetString("issue_key", "")
				id := req.GetString("comment_id", "")
				if err := svc.DeleteComment(ctx, key, id); err != nil {
					return errorResult(err), nil
				}
				return jsonResult(map[string]any{"issue_key": key, "comment_id": id, "deleted": true})
			},
		),
		newTool(
			mcp.NewTool("jira_list_attachments",
				mcp.WithDescription("List the attachments of an issue."),
				issueKeyParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(svc.ListAttachments(ctx, req.GetString("issue_key", "")))
			},
		),
		newTool(
			mcp.NewTool("jira_download_attachment",
				mcp.WithDescription("Download an attachment into the attachments directory."),
				issueKeyParam(),
				mcp.WithString("attachment_id",
					mcp.Description("Attachment id, as listed by jira_list_attachments"),
				),
				mcp.WithString("content_url",
					mcp.Description("Direct content URL; replaces attachment_id"),
				),
				mcp.WithString("filename",
					mcp.Description("File name to save as (default: the attachment's name)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.DownloadInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.DownloadAttachment(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("jira_get_projects",
				mcp.WithDescription("List the projects visible to the configured account."),
				mcp.WithString("sort_by",
					mcp.Description("Sort order (default: key)"),
					mcp.Enum("key", "name", "type"),
				),
				mcp.WithBoolean("include_archived",
					mcp.Description("Include archived projects"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(svc.GetProjects(ctx,
					req.GetString("sort_by", ""),
					req.GetBool("include_archived", false),
				))
			},
		),
		newTool(
			mcp.NewTool("jira_search_knowledge",
				mcp.WithDescription(
					"Search resolved issues for reusable knowledge about a keyword, across one or more projects in parallel.",
				),
				mcp.WithString("keyword",
					mcp.Required(),
					mcp.Description("What to look for"),
				),
				mcp.WithArray("projects",
					mcp.Description("Project keys to search (default: all projects)"),
					mcp.Items(map[string]any{"type": "string"}),
				),
				mcp.WithString("issue_type",
					mcp.Description("Only this issue type"),
				),
				mcp.WithNumber("max_results",
					mcp.Description("Maximum issues, 1 to 100 (default: 25)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in jira.KnowledgeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(svc.SearchKnowledge(ctx, in))
			},
		),
	}
}
