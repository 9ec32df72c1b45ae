package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/confluence"
)

func pageIDParam() mcp.ToolOption {
	return mcp.WithString("page_id",
		mcp.Required(),
		mcp.Description("Page id"),
	)
}

// Confluence returns the confluence_* tools.
func Confluence(c *confluence.Client) []Tool {
	return []Tool{
		newTool(
			mcp.NewTool("confluence_create_page",
				mcp.WithDescription("Create a page or blog post in a space."),
				mcp.WithString("title",
					mcp.Required(),
					mcp.Description("Page title"),
				),
				mcp.WithString("space_key",
					mcp.Required(),
					mcp.Description("Key of the space"),
				),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("Body in Confluence storage format (XHTML)"),
				),
				mcp.WithString("parent_id",
					mcp.Description("Create the page under this page"),
				),
				mcp.WithString("page_type",
					mcp.Description("Content type (default: page)"),
					mcp.Enum("page", "blogpost"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in confluence.CreatePageInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.CreatePage(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("confluence_get_page",
				mcp.WithDescription("Read a page with its body, version, space and ancestors."),
				pageIDParam(),
				mcp.WithString("expand",
					mcp.Description("Comma-separated expansions (default: body.storage,version,space,ancestors)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var expand []string
				if raw := req.GetString("expand", ""); raw != "" {
					for _, e := range strings.Split(raw, ",") {
						if e = strings.TrimSpace(e); e != "" {
							expand = append(expand, e)
						}
					}
				}
				return reply(c.GetPage(ctx, req.GetString("page_id", ""), expand))
			},
		),
		newTool(
			mcp.NewTool("confluence_update_page",
				mcp.WithDescription(
					"Replace the title and body of a page. Without version the current version is read "+
						"and incremented.",
				),
				pageIDParam(),
				mcp.WithString("title",
					mcp.Required(),
					mcp.Description("Page title"),
				),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("New body in Confluence storage format"),
				),
				mcp.WithNumber("version",
					mcp.Description("Current version number (default: looked up)"),
				),
				mcp.WithString("version_message",
					mcp.Description("Change note for the new version"),
				),
				mcp.WithString("page_type",
					mcp.Description("Content type (default: page)"),
					mcp.Enum("page", "blogpost"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in confluence.UpdatePageInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.UpdatePage(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("confluence_delete_page",
				mcp.WithDescription("Delete a page (moves it to the space trash)."),
				pageIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("page_id", "")
				if err := c.DeletePage(ctx, id); err != nil {
					return errorResult(err), nil
				}
				return jsonResult(map[string]any{"page_id": id, "deleted": true})
			},
		),
		newTool(
			mcp.NewTool("confluence_get_spaces",
				mcp.WithDescription("List spaces, or read one space by key."),
				mcp.WithString("space_key",
					mcp.Description("Read only this space"),
				),
				mcp.WithString("space_type",
					mcp.Description("Only spaces of this type"),
					mcp.Enum("global", "personal"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Page size, 1 to 500 (default: 25)"),
				),
				mcp.WithNumber("start",
					mcp.Description("Index of the first space (default: 0)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in confluence.SpacesInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.GetSpaces(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("confluence_search_pages",
				mcp.WithDescription(
					"Search pages. A CQL query is built from query, space_key and title unless cql is given.",
				),
				mcp.WithString("query",
					mcp.Description("Words to find in titles or text"),
				),
				mcp.WithString("space_key",
					mcp.Description("Only this space"),
				),
				mcp.WithString("title",
					mcp.Description("Words to find in titles"),
				),
				mcp.WithString("cql",
					mcp.Description("Raw CQL; overrides the other filters"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Page size, 1 to 100 (default: 25)"),
				),
				mcp.WithNumber("start",
					mcp.Description("Index of the first result (default: 0)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in confluence.SearchInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.SearchPages(ctx, in))
			},
		),
	}
}
