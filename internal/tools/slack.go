package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/slackclient"
)

func channelParam(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description("Channel id, e.g. C0123456789")}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString("channel", opts...)
}

func urlParam() mcp.ToolOption {
	return mcp.WithString("url",
		mcp.Description("Slack message link; replaces channel and ts when given"),
	)
}

// Slack returns the slack_* tools.
func Slack(c *slackclient.Client) []Tool {
	return []Tool{
		newTool(
			mcp.NewTool("slack_get_thread_content",
				mcp.WithDescription("Read a whole thread: the parent message, every reply and the participants."),
				channelParam(false),
				mcp.WithString("thread_ts",
					mcp.Description("Timestamp of the thread's parent message"),
				),
				urlParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				ref := slackclient.MessageRef{
					Channel: req.GetString("channel", ""),
					TS:      req.GetString("thread_ts", ""),
					URL:     req.GetString("url", ""),
				}
				return reply(c.GetThread(ctx, ref))
			},
		),
		newTool(
			mcp.NewTool("slack_get_single_message",
				mcp.WithDescription("Read one message by channel and timestamp, or by its link."),
				channelParam(false),
				mcp.WithString("ts",
					mcp.Description("Message timestamp, e.g. 1712345678.123456"),
				),
				urlParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var ref slackclient.MessageRef
				if err := bind(req, &ref); err != nil {
					return errorResult(err), nil
				}
				return reply(c.GetMessage(ctx, ref))
			},
		),
		newTool(
			mcp.NewTool("slack_get_channel_history",
				mcp.WithDescription("Read recent messages of a channel, newest first."),
				channelParam(true),
				mcp.WithNumber("limit",
					mcp.Description("Maximum messages to return, 1 to 1000 (default: 100)"),
				),
				mcp.WithString("oldest",
					mcp.Description("Only messages after this time: a Slack timestamp, RFC3339, or YYYY-MM-DD"),
				),
				mcp.WithString("latest",
					mcp.Description("Only messages before this time: a Slack timestamp, RFC3339, or YYYY-MM-DD"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in slackclient.HistoryInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.History(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("slack_post_message",
				mcp.WithDescription("Post a message to a channel, or reply in a thread."),
				channelParam(true),
				mcp.WithString("text",
					mcp.Required(),
					mcp.Description("Message text (Slack mrkdwn)"),
				),
				mcp.WithString("thread_ts",
					mcp.Description("Reply in this thread"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in slackclient.PostInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.PostMessage(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("slack_post_ephemeral_message",
				mcp.WithDescription("Post a message only one user of the channel can see."),
				channelParam(true),
				mcp.WithString("user",
					mcp.Required(),
					mcp.Description("User id of the recipient"),
				),
				mcp.WithString("text",
					mcp.Required(),
					mcp.Description("Message text"),
				),
				mcp.WithString("thread_ts",
					mcp.Description("Show the message in this thread"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in slackclient.EphemeralInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.PostEphemeral(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("slack_delete_message",
				mcp.WithDescription("Delete one message. The bot can only delete its own messages."),
				channelParam(false),
				mcp.WithString("ts",
					mcp.Description("Timestamp of the message to delete"),
				),
				urlParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var ref slackclient.MessageRef
				if err := bind(req, &ref); err != nil {
					return errorResult(err), nil
				}
				return reply(c.DeleteMessage(ctx, ref))
			},
		),
		newTool(
			mcp.NewTool("slack_bulk_delete_messages",
				mcp.WithDescription(
					"Delete messages of a channel in a date range, one at a time within the rate limit. "+
						"Use dry_run=true first to see what would be deleted.",
				),
				channelParam(true),
				mcp.WithString("from_date",
					mcp.Description("Start of the range (YYYY-MM-DD or RFC3339)"),
				),
				mcp.WithString("to_date",
					mcp.Description("End of the range, inclusive (YYYY-MM-DD or RFC3339)"),
				),
				mcp.WithBoolean("bot_only",
					mcp.Description("Only delete messages posted by bots"),
				),
				mcp.WithBoolean("dry_run",
					mcp.Description("List the messages without deleting them"),
				),
				mcp.WithNumber("max_messages",
					mcp.Description("Refuse when more messages match, 1 to 1000 (default: 100)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in slackclient.BulkDeleteInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.BulkDelete(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("slack_search_threads",
				mcp.WithDescription("Search messages and group the hits by thread."),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("Slack search query"),
				),
				channelParam(false),
				mcp.WithNumber("limit",
					mcp.Description("Maximum hits, 1 to 100 (default: 20)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in slackclient.SearchInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				return reply(c.SearchThreads(ctx, in))
			},
		),
		newTool(
			mcp.NewTool("slack_generate_digest",
				mcp.WithDescription(
					"Collect one day of messages from the digest channels and return them with analysis "+
						"instructions. Analyse them and pass the resulting JSON to slack_post_digest.",
				),
				mcp.WithString("date",
					mcp.Description("Day to digest, YYYY-MM-DD or YYYYMMDD (default: yesterday)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(c.GenerateDigest(ctx, req.GetString("date", "")))
			},
		),
		newTool(
			mcp.NewTool("slack_post_digest",
				mcp.WithDescription("Format an analysed digest and post it to the digest channel."),
				mcp.WithString("digest_json",
					mcp.Required(),
					mcp.Description("The digest JSON produced from slack_generate_digest's instructions"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return reply(c.PostDigest(ctx, req.GetString("digest_json", "")))
			},
		),
	}
}
