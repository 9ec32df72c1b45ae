package slackclient

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/rusq/slack"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// PostInput is the input of PostMessage.
type PostInput struct {
	Channel  string `json:"channel" validate:"required"`
	Text     string `json:"text" validate:"required,max=40000"`
	ThreadTS string `json:"thread_ts"`
}

// Posted identifies a message that was just sent.
type Posted struct {
	Channel   string `json:"channel"`
	TS        string `json:"ts"`
	ThreadTS  string `json:"thread_ts,omitempty"`
	Permalink string `json:"permalink"`
}

// PostMessage sends text to a channel, or as a reply when ThreadTS is set.
func (c *Client) PostMessage(ctx context.Context, in PostInput) (*Posted, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	opts := []slack.MsgOption{slack.MsgOptionText(in.Text, false)}
	if in.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(in.ThreadTS))
	}
	debug("chat.postMessage", "channel", in.Channel)
	ch, ts, err := c.bot.PostMessageContext(ctx, in.Channel, opts...)
	if err != nil {
		return nil, wrap("post message", err)
	}
	return &Posted{Channel: ch, TS: ts, ThreadTS: in.ThreadTS, Permalink: Permalink(ch, ts, in.ThreadTS)}, nil
}

// EphemeralInput is the input of PostEphemeral.
type EphemeralInput struct {
	Channel  string `json:"channel" validate:"required"`
	User     string `json:"user" validate:"required"`
	Text     string `json:"text" validate:"required,max=40000"`
	ThreadTS string `json:"thread_ts"`
}

// PostEphemeral shows text to a single user in a channel.
func (c *Client) PostEphemeral(ctx context.Context, in EphemeralInput) (*Posted, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	opts := []slack.MsgOption{slack.MsgOptionText(in.Text, false)}
	if in.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(in.ThreadTS))
	}
	debug("chat.postEphemeral", "channel", in.Channel, "user", in.User)
	ts, err := c.bot.PostEphemeralContext(ctx, in.Channel, in.User, opts...)
	if err != nil {
		return nil, wrap("post ephemeral message", err)
	}
	return &Posted{Channel: in.Channel, TS: ts, ThreadTS: in.ThreadTS}, nil
}

// DeleteMessage removes one message. Deletion cannot be undone.
func (c *Client) DeleteMessage(ctx context.Context, ref MessageRef) (*Posted, error) {
	channel, ts, _, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	debug("chat.delete", "channel", channel, "ts", ts)
	ch, dts, err := c.bot.DeleteMessageContext(ctx, channel, ts)
	if err != nil {
		return nil, wrap("delete message", err)
	}
	return &Posted{Channel: ch, TS: dts}, nil
}

// BulkDeleteInput is the input of BulkDelete.
type BulkDeleteInput struct {
	Channel     string `json:"channel" validate:"required"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	BotOnly     bool   `json:"bot_only"`
	DryRun      bool   `json:"dry_run"`
	MaxMessages int    `json:"max_messages" validate:"min=1,max=1000"`
}

// Target is a message selected for bulk deletion.
type Target struct {
	TS    string `json:"ts"`
	Time  string `json:"time"`
	User  string `json:"user,omitempty"`
	BotID string `json:"bot_id,omitempty"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// BulkDeleteResult reports what was (or, on a dry run, would be) deleted.
type BulkDeleteResult struct {
	Channel string   `json:"channel"`
	DryRun  bool     `json:"dry_run"`
	Matched int      `json:"matched"`
	Deleted []Target `json:"deleted"`
	Failed  []Target `json:"failed"`
	Hint    string   `json:"hint,omitempty"`
}

// BulkDelete removes messages in a date range, oldest first, one call per
// limiter tick. Selecting more than MaxMessages fails without deleting.
func (c *Client) BulkDelete(ctx context.Context, in BulkDeleteInput) (*BulkDeleteResult, error) {
	if in.MaxMessages == 0 {
		in.MaxMessages = 100
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	oldest, err := c.toSlackTS(in.FromDate, false)
	if err != nil {
		return nil, workflow.FieldError("from_date", "%s", err.Error())
	}
	latest, err := c.toSlackTS(in.ToDate, true)
	if err != nil {
		return nil, workflow.FieldError("to_date", "%s", err.Error())
	}

	msgs, err := c.rawRange(ctx, in.Channel, oldest, latest)
	if err != nil {
		return nil, err
	}
	var targets []Target
	for _, m := range msgs {
		if in.BotOnly && m.BotID == "" {
			continue
		}
		targets = append(targets, Target{
			TS:    m.Timestamp,
			Time:  formatTS(m.Timestamp, c.cfg.Location),
			User:  m.User,
			BotID: m.BotID,
			Text:  truncate(m.Text, 100),
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].TS < targets[j].TS })

	if len(targets) > in.MaxMessages {
		return nil, workflow.FieldError("max_messages",
			"%d messages match, more than max_messages=%d; narrow the date range or raise max_messages", len(targets), in.MaxMessages)
	}
	res := &BulkDeleteResult{Channel: in.Channel, DryRun: in.DryRun, Matched: len(targets), Deleted: []Target{}, Failed: []Target{}}
	if in.DryRun {
		res.Deleted = append(res.Deleted, targets...)
		res.Hint = "dry run: set dry_run=false to delete these messages"
		return res, nil
	}
	for _, t := range targets {
		if err := c.wait(ctx); err != nil {
			return res, err
		}
		if _, _, err := c.bot.DeleteMessageContext(ctx, in.Channel, t.TS); err != nil {
			t.Error = wrap("delete", err).Error()
			res.Failed = append(res.Failed, t)
			continue
		}
		res.Deleted = append(res.Deleted, t)
	}
	log.Info().Str("channel", in.Channel).Int("deleted", len(res.Deleted)).Int("failed", len(res.Failed)).Msg("Slack bulk delete")
	return res, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
