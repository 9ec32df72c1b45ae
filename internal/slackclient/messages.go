package slackclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rusq/slack"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// MessageRef points at a message either by link or by channel and ts.
type MessageRef struct {
	Channel string `json:"channel" validate:"required_without=URL"`
	TS      string `json:"ts" validate:"required_without=URL"`
	URL     string `json:"url"`
}

// resolve validates r and returns channel, ts and the thread ts taken from
// the link (empty when the link has none).
func (r MessageRef) resolve() (channel, ts, threadTS string, err error) {
	if err := workflow.Validate(&r); err != nil {
		return "", "", "", err
	}
	if r.URL != "" {
		ch, ts, thread, err := ParseURL(r.URL)
		if err != nil {
			return "", "", "", workflow.FieldError("url", "%s", err.Error())
		}
		return ch, ts, thread, nil
	}
	if _, ok := parseTS(r.TS); !ok {
		return "", "", "", workflow.FieldError("ts", "ts %q is not a Slack timestamp", r.TS)
	}
	return r.Channel, r.TS, "", nil
}

// Thread is a thread with all of its replies, oldest first.
type Thread struct {
	Channel      string    `json:"channel"`
	ThreadTS     string    `json:"thread_ts"`
	Permalink    string    `json:"permalink"`
	MessageCount int       `json:"message_count"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
}

// GetThread returns the parent message and every reply.
func (c *Client) GetThread(ctx context.Context, ref MessageRef) (*Thread, error) {
	channel, ts, threadTS, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	if threadTS != "" {
		ts = threadTS
	}
	debug("conversations.replies", "channel", channel, "ts", ts)

	th := &Thread{Channel: channel, ThreadTS: ts, Permalink: Permalink(channel, ts, ""), Messages: []Message{}, Participants: []string{}}
	seen := map[string]bool{}
	params := &slack.GetConversationRepliesParameters{ChannelID: channel, Timestamp: ts, Limit: 200}
	for {
		msgs, hasMore, cursor, err := c.bot.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, wrap("get thread", err)
		}
		for _, m := range msgs {
			v := c.view(ctx, m)
			th.Messages = append(th.Messages, v)
			if name := v.UserName; name != "" && !seen[name] {
				seen[name] = true
				th.Participants = append(th.Participants, name)
			}
		}
		if !hasMore || cursor == "" {
			break
		}
		params.Cursor = cursor
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
	th.MessageCount = len(th.Messages)
	return th, nil
}

// GetMessage returns one message without its replies.
func (c *Client) GetMessage(ctx context.Context, ref MessageRef) (*Message, error) {
	channel, ts, threadTS, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	debug("message", "channel", channel, "ts", ts)

	var msgs []slack.Message
	if threadTS != "" && threadTS != ts {
		msgs, _, _, err = c.bot.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channel, Timestamp: threadTS, Oldest: ts, Latest: ts, Inclusive: true, Limit: 1,
		})
	} else {
		var resp *slack.GetConversationHistoryResponse
		resp, err = c.bot.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channel, Oldest: ts, Latest: ts, Inclusive: true, Limit: 1,
		})
		if resp != nil {
			msgs = resp.Messages
		}
	}
	if err != nil {
		return nil, wrap("get message", err)
	}
	for _, m := range msgs {
		if m.Timestamp == ts {
			v := c.view(ctx, m)
			return &v, nil
		}
	}
	return nil, &Error{Op: "get message", Code: "message_not_found", Err: fmt.Errorf("no message %s in %s", ts, channel)}
}

// HistoryInput is the input of History. Oldest and Latest accept Slack
// timestamps, unix seconds, YYYY-MM-DD dates or RFC 3339 times.
type HistoryInput struct {
	Channel string `json:"channel" validate:"required"`
	Oldest  string `json:"oldest"`
	Latest  string `json:"latest"`
	Limit   int    `json:"limit" validate:"min=1,max=1000"`
}

// History is a page-merged slice of channel history, newest first.
type History struct {
	Channel        string    `json:"channel"`
	Messages       []Message `json:"messages"`
	TotalCount     int       `json:"total_count"`
	PagesProcessed int       `json:"pages_processed"`
	HasMore        bool      `json:"has_more"`
}

const maxHistoryPages = 10

// History reads up to Limit messages from a channel.
func (c *Client) History(ctx context.Context, in HistoryInput) (*History, error) {
	if in.Limit == 0 {
		in.Limit = 100
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	oldest, err := c.toSlackTS(in.Oldest, false)
	if err != nil {
		return nil, workflow.FieldError("oldest", "%s", err.Error())
	}
	latest, err := c.toSlackTS(in.Latest, true)
	if err != nil {
		return nil, workflow.FieldError("latest", "%s", err.Error())
	}
	debug("conversations.history", "channel", in.Channel, "oldest", oldest, "latest", latest)

	h := &History{Channel: in.Channel, Messages: []Message{}}
	params := &slack.GetConversationHistoryParameters{ChannelID: in.Channel, Oldest: oldest, Latest: latest}
	for h.PagesProcessed < maxHistoryPages && len(h.Messages) < in.Limit {
		params.Limit = min(100, in.Limit-len(h.Messages))
		resp, err := c.bot.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, wrap("get channel history", err)
		}
		h.PagesProcessed++
		for _, m := range resp.Messages {
			h.Messages = append(h.Messages, c.view(ctx, m))
		}
		h.HasMore = resp.HasMore
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
	h.TotalCount = len(h.Messages)
	return h, nil
}

// rawRange reads every message of a channel between oldest and latest,
// including thread replies.
func (c *Client) rawRange(ctx context.Context, channel, oldest, latest string) ([]slack.Message, error) {
	var all []slack.Message
	params := &slack.GetConversationHistoryParameters{ChannelID: channel, Oldest: oldest, Latest: latest, Inclusive: true, Limit: 200}
	for page := 0; page < 50; page++ {
		resp, err := c.bot.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, wrap("get channel history", err)
		}
		all = append(all, resp.Messages...)
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
	parents := len(all)
	for i := 0; i < parents; i++ {
		if all[i].ReplyCount == 0 {
			continue
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		replies, _, _, err := c.bot.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channel, Timestamp: all[i].Timestamp, Limit: 200,
		})
		if err != nil {
			return nil, wrap("get thread replies", err)
		}
		for _, r := range replies {
			if r.Timestamp != all[i].Timestamp {
				all = append(all, r)
			}
		}
	}
	return all, nil
}

// toSlackTS normalises a time bound. Dates bind to the start of the day,
// or its last microsecond when end is true.
func (c *Client) toSlackTS(s string, end bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return unixTS(t), nil
	}
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.ParseInLocation(layout, s, c.cfg.Location); err == nil {
			if end {
				t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
			}
			return unixTS(t), nil
		}
	}
	return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD, RFC 3339 or a Slack timestamp", s)
}

func unixTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
