package slackclient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/HendryAvila/reasonkit/internal/session"
)

func init() {
	timeNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

const (
	ts10 = "1772272800.000100" // 2026-02-28 10:00 UTC
	ts11 = "1772276400.000200"
	ts12 = "1772280000.000300"
)

var testUsers = []slack.User{
	{ID: "UDANA", Name: "dana", Profile: slack.UserProfile{DisplayName: "Dana"}},
	{ID: "ULEE", Name: "lee", RealName: "Lee Park"},
	{ID: "UBOT", Name: "deploybot"},
}

func newTestClient(t *testing.T, cfg Config) (*Client, *mockAPI) {
	t.Helper()
	mc := NewmockAPI(gomock.NewController(t))
	mc.EXPECT().GetUsersContext(gomock.Any()).Return(testUsers, nil).AnyTimes()
	cfg.CallInterval = time.Microsecond
	cfg.Location = time.UTC
	return NewWithAPI(mc, nil, cfg), mc
}

func msg(ts, thread, user, text string) slack.Message {
	return slack.Message{Msg: slack.Msg{Timestamp: ts, ThreadTimestamp: thread, User: user, Text: text}}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	e, ok := session.AsError(err)
	require.True(t, ok, "expected *session.Error, got %v", err)
	assert.Equal(t, session.CodeValidationFailed, e.Code)
	return e.Field
}

func TestParseURL(t *testing.T) {
	ch, ts, thread, err := ParseURL("https://acme.slack.com/archives/C0123ABC/p1772276400000200?thread_ts=1772272800.000100&cid=C0123ABC")
	require.NoError(t, err)
	assert.Equal(t, "C0123ABC", ch)
	assert.Equal(t, ts11, ts)
	assert.Equal(t, ts10, thread)

	_, _, thread, err = ParseURL("https://acme.slack.com/archives/C0123ABC/p1772272800000100")
	require.NoError(t, err)
	assert.Empty(t, thread)

	_, _, _, err = ParseURL("https://acme.slack.com/team/U1")
	assert.Error(t, err)
}

func TestPermalink(t *testing.T) {
	assert.Equal(t, "https://slack.com/archives/C1/p1772272800000100", Permalink("C1", ts10, ""))
	assert.Equal(t, "https://slack.com/archives/C1/p1772276400000200?thread_ts=1772272800.000100&cid=C1", Permalink("C1", ts11, ts10))
}

func TestGetThread(t *testing.T) {
	c, mc := newTestClient(t, Config{})
	gomock.InOrder(
		mc.EXPECT().GetConversationRepliesContext(gomock.Any(), &slack.GetConversationRepliesParameters{
			ChannelID: "C1", Timestamp: ts10, Limit: 200,
		}).Return([]slack.Message{msg(ts10, ts10, "UDANA", "cache is down"), msg(ts11, ts10, "ULEE", "looking")}, true, "next", nil),
		mc.EXPECT().GetConversationRepliesContext(gomock.Any(), &slack.GetConversationRepliesParameters{
			ChannelID: "C1", Timestamp: ts10, Limit: 200, Cursor: "next",
		}).Return([]slack.Message{msg(ts12, ts10, "UDANA", "fixed")}, false, "", nil),
	)

	th, err := c.GetThread(context.Background(), MessageRef{URL: "https://acme.slack.com/archives/C1/p1772276400000200?thread_ts=" + ts10})
	require.NoError(t, err)
	assert.Equal(t, 3, th.MessageCount)
	assert.Equal(t, []string{"Dana", "Lee Park"}, th.Participants)
	assert.Equal(t, "2026-02-28 10:00:00", th.Messages[0].Time)
	assert.Equal(t, "fixed", th.Messages[2].Text)
}

func TestMessageRef_Validation(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	ctx := context.Background()

	_, err := c.GetMessage(ctx, MessageRef{})
	assert.Equal(t, "channel", fieldOf(t, err))

	_, err = c.GetMessage(ctx, MessageRef{Channel: "C1", TS: "yesterday"})
	assert.Equal(t, "ts", fieldOf(t, err))

	_, err = c.GetMessage(ctx, MessageRef{URL: "https://example.com/nope"})
	assert.Equal(t, "url", fieldOf(t, err))
}

func TestGetMessage(t *testing.T) {
	c, mc := newTestClient(t, Config{})
	ctx := context.Background()

	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), &slack.GetConversationHistoryParameters{
		ChannelID: "C1", Oldest: ts10, Latest: ts10, Inclusive: true, Limit: 1,
	}).Return(&slack.GetConversationHistoryResponse{Messages: []slack.Message{msg(ts10, "", "UDANA", "hello")}}, nil)
	m, err := c.GetMessage(ctx, MessageRef{Channel: "C1", TS: ts10})
	require.NoError(t, err)
	assert.Equal(t, "Dana", m.UserName)

	mc.EXPECT().GetConversationRepliesContext(gomock.Any(), gomock.Any()).Return(nil, false, "", nil)
	_, err = c.GetMessage(ctx, MessageRef{URL: "https://acme.slack.com/archives/C1/p1772276400000200?thread_ts=" + ts10})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "message_not_found", se.Code)
	assert.Contains(t, err.Error(), "message not found")
}

func TestHistory(t *testing.T) {
	c, mc := newTestClient(t, Config{})
	page := func(n int, prefix string) []slack.Message {
		out := make([]slack.Message, n)
		for i := range out {
			out[i] = msg(prefix, "", "ULEE", "m")
		}
		return out
	}
	var limits []int
	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, "1772236800.000000", p.Oldest)
			assert.Equal(t, "1772323199.999999", p.Latest)
			limits = append(limits, p.Limit)
			resp := &slack.GetConversationHistoryResponse{Messages: page(p.Limit, ts10), HasMore: true}
			resp.ResponseMetaData.NextCursor = "more"
			return resp, nil
		}).Times(2)

	h, err := c.History(context.Background(), HistoryInput{Channel: "C1", Oldest: "2026-02-28", Latest: "2026-02-28", Limit: 150})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 50}, limits)
	assert.Equal(t, 150, h.TotalCount)
	assert.Equal(t, 2, h.PagesProcessed)
	assert.True(t, h.HasMore)

	_, err = c.History(context.Background(), HistoryInput{Channel: "C1", Oldest: "last week"})
	assert.Equal(t, "oldest", fieldOf(t, err))
	_, err = c.History(context.Background(), HistoryInput{Channel: "C1", Limit: 1001})
	assert.Equal(t, "limit", fieldOf(t, err))
}

func TestPostMessage(t *testing.T) {
	c, mc := newTestClient(t, Config{})
	ctx := context.Background()

	mc.EXPECT().PostMessageContext(gomock.Any(), "C1", gomock.Any(), gomock.Any()).Return("C1", ts11, nil)
	p, err := c.PostMessage(ctx, PostInput{Channel: "C1", Text: "on it", ThreadTS: ts10})
	require.NoError(t, err)
	assert.Equal(t, ts11, p.TS)
	assert.Contains(t, p.Permalink, "thread_ts="+ts10)

	mc.EXPECT().PostMessageContext(gomock.Any(), "C404", gomock.Any()).Return("", "", slack.SlackErrorResponse{Err: "channel_not_found"})
	_, err = c.PostMessage(ctx, PostInput{Channel: "C404", Text: "hi"})
	assert.EqualError(t, err, "post message: channel not found or the bot is not a member (channel_not_found)")

	_, err = c.PostMessage(ctx, PostInput{Channel: "C1"})
	assert.Equal(t, "text", fieldOf(t, err))
}

func TestPostEphemeralAndDelete(t *testing.T) {
	c, mc := newTestClient(t, Config{})
	ctx := context.Background()

	mc.EXPECT().PostEphemeralContext(gomock.Any(), "C1", "ULEE", gomock.Any()).Return(ts12, nil)
	p, err := c.PostEphemeral(ctx, EphemeralInput{Channel: "C1", User: "ULEE", Text: "psst"})
	require.NoError(t, err)
	assert.Equal(t, ts12, p.TS)

	_, err = c.PostEphemeral(ctx, EphemeralInput{Channel: "C1", Text: "psst"})
	assert.Equal(t, "user", fieldOf(t, err))

	mc.EXPECT().DeleteMessageContext(gomock.Any(), "C1", ts10).Return("C1", ts10, nil)
	_, err = c.DeleteMessage(ctx, MessageRef{URL: "https://acme.slack.com/archives/C1/p1772272800000100"})
	require.NoError(t, err)

	mc.EXPECT().DeleteMessageContext(gomock.Any(), "C1", ts11).Return("", "", &slack.RateLimitedError{RetryAfter: 30 * time.Second})
	_, err = c.DeleteMessage(ctx, MessageRef{Channel: "C1", TS: ts11})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ratelimited", se.Code)
}

func expectRange(mc *mockAPI) {
	parent := msg(ts10, ts10, "UDANA", "deploy at noon")
	parent.ReplyCount = 1
	bot := msg(ts11, "", "", "build green")
	bot.BotID = "B1"
	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).Return(&slack.GetConversationHistoryResponse{
		Messages: []slack.Message{bot, parent},
	}, nil)
	mc.EXPECT().GetConversationRepliesContext(gomock.Any(), &slack.GetConversationRepliesParameters{
		ChannelID: "C1", Timestamp: ts10, Limit: 200,
	}).Return([]slack.Message{parent, msg(ts12, ts10, "ULEE", "ack")}, false, "", nil)
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run lists targets oldest first", func(t *testing.T) {
		c, mc := newTestClient(t, Config{})
		expectRange(mc)
		res, err := c.BulkDelete(ctx, BulkDeleteInput{Channel: "C1", FromDate: "2026-02-28", ToDate: "2026-02-28", DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Matched)
		require.Len(t, res.Deleted, 3)
		assert.Equal(t, []string{ts10, ts11, ts12}, []string{res.Deleted[0].TS, res.Deleted[1].TS, res.Deleted[2].TS})
		assert.NotEmpty(t, res.Hint)
	})

	t.Run("bot only deletes and reports failures", func(t *testing.T) {
		c, mc := newTestClient(t, Config{})
		expectRange(mc)
		mc.EXPECT().DeleteMessageContext(gomock.Any(), "C1", ts11).Return("", "", slack.SlackErrorResponse{Err: "cant_delete_message"})
		res, err := c.BulkDelete(ctx, BulkDeleteInput{Channel: "C1", BotOnly: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Matched)
		assert.Empty(t, res.Deleted)
		require.Len(t, res.Failed, 1)
		assert.Contains(t, res.Failed[0].Error, "no permission to delete this message")
	})

	t.Run("over limit deletes nothing", func(t *testing.T) {
		c, mc := newTestClient(t, Config{})
		expectRange(mc)
		_, err := c.BulkDelete(ctx, BulkDeleteInput{Channel: "C1", MaxMessages: 2})
		assert.Equal(t, "max_messages", fieldOf(t, err))
	})

	t.Run("bad date", func(t *testing.T) {
		c, _ := newTestClient(t, Config{})
		_, err := c.BulkDelete(ctx, BulkDeleteInput{Channel: "C1", ToDate: "28/02/2026"})
		assert.Equal(t, "to_date", fieldOf(t, err))
	})
}

func TestSearchThreads(t *testing.T) {
	mc := NewmockAPI(gomock.NewController(t))
	user := NewmockAPI(gomock.NewController(t))
	mc.EXPECT().GetUsersContext(gomock.Any()).Return(testUsers, nil).AnyTimes()
	c := NewWithAPI(mc, user, Config{Location: time.UTC})

	sm := &slack.SearchMessages{Total: 3, Matches: []slack.SearchMessage{
		{Channel: slack.CtxChannel{ID: "C1", Name: "ops"}, User: "UDANA", Timestamp: ts11, Text: "cache again",
			Permalink: "https://acme.slack.com/archives/C1/p1772276400000200?thread_ts=" + ts10},
		{Channel: slack.CtxChannel{ID: "C1", Name: "ops"}, User: "ULEE", Timestamp: ts10, Text: "cache down",
			Permalink: "https://acme.slack.com/archives/C1/p1772272800000100"},
		{Channel: slack.CtxChannel{ID: "C2", Name: "dev"}, Username: "deploybot", Timestamp: ts12, Text: "cache flushed",
			Permalink: "https://acme.slack.com/archives/C2/p1772280000000300"},
	}}
	user.EXPECT().SearchMessagesContext(gomock.Any(), "cache in:<#C1>", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p slack.SearchParameters) (*slack.SearchMessages, error) {
			assert.Equal(t, 20, p.Count)
			return sm, nil
		})

	res, err := c.SearchThreads(context.Background(), SearchInput{Query: "cache", Channel: "C1"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Threads, 2)
	assert.Equal(t, ts10, res.Threads[0].ThreadTS)
	assert.Len(t, res.Threads[0].Matches, 2)
	assert.Equal(t, "Dana", res.Threads[0].Matches[0].UserName)
	assert.Equal(t, "deploybot", res.Threads[1].Matches[0].UserName)

	_, err = c.SearchThreads(context.Background(), SearchInput{})
	assert.Equal(t, "query", fieldOf(t, err))
}

func TestGenerateDigest(t *testing.T) {
	c, mc := newTestClient(t, Config{DigestChannels: []string{"C1", "C2"}})
	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, "1772236800.000000", p.Oldest)
			switch p.ChannelID {
			case "C1":
				return &slack.GetConversationHistoryResponse{Messages: []slack.Message{
					msg(ts12, ts10, "ULEE", "done, <@UDANA> please verify <https://ci.example.com/1|build 1>"),
					msg(ts10, ts10, "UDANA", "cache &amp; queue outage"),
					msg(ts10, ts10, "UDANA", "cache &amp; queue outage"),
					msg(ts11, "", "ULEE", "  "),
				}}, nil
			default:
				return &slack.GetConversationHistoryResponse{Messages: []slack.Message{
					msg(ts11, "", "UDANA", "release notes in <#C9|releases>"),
				}}, nil
			}
		}).Times(2)

	req, err := c.GenerateDigest(context.Background(), "20260228")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", req.Date)
	assert.Equal(t, 3, req.MessageCount)
	assert.Equal(t, 2, req.ThreadCount)
	assert.Contains(t, req.Prompt, "🧵 Thread: cache & queue outage")
	assert.Contains(t, req.Prompt, "[2026-02-28 12:00:00] [LATEST] Lee Park (ch: C1): done, @Dana please verify build 1")
	assert.Contains(t, req.Prompt, "[2026-02-28 11:00:00] [LATEST] Dana (ch: C2): release notes in #releases")
	assert.Less(t, strings.Index(req.Prompt, "cache & queue"), strings.Index(req.Prompt, "release notes"))
	assert.Contains(t, req.Prompt, "slack_post_digest")
}

func TestGenerateDigest_EdgeCases(t *testing.T) {
	ctx := context.Background()

	c, _ := newTestClient(t, Config{})
	_, err := c.GenerateDigest(ctx, "")
	assert.ErrorContains(t, err, "SLACK_DIGEST_CHANNELS")

	c, mc := newTestClient(t, Config{DigestChannels: []string{"C1"}})
	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
			assert.Equal(t, "1772236800.000000", p.Oldest, "defaults to yesterday")
			return &slack.GetConversationHistoryResponse{}, nil
		})
	req, err := c.GenerateDigest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, req.MessageCount)
	assert.Equal(t, "No messages found for 2026-02-28. No digest will be generated.", req.Prompt)

	_, err = c.GenerateDigest(ctx, "Feb 28")
	assert.Equal(t, "date", fieldOf(t, err))

	mc.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))
	_, err = c.GenerateDigest(ctx, "2026-02-28")
	assert.ErrorContains(t, err, "channel C1")
}

func TestFormatDigest(t *testing.T) {
	got := FormatDigest(Digest{
		Date: "2026-02-28",
		CompletedItems: []DigestItem{{
			Title: "Cache outage fixed", Priority: "high", Assignees: []string{"Lee"},
			Details: []string{"root cause: eviction storm"}, ThreadLinks: []string{"l1", "l2", "l3", "l4"},
		}},
		ActionItems: []DigestItem{{Title: "Verify fix", Deadline: "Mar 2"}},
	})
	want := "*📊 Team Daily Digest - 2026-02-28*\n\n" + sectionDivider + "\n\n" +
		"*✅ Completed Items*\n\n🔴 *Cache outage fixed*\n   Assigned: Lee\n   • root cause: eviction storm\n   📎 l1\n   📎 l2\n   📎 l3\n\n" +
		sectionDivider + "\n\n*📋 Action Items*\n\n🟢 *Verify fix*\n   Deadline: Mar 2"
	assert.Equal(t, want, got)

	assert.Contains(t, FormatDigest(Digest{}), "_No notable activity._")

	errMsg := FormatDigest(Digest{Error: true, ErrorMessage: "no data", Cause: []string{"bot not in channel"}})
	assert.Contains(t, errMsg, "*⚠️ Error Details:* no data")
	assert.Contains(t, errMsg, "• bot not in channel")
	assert.Contains(t, errMsg, "• (none)")
}

func TestPostDigest(t *testing.T) {
	ctx := context.Background()

	c, _ := newTestClient(t, Config{})
	_, err := c.PostDigest(ctx, "{}")
	assert.ErrorContains(t, err, "SLACK_DIGEST_POST_CHANNEL")

	c, mc := newTestClient(t, Config{DigestPostChannel: "CDIGEST"})
	_, err = c.PostDigest(ctx, "not json")
	assert.Equal(t, "digest_json", fieldOf(t, err))

	_, err = c.PostDigest(ctx, `{"date":"x","completedItems":[{"title":""}]}`)
	assert.Equal(t, "completedItems[0].title", fieldOf(t, err))

	mc.EXPECT().PostMessageContext(gomock.Any(), "CDIGEST", gomock.Any()).Return("CDIGEST", ts12, nil)
	p, err := c.PostDigest(ctx, `{"date":"2026-02-28","majorTopics":[{"title":"Q2 planning","priority":"MEDIUM"}]}`)
	require.NoError(t, err)
	assert.Equal(t, ts12, p.TS)
	assert.True(t, strings.HasPrefix(p.Preview, "*📊 Team Daily Digest - 2026-02-28*"))
	assert.Equal(t, len([]rune(FormatDigest(Digest{Date: "2026-02-28", MajorTopics: []DigestItem{{Title: "Q2 planning", Priority: "MEDIUM"}}}))), p.Length)
}

func TestUserCache_FallsBackToIDs(t *testing.T) {
	mc := NewmockAPI(gomock.NewController(t))
	mc.EXPECT().GetUsersContext(gomock.Any()).Return(nil, errors.New("missing_scope")).Times(1)
	uc := newUserCache(mc)
	assert.Equal(t, "UDANA", uc.name(context.Background(), "UDANA"))
	assert.Equal(t, "ULEE", uc.name(context.Background(), "ULEE"), "failed load is not retried within ttl")
}
