// Package slackclient wraps the Slack Web API calls used by the slack_*
// tools: thread and history retrieval, posting, deletion, search and the
// daily digest.
package slackclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rusq/slack"
	"golang.org/x/time/rate"
)

//go:generate mockgen -source client.go -destination mock_api_test.go -package slackclient -mock_names API=mockAPI

// API is the subset of slack.Client used by this package.
type API interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) (msgs []slack.Message, hasMore bool, nextCursor string, err error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	DeleteMessageContext(ctx context.Context, channel, messageTimestamp string) (string, string, error)
	SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
}

// Config holds tokens and digest settings.
type Config struct {
	BotToken  string
	UserToken string
	// APIURL overrides https://slack.com/api/.
	APIURL            string
	DigestChannels    []string
	DigestPostChannel string
	// CallInterval spaces paginated and bulk calls. Defaults to 100ms.
	CallInterval time.Duration
	// Location is used to compute digest day boundaries. Defaults to time.Local.
	Location *time.Location
}

// Client is the Slack wrapper. Search goes through the user token when one
// is configured since search.messages rejects bot tokens.
type Client struct {
	bot     API
	search  API
	cfg     Config
	limiter *rate.Limiter
	users   *userCache
}

var timeNow = time.Now

// New creates a Client over the Slack Web API.
func New(cfg Config) *Client {
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	bot := slack.New(cfg.BotToken, opts...)
	var search API = bot
	if cfg.UserToken != "" {
		search = slack.New(cfg.UserToken, opts...)
	}
	return NewWithAPI(bot, search, cfg)
}

// NewWithAPI creates a Client over the given API implementations.
func NewWithAPI(bot, search API, cfg Config) *Client {
	if cfg.CallInterval == 0 {
		cfg.CallInterval = 100 * time.Millisecond
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if search == nil {
		search = bot
	}
	return &Client{
		bot:     bot,
		search:  search,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.CallInterval), 1),
		users:   newUserCache(bot),
	}
}

// Error is a failed Slack call with a readable explanation of the API
// error code.
type Error struct {
	Op   string
	Code string
	Err  error
}

func (e *Error) Error() string {
	if hint, ok := errorHints[e.Code]; ok {
		return fmt.Sprintf("%s: %s (%s)", e.Op, hint, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var errorHints = map[string]string{
	"channel_not_found":      "channel not found or the bot is not a member",
	"not_in_channel":         "the bot is not a member of the channel",
	"message_not_found":      "message not found",
	"thread_not_found":       "thread not found",
	"cant_delete_message":    "no permission to delete this message",
	"invalid_auth":           "Slack authentication failed, check SLACK_BOT_TOKEN",
	"not_authed":             "no Slack token provided",
	"missing_scope":          "the token is missing a required scope",
	"not_allowed_token_type": "this call needs a user token, set SLACK_USER_TOKEN",
	"user_not_in_channel":    "the user is not a member of the channel",
	"msg_too_long":           "message text is too long",
	"ratelimited":            "Slack rate limit exceeded",
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return &Error{Op: op, Code: "ratelimited", Err: fmt.Errorf("retry after %s: %w", rl.RetryAfter, err)}
	}
	code := err.Error()
	var se slack.SlackErrorResponse
	if errors.As(err, &se) {
		code = se.Err
	}
	return &Error{Op: op, Code: code, Err: err}
}

// Message is the tool view of a Slack message.
type Message struct {
	TS         string     `json:"ts"`
	ThreadTS   string     `json:"thread_ts,omitempty"`
	Time       string     `json:"time"`
	User       string     `json:"user,omitempty"`
	UserName   string     `json:"user_name,omitempty"`
	BotID      string     `json:"bot_id,omitempty"`
	Text       string     `json:"text"`
	ReplyCount int        `json:"reply_count,omitempty"`
	Reactions  []Reaction `json:"reactions,omitempty"`
	Files      []string   `json:"files,omitempty"`
}

type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (c *Client) view(ctx context.Context, m slack.Message) Message {
	v := Message{
		TS:         m.Timestamp,
		ThreadTS:   m.ThreadTimestamp,
		Time:       formatTS(m.Timestamp, c.cfg.Location),
		User:       m.User,
		BotID:      m.BotID,
		Text:       m.Text,
		ReplyCount: m.ReplyCount,
	}
	if v.User != "" {
		v.UserName = c.users.name(ctx, v.User)
	} else if m.Username != "" {
		v.UserName = m.Username
	}
	for _, r := range m.Reactions {
		v.Reactions = append(v.Reactions, Reaction{Name: r.Name, Count: r.Count})
	}
	for _, f := range m.Files {
		v.Files = append(v.Files, f.Name)
	}
	return v
}

// parseTS converts a Slack timestamp ("1712345678.000100") to time.
func parseTS(ts string) (time.Time, bool) {
	sec, frac, _ := strings.Cut(ts, ".")
	var s, us int64
	if _, err := fmt.Sscan(sec, &s); err != nil {
		return time.Time{}, false
	}
	if frac != "" {
		frac = (frac + "000000")[:6]
		fmt.Sscan(frac, &us)
	}
	return time.Unix(s, us*1000), true
}

func formatTS(ts string, loc *time.Location) string {
	t, ok := parseTS(ts)
	if !ok {
		return ts
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

var archivesRe = regexp.MustCompile(`/archives/([A-Z0-9]+)/p(\d{10})(\d{6})`)

// ParseURL extracts the channel, message timestamp and thread timestamp
// from a Slack message link.
func ParseURL(link string) (channel, ts, threadTS string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid Slack URL: %w", err)
	}
	m := archivesRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", "", fmt.Errorf("invalid Slack URL %q: expected .../archives/<channel>/p<timestamp>", link)
	}
	return m[1], m[2] + "." + m[3], u.Query().Get("thread_ts"), nil
}

// Permalink builds a message link that Slack redirects to the workspace.
func Permalink(channel, ts, threadTS string) string {
	link := fmt.Sprintf("https://slack.com/archives/%s/p%s", channel, strings.ReplaceAll(ts, ".", ""))
	if threadTS != "" && threadTS != ts {
		link += "?thread_ts=" + threadTS + "&cid=" + channel
	}
	return link
}

func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

func debug(op string, kv ...string) {
	ev := log.Debug().Str("op", op)
	for i := 0; i+1 < len(kv); i += 2 {
		ev = ev.Str(kv[i], kv[i+1])
	}
	ev.Msg("Slack request")
}
