package slackclient

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rusq/slack"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// DigestRequest is the output of GenerateDigest: the collected messages
// wrapped in analysis instructions for the calling model.
type DigestRequest struct {
	Date         string   `json:"date"`
	Channels     []string `json:"channels"`
	MessageCount int      `json:"message_count"`
	ThreadCount  int      `json:"thread_count"`
	Prompt       string   `json:"prompt"`
}

type digestMessage struct {
	channel string
	msg     slack.Message
}

func (d digestMessage) thread() string {
	if d.msg.ThreadTimestamp != "" {
		return d.msg.ThreadTimestamp
	}
	return d.msg.Timestamp
}

// GenerateDigest collects one day of messages from the digest channels.
// date is YYYYMMDD or YYYY-MM-DD; empty means yesterday.
func (c *Client) GenerateDigest(ctx context.Context, date string) (*DigestRequest, error) {
	if len(c.cfg.DigestChannels) == 0 {
		return nil, fmt.Errorf("no digest channels configured, set SLACK_DIGEST_CHANNELS")
	}
	day, err := c.digestDay(date)
	if err != nil {
		return nil, workflow.FieldError("date", "%s", err.Error())
	}
	oldest, latest := unixTS(day), unixTS(day.AddDate(0, 0, 1).Add(-time.Microsecond))
	label := day.Format("2006-01-02")
	log.Info().Str("date", label).Strs("channels", c.cfg.DigestChannels).Msg("Collecting Slack digest")

	perChannel := make([][]slack.Message, len(c.cfg.DigestChannels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ch := range c.cfg.DigestChannels {
		g.Go(func() error {
			msgs, err := c.rawRange(gctx, ch, oldest, latest)
			if err != nil {
				return fmt.Errorf("channel %s: %w", ch, err)
			}
			perChannel[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []digestMessage
	seen := map[string]bool{}
	for i, msgs := range perChannel {
		ch := c.cfg.DigestChannels[i]
		for _, m := range msgs {
			if strings.TrimSpace(m.Text) == "" || m.SubType == "channel_join" || m.SubType == "channel_leave" {
				continue
			}
			key := ch + "-" + m.Timestamp + "-" + m.User
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, digestMessage{channel: ch, msg: m})
		}
	}

	req := &DigestRequest{Date: label, Channels: c.cfg.DigestChannels, MessageCount: len(all)}
	if len(all) == 0 {
		req.Prompt = fmt.Sprintf("No messages found for %s. No digest will be generated.", label)
		return req, nil
	}
	body, threads := c.formatForAnalysis(ctx, all)
	req.ThreadCount = threads
	req.Prompt = analysisPrompt(label, body)
	return req, nil
}

func (c *Client) digestDay(date string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		y := timeNow().In(c.cfg.Location).AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, c.cfg.Location), nil
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(date), c.cfg.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD or YYYY-MM-DD", date)
}

// formatForAnalysis groups messages by thread, oldest thread first, and
// marks the latest message of each thread.
func (c *Client) formatForAnalysis(ctx context.Context, msgs []digestMessage) (string, int) {
	groups := map[string][]digestMessage{}
	var keys []string
	for _, m := range msgs {
		k := m.channel + "/" + m.thread()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], m)
	}
	for _, k := range keys {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return g[i].msg.Timestamp < g[j].msg.Timestamp })
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return groups[keys[i]][0].msg.Timestamp < groups[keys[j]][0].msg.Timestamp
	})

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	for _, k := range keys {
		g := groups[k]
		first := g[0]
		fmt.Fprintf(&b, "%s\n🧵 Thread: %s\n🔗 %s\n%s\n", rule,
			truncate(c.cleanText(ctx, first.msg.Text), 50), Permalink(first.channel, first.thread(), ""), rule)
		for i, m := range g {
			marker := ""
			if i == len(g)-1 {
				marker = " [LATEST]"
			}
			who := m.msg.Username
			if m.msg.User != "" {
				who = c.users.name(ctx, m.msg.User)
			}
			fmt.Fprintf(&b, "[%s]%s %s (ch: %s): %s\n",
				formatTS(m.msg.Timestamp, c.cfg.Location), marker, who, m.channel, c.cleanText(ctx, m.msg.Text))
		}
		b.WriteString("\n")
	}
	return b.String(), len(keys)
}

var (
	userRefRe    = regexp.MustCompile(`<@([UW][A-Z0-9]+)(?:\|[^>]*)?>`)
	channelRefRe = regexp.MustCompile(`<#C[A-Z0-9]+(?:\|([^>]*))?>`)
	linkRe       = regexp.MustCompile(`<((?:https?|mailto):[^|>]+)(?:\|([^>]+))?>`)
	specialRe    = regexp.MustCompile(`<!(here|channel|everyone)[^>]*>`)
)

// cleanText turns Slack markup into plain text.
func (c *Client) cleanText(ctx context.Context, text string) string {
	text = userRefRe.ReplaceAllStringFunc(text, func(s string) string {
		return "@" + c.users.name(ctx, userRefRe.FindStringSubmatch(s)[1])
	})
	text = channelRefRe.ReplaceAllStringFunc(text, func(s string) string {
		if name := channelRefRe.FindStringSubmatch(s)[1]; name != "" {
			return "#" + name
		}
		return "#channel"
	})
	text = linkRe.ReplaceAllStringFunc(text, func(s string) string {
		m := linkRe.FindStringSubmatch(s)
		if m[2] != "" {
			return m[2]
		}
		return m[1]
	})
	text = specialRe.ReplaceAllString(text, "@$1")
	return strings.TrimSpace(html.UnescapeString(text))
}

func analysisPrompt(date, messages string) string {
	return fmt.Sprintf(`Analyse the Slack messages from %[1]s below and produce a team daily digest.

Return ONLY a JSON object with this shape, then call slack_post_digest with it:
{
  "date": "%[1]s",
  "completedItems": [Item],
  "majorTopics": [Item],
  "risksAndIssues": [Item],
  "actionItems": [Item],
  "maintenanceNotifications": [Item]
}
Item = {"title": string, "priority": "HIGH"|"MEDIUM"|"LOW", "assignees": [string], "details": [string], "threadLinks": [string], "deadline": string (actionItems only, optional)}

Rules:
1. The [LATEST] message of a thread decides its status. A finished item goes ONLY in completedItems.
2. Never put the same content in more than one section.
3. Use the thread links shown above each thread, at most 3 per item.
4. Use [] for sections with no items.
5. If the messages cannot be analysed, return {"error": true, "date": "%[1]s", "timestamp": "HH:MM:SS", "errorMessage": string, "cause": [string], "recommendations": [string]}.

Messages:

%[2]s`, date, messages)
}

// DigestItem is one entry of a digest section.
type DigestItem struct {
	Title       string   `json:"title" validate:"required"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW high medium low"`
	Assignees   []string `json:"assignees"`
	Details     []string `json:"details"`
	ThreadLinks []string `json:"threadLinks"`
	Deadline    string   `json:"deadline,omitempty"`
}

// Digest is the analysed digest posted by PostDigest. When Error is set
// only the error fields are used.
type Digest struct {
	Error                    bool         `json:"error"`
	Date                     string       `json:"date"`
	CompletedItems           []DigestItem `json:"completedItems" validate:"dive"`
	MajorTopics              []DigestItem `json:"majorTopics" validate:"dive"`
	RisksAndIssues           []DigestItem `json:"risksAndIssues" validate:"dive"`
	ActionItems              []DigestItem `json:"actionItems" validate:"dive"`
	MaintenanceNotifications []DigestItem `json:"maintenanceNotifications" validate:"dive"`
	Timestamp                string       `json:"timestamp,omitempty"`
	ErrorMessage             string       `json:"errorMessage,omitempty"`
	Cause                    []string     `json:"cause,omitempty"`
	Recommendations          []string     `json:"recommendations,omitempty"`
}

const sectionDivider = "━━━━━━━━━━━━━━━━━━━━"

func priorityEmoji(p string) string {
	switch strings.ToUpper(p) {
	case "HIGH":
		return "🔴"
	case "MEDIUM":
		return "🟡"
	default:
		return "🟢"
	}
}

func section(title string, items []DigestItem) string {
	if len(items) == 0 {
		return ""
	}
	lines := []string{title}
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("\n%s *%s*", priorityEmoji(it.Priority), it.Title))
		if len(it.Assignees) > 0 {
			lines = append(lines, "   Assigned: "+strings.Join(it.Assignees, ", "))
		}
		if it.Deadline != "" {
			lines = append(lines, "   Deadline: "+it.Deadline)
		}
		for _, d := range it.Details {
			lines = append(lines, "   • "+d)
		}
		links := it.ThreadLinks
		if len(links) > 3 {
			links = links[:3]
		}
		for _, l := range links {
			lines = append(lines, "   📎 "+l)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatDigest renders d as Slack mrkdwn.
func FormatDigest(d Digest) string {
	if d.Error {
		return formatDigestError(d)
	}
	date := d.Date
	if date == "" {
		date = "Unknown Date"
	}
	parts := []string{fmt.Sprintf("*📊 Team Daily Digest - %s*", date)}
	for _, s := range []string{
		section("*✅ Completed Items*", d.CompletedItems),
		section("*🎯 Major Topics (In Progress)*", d.MajorTopics),
		section("*⚠️ Risks & Issues*", d.RisksAndIssues),
		section("*📋 Action Items*", d.ActionItems),
		section("*🔧 Maintenance Notifications*", d.MaintenanceNotifications),
	} {
		if s != "" {
			parts = append(parts, sectionDivider, s)
		}
	}
	if len(parts) == 1 {
		parts = append(parts, "_No notable activity._")
	}
	return strings.Join(parts, "\n\n")
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "• (none)"
	}
	return "• " + strings.Join(items, "\n• ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatDigestError(d Digest) string {
	return fmt.Sprintf(`*🚨 Team Daily Digest - Error Occurred*

*📅 Analysis Period:* %s
*🕰 Occurrence Time:* %s
*⚠️ Error Details:* %s

*🔍 Possible Causes:*
%s

*📝 Recommendations:*
%s`, orUnknown(d.Date), orUnknown(d.Timestamp), orUnknown(d.ErrorMessage), bullets(d.Cause), bullets(d.Recommendations))
}

// PostedDigest is the output of PostDigest.
type PostedDigest struct {
	Posted
	Length  int    `json:"length"`
	Preview string `json:"preview"`
}

// PostDigest parses the analysed digest JSON, formats it and posts it to
// the digest channel.
func (c *Client) PostDigest(ctx context.Context, digestJSON string) (*PostedDigest, error) {
	if c.cfg.DigestPostChannel == "" {
		return nil, fmt.Errorf("no digest channel configured, set SLACK_DIGEST_POST_CHANNEL")
	}
	var d Digest
	if err := json.Unmarshal([]byte(digestJSON), &d); err != nil {
		return nil, workflow.FieldError("digest_json", "digest_json is not valid JSON: %v", err)
	}
	if !d.Error {
		if err := workflow.Validate(&d); err != nil {
			return nil, err
		}
	}
	text := FormatDigest(d)
	p, err := c.PostMessage(ctx, PostInput{Channel: c.cfg.DigestPostChannel, Text: text})
	if err != nil {
		return nil, err
	}
	return &PostedDigest{Posted: *p, Length: len([]rune(text)), Preview: truncate(text, 200)}, nil
}
