package slackclient

import (
	"context"
	"net/url"

	"github.com/rusq/slack"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// SearchInput is the input of SearchThreads.
type SearchInput struct {
	Query   string `json:"query" validate:"required"`
	Channel string `json:"channel"`
	Limit   int    `json:"limit" validate:"min=1,max=100"`
}

// ThreadHit groups the matches that belong to one thread.
type ThreadHit struct {
	Channel     string    `json:"channel"`
	ChannelName string    `json:"channel_name,omitempty"`
	ThreadTS    string    `json:"thread_ts"`
	Permalink   string    `json:"permalink"`
	Matches     []Message `json:"matches"`
}

// SearchResult is the output of SearchThreads.
type SearchResult struct {
	Query   string      `json:"query"`
	Total   int         `json:"total"`
	Threads []ThreadHit `json:"threads"`
}

// SearchThreads runs search.messages and groups hits by thread, in the
// order Slack ranked their first hit.
func (c *Client) SearchThreads(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Limit == 0 {
		in.Limit = 20
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	query := in.Query
	if in.Channel != "" {
		query += " in:<#" + in.Channel + ">"
	}
	debug("search.messages", "query", query)
	sm, err := c.search.SearchMessagesContext(ctx, query, slack.SearchParameters{
		Sort:          "timestamp",
		SortDirection: "desc",
		Count:         in.Limit,
		Page:          1,
	})
	if err != nil {
		return nil, wrap("search messages", err)
	}

	res := &SearchResult{Query: query, Total: sm.Total, Threads: []ThreadHit{}}
	index := map[string]int{}
	for _, m := range sm.Matches {
		threadTS := threadFromPermalink(m.Permalink)
		if threadTS == "" {
			threadTS = m.Timestamp
		}
		key := m.Channel.ID + "/" + threadTS
		i, ok := index[key]
		if !ok {
			i = len(res.Threads)
			index[key] = i
			res.Threads = append(res.Threads, ThreadHit{
				Channel:     m.Channel.ID,
				ChannelName: m.Channel.Name,
				ThreadTS:    threadTS,
				Permalink:   Permalink(m.Channel.ID, threadTS, ""),
			})
		}
		v := Message{TS: m.Timestamp, ThreadTS: threadTS, Time: formatTS(m.Timestamp, c.cfg.Location), User: m.User, Text: m.Text}
		if m.User != "" {
			v.UserName = c.users.name(ctx, m.User)
		} else {
			v.UserName = m.Username
		}
		res.Threads[i].Matches = append(res.Threads[i].Matches, v)
	}
	return res, nil
}

func threadFromPermalink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("thread_ts")
}
