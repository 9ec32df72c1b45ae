package confluence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// SearchInput is the input of SearchPages. CQL, when set, replaces the
// query built from the other filters.
type SearchInput struct {
	Query    string   `json:"query"`
	SpaceKey string   `json:"space_key"`
	Title    string   `json:"title"`
	CQL      string   `json:"cql"`
	Expand   []string `json:"expand"`
	Limit    int      `json:"limit" validate:"min=1,max=100"`
	Start    int      `json:"start" validate:"min=0"`
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// BuildCQL returns the CQL for in.
func BuildCQL(in SearchInput) string {
	if strings.TrimSpace(in.CQL) != "" {
		return in.CQL
	}
	parts := []string{"type=page"}
	if in.SpaceKey != "" {
		parts = append(parts, "space="+quote(in.SpaceKey))
	}
	if in.Title != "" {
		parts = append(parts, "title~"+quote(in.Title))
	}
	if in.Query != "" {
		parts = append(parts, fmt.Sprintf("(title~%s OR text~%s)", quote(in.Query), quote(in.Query)))
	}
	return strings.Join(parts, " AND ")
}

// SearchResult is the output of SearchPages.
type SearchResult struct {
	CQL     string `json:"cql"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
	HasMore bool   `json:"has_more"`
	Pages   []Page `json:"pages"`
}

// SearchPages runs a CQL content search.
func (c *Client) SearchPages(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Limit == 0 {
		in.Limit = 25
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	cql := BuildCQL(in)
	expand := in.Expand
	if len(expand) == 0 {
		expand = defaultExpand
	}
	params := url.Values{}
	params.Set("cql", cql)
	params.Set("start", fmt.Sprint(in.Start))
	params.Set("limit", fmt.Sprint(in.Limit))
	params.Set("expand", strings.Join(expand, ","))

	var out struct {
		Results []content `json:"results"`
		Start   int       `json:"start"`
		Limit   int       `json:"limit"`
		Size    int       `json:"size"`
		Links   struct {
			Next string `json:"next"`
		} `json:"_links"`
	}
	if err := c.call(ctx, http.MethodGet, "/content/search", params, nil, &out, "search"); err != nil {
		return nil, err
	}
	res := &SearchResult{CQL: cql, Start: out.Start, Limit: out.Limit, Size: out.Size, HasMore: out.Links.Next != "", Pages: []Page{}}
	for _, r := range out.Results {
		res.Pages = append(res.Pages, c.page(r, false))
	}
	return res, nil
}

// Space is one Confluence space.
type Space struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

type rawSpace struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Description *struct {
		Plain struct {
			Value string `json:"value"`
		} `json:"plain"`
	} `json:"description"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func (c *Client) space(r rawSpace) Space {
	s := Space{ID: r.ID, Key: r.Key, Name: r.Name, Type: r.Type, Status: r.Status, URL: c.cfg.BaseURL + r.Links.WebUI}
	if r.Description != nil {
		s.Description = r.Description.Plain.Value
	}
	return s
}

// SpacesInput is the input of GetSpaces. SpaceKey selects one space.
type SpacesInput struct {
	SpaceKey string `json:"space_key"`
	Type     string `json:"space_type" validate:"omitempty,oneof=global personal"`
	Limit    int    `json:"limit" validate:"min=1,max=500"`
	Start    int    `json:"start" validate:"min=0"`
}

// Spaces is the output of GetSpaces.
type Spaces struct {
	Start   int     `json:"start"`
	Limit   int     `json:"limit"`
	Size    int     `json:"size"`
	HasMore bool    `json:"has_more"`
	Spaces  []Space `json:"spaces"`
}

// GetSpaces lists spaces, or returns the single space named by SpaceKey.
func (c *Client) GetSpaces(ctx context.Context, in SpacesInput) (*Spaces, error) {
	if in.Limit == 0 {
		in.Limit = 25
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("expand", "description.plain")
	if in.SpaceKey != "" {
		var one rawSpace
		if err := c.call(ctx, http.MethodGet, "/space/"+url.PathEscape(in.SpaceKey), params, nil, &one, "space "+in.SpaceKey); err != nil {
			return nil, err
		}
		return &Spaces{Limit: 1, Size: 1, Spaces: []Space{c.space(one)}}, nil
	}
	params.Set("start", fmt.Sprint(in.Start))
	params.Set("limit", fmt.Sprint(in.Limit))
	if in.Type != "" {
		params.Set("type", in.Type)
	}
	var out struct {
		Results []rawSpace `json:"results"`
		Start   int        `json:"start"`
		Limit   int        `json:"limit"`
		Size    int        `json:"size"`
		Links   struct {
			Next string `json:"next"`
		} `json:"_links"`
	}
	if err := c.call(ctx, http.MethodGet, "/space", params, nil, &out, "spaces"); err != nil {
		return nil, err
	}
	res := &Spaces{Start: out.Start, Limit: out.Limit, Size: out.Size, HasMore: out.Links.Next != "", Spaces: []Space{}}
	for _, r := range out.Results {
		res.Spaces = append(res.Spaces, c.space(r))
	}
	return res, nil
}
