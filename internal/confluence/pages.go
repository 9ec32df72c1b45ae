package confluence

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// defaultExpand is used when the caller does not choose expansions.
var defaultExpand = []string{"body.storage", "version", "space", "ancestors"}

type content struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Space  *struct {
		ID   int64  `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"space"`
	Version *struct {
		Number int    `json:"number"`
		When   string `json:"when"`
		By     *struct {
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"version"`
	Body *struct {
		Storage *struct {
			Value string `json:"value"`
		} `json:"storage"`
		View *struct {
			Value string `json:"value"`
		} `json:"view"`
	} `json:"body"`
	Ancestors []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"ancestors"`
	Links struct {
		Self  string `json:"self"`
		WebUI string `json:"webui"`
		Edit  string `json:"edit"`
	} `json:"_links"`
}

type SpaceRef struct {
	ID   int64  `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type VersionView struct {
	Number int    `json:"number"`
	When   string `json:"when,omitempty"`
	By     string `json:"by,omitempty"`
}

type Ancestor struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Page is the view returned by the page operations.
type Page struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Status    string       `json:"status,omitempty"`
	Title     string       `json:"title"`
	Space     *SpaceRef    `json:"space,omitempty"`
	Version   *VersionView `json:"version,omitempty"`
	Body      string       `json:"body,omitempty"`
	Preview   string       `json:"preview,omitempty"`
	Ancestors []Ancestor   `json:"ancestors,omitempty"`
	URL       string       `json:"url"`
}

func (c *Client) page(in content, withBody bool) Page {
	p := Page{ID: in.ID, Type: in.Type, Status: in.Status, Title: in.Title, URL: c.cfg.BaseURL + in.Links.WebUI}
	if in.Space != nil {
		p.Space = &SpaceRef{ID: in.Space.ID, Key: in.Space.Key, Name: in.Space.Name, Type: in.Space.Type}
	}
	if in.Version != nil {
		p.Version = &VersionView{Number: in.Version.Number, When: in.Version.When}
		if in.Version.By != nil {
			p.Version.By = in.Version.By.DisplayName
		}
	}
	if in.Body != nil {
		var html string
		switch {
		case in.Body.Storage != nil:
			html = in.Body.Storage.Value
		case in.Body.View != nil:
			html = in.Body.View.Value
		}
		if withBody {
			p.Body = html
		} else {
			p.Preview = preview(html, 300)
		}
	}
	for _, a := range in.Ancestors {
		p.Ancestors = append(p.Ancestors, Ancestor{ID: a.ID, Type: a.Type, Title: a.Title})
	}
	return p
}

func storage(html string) map[string]any {
	return map[string]any{"storage": map[string]string{"value": html, "representation": "storage"}}
}

// CreatePageInput is the input of CreatePage.
type CreatePageInput struct {
	Title    string `json:"title" validate:"required"`
	SpaceKey string `json:"space_key" validate:"required"`
	Content  string `json:"content" validate:"required"`
	ParentID string `json:"parent_id"`
	Type     string `json:"page_type" validate:"omitempty,oneof=page blogpost"`
}

// CreatePage creates a page (or blog post) from storage-format HTML.
func (c *Client) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = "page"
	}
	body := map[string]any{
		"type":  in.Type,
		"title": in.Title,
		"space": map[string]string{"key": in.SpaceKey},
		"body":  storage(in.Content),
	}
	if in.ParentID != "" {
		body["ancestors"] = []map[string]string{{"id": in.ParentID}}
	}
	var out content
	if err := c.call(ctx, http.MethodPost, "/content", nil, body, &out, "space "+in.SpaceKey); err != nil {
		return nil, err
	}
	p := c.page(out, false)
	return &p, nil
}

// GetPage fetches a page with the given expansions, or the default set.
func (c *Client) GetPage(ctx context.Context, id string, expand []string) (*Page, error) {
	if strings.TrimSpace(id) == "" {
		return nil, workflow.FieldError("page_id", "page_id is required")
	}
	if len(expand) == 0 {
		expand = defaultExpand
	}
	params := url.Values{}
	params.Set("expand", strings.Join(expand, ","))
	var out content
	if err := c.call(ctx, http.MethodGet, "/content/"+url.PathEscape(id), params, nil, &out, "page "+id); err != nil {
		return nil, err
	}
	p := c.page(out, true)
	return &p, nil
}

// UpdatePageInput is the input of UpdatePage. Version is the current
// version; when zero it is read from the server first.
type UpdatePageInput struct {
	PageID         string `json:"page_id" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Content        string `json:"content" validate:"required"`
	Version        int    `json:"version" validate:"min=0"`
	VersionMessage string `json:"version_message"`
	Type           string `json:"page_type" validate:"omitempty,oneof=page blogpost"`
}

// UpdatePage replaces title and body and bumps the version by one.
func (c *Client) UpdatePage(ctx context.Context, in UpdatePageInput) (*Page, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = "page"
	}
	if in.Version == 0 {
		cur, err := c.GetPage(ctx, in.PageID, []string{"version"})
		if err != nil {
			return nil, err
		}
		if cur.Version != nil {
			in.Version = cur.Version.Number
		}
	}
	version := map[string]any{"number": in.Version + 1}
	if in.VersionMessage != "" {
		version["message"] = in.VersionMessage
	}
	body := map[string]any{
		"id":      in.PageID,
		"type":    in.Type,
		"title":   in.Title,
		"body":    storage(in.Content),
		"version": version,
	}
	var out content
	if err := c.call(ctx, http.MethodPut, "/content/"+url.PathEscape(in.PageID), nil, body, &out, "page "+in.PageID); err != nil {
		return nil, err
	}
	p := c.page(out, false)
	return &p, nil
}

// DeletePage moves a page to the trash.
func (c *Client) DeletePage(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return workflow.FieldError("page_id", "page_id is required")
	}
	return c.call(ctx, http.MethodDelete, "/content/"+url.PathEscape(id), nil, nil, nil, "page "+id)
}

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// preview strips tags from html and cuts it to n runes.
func preview(html string, n int) string {
	text := strings.TrimSpace(spaceRe.ReplaceAllString(tagRe.ReplaceAllString(html, " "), " "))
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
