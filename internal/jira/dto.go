package jira

import (
	"encoding/json"
)

// SearchResponse is the body of /search.
type SearchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue is a JIRA issue. Raw keeps every field, including custom fields,
// undecoded.
type Issue struct {
	ID        string                     `json:"id"`
	Key       string                     `json:"key"`
	Self      string                     `json:"self"`
	Fields    IssueFields                `json:"fields"`
	Changelog *Changelog                 `json:"changelog,omitempty"`
	Raw       map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the raw field map.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	var aux struct {
		plain
		RawFields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Issue(aux.plain)
	if err := json.Unmarshal(data, &struct {
		Fields *IssueFields `json:"fields"`
	}{&i.Fields}); err != nil {
		return err
	}
	i.Raw = aux.RawFields
	return nil
}

// CustomText returns a custom field as text, or "" when it is absent or
// not a string.
func (i *Issue) CustomText(field string) string {
	raw, ok := i.Raw[field]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

type IssueFields struct {
	Summary        string       `json:"summary"`
	Description    string       `json:"description"`
	Status         *Status      `json:"status"`
	IssueType      *Named       `json:"issuetype"`
	Project        *ProjectRef  `json:"project"`
	Assignee       *User        `json:"assignee"`
	Reporter       *User        `json:"reporter"`
	Creator        *User        `json:"creator"`
	Priority       *Named       `json:"priority"`
	Created        string       `json:"created"`
	Updated        string       `json:"updated"`
	ResolutionDate string       `json:"resolutiondate"`
	DueDate        string       `json:"duedate"`
	Labels         []string     `json:"labels"`
	Components     []Named      `json:"components"`
	Attachment     []Attachment `json:"attachment"`
	Comment        *CommentPage `json:"comment"`
}

type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Status struct {
	Name           string `json:"name"`
	StatusCategory Named  `json:"statusCategory"`
}

type ProjectRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type User struct {
	AccountID    string `json:"accountId"`
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type Changelog struct {
	Histories []History `json:"histories"`
}

type History struct {
	ID      string        `json:"id"`
	Author  *User         `json:"author"`
	Created string        `json:"created"`
	Items   []HistoryItem `json:"items"`
}

type HistoryItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

type Attachment struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Created   string `json:"created"`
	Author    *User  `json:"author"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
}

type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Visibility restricts a comment to a group or role.
type Visibility struct {
	Type  string `json:"type" validate:"required,oneof=group role"`
	Value string `json:"value" validate:"required"`
}

type Comment struct {
	ID         string      `json:"id"`
	Self       string      `json:"self"`
	Body       string      `json:"body"`
	Author     *User       `json:"author"`
	Created    string      `json:"created"`
	Updated    string      `json:"updated"`
	Visibility *Visibility `json:"visibility,omitempty"`
}

type CommentPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Comments   []Comment `json:"comments"`
}

type Project struct {
	ID             string            `json:"id"`
	Key            string            `json:"key"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ProjectTypeKey string            `json:"projectTypeKey"`
	Archived       bool              `json:"archived"`
	Lead           *User             `json:"lead"`
	Self           string            `json:"self"`
	AvatarURLs     map[string]string `json:"avatarUrls"`
}
