package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the editorial state of an article.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusInReview Status = "In Review"
	StatusApproved Status = "Approved"
)

// Statuses lists the workflow states in the order the status control offers them.
var Statuses = []Status{StatusDraft, StatusInReview, StatusApproved}

// Index returns the position of s in Statuses, or -1.
func (s Status) Index() int {
	for i, candidate := range Statuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// OrDraft returns s, or Draft when s is empty.
func (s Status) OrDraft() Status {
	if strings.TrimSpace(string(s)) == "" {
		return StatusDraft
	}
	return s
}

// Next cycles forward through Statuses. Unknown values restart at Draft.
func (s Status) Next() Status {
	idx := s.Index()
	if idx < 0 {
		return StatusDraft
	}
	return Statuses[(idx+1)%len(Statuses)]
}

// Prev cycles backward through Statuses. Unknown values restart at Draft.
func (s Status) Prev() Status {
	idx := s.Index()
	if idx < 0 {
		return StatusDraft
	}
	return Statuses[(idx+len(Statuses)-1)%len(Statuses)]
}

// ArticleID identifies a persisted article. The backend may send it either
// as a JSON string or a JSON number; both decode to the same text form.
type ArticleID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ArticleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("article id: %w", err)
		}
		*id = ArticleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("article id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("article id: %w", err)
	}
	*id = ArticleID(n.String())
	return nil
}

// IsZero reports whether the article has never been saved.
func (id ArticleID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Source is a citation attached to an article.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Label is the text shown for the citation, falling back to the URL.
func (s Source) Label() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return s.URL
}

// Article is the editable copy of a backend article record.
type Article struct {
	ID        ArticleID `json:"id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Angle     string    `json:"angle"`
	Status    Status    `json:"status"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
}

// IsNew reports whether the article has not been persisted yet.
func (a Article) IsNew() bool {
	return a.ID.IsZero()
}

// DisplayTitle falls back to a placeholder for untitled drafts.
func (a Article) DisplayTitle() string {
	if title := strings.TrimSpace(a.Title); title != "" {
		return title
	}
	return "Untitled Draft"
}

// Timestamp tolerates the timestamp layouts Postgres-backed APIs emit.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON parses RFC 3339 and the space/zone-less variants; empty and
// null leave the zero value.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised value %q", raw)
}

// MarshalJSON writes RFC 3339, or null for the zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
