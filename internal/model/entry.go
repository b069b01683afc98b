package model

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

type EntryStatus string

const (
	EntryActive EntryStatus = "active"
	EntryTrash  EntryStatus = "trash"
	EntrySpam   EntryStatus = "spam"
)

// Entry is one submission of a form. Values is keyed by input id ("13", "5.2").
type Entry struct {
	ID          int64             `json:"id"`
	FormID      int64             `json:"form_id"`
	CreatedBy   string            `json:"created_by,omitempty"`
	DateCreated time.Time         `json:"date_created"`
	DateUpdated time.Time         `json:"date_updated"`
	Status      EntryStatus       `json:"status"`
	SourceURL   string            `json:"source_url,omitempty"`
	Values      map[string]string `json:"values"`
}

func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	out := *e
	out.Values = make(map[string]string, len(e.Values))
	for k, v := range e.Values {
		out.Values[k] = v
	}

	return &out
}

// FieldInputs returns the stored values belonging to a field, ordered by input id.
func (e *Entry) FieldInputs(fieldID int) []string {
	keys := make([]string, 0, 1)
	for key := range e.Values {
		if InputFieldID(key) == fieldID {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return inputSubIndex(keys[i]) < inputSubIndex(keys[j])
	})

	values := make([]string, 0, len(keys))
	for _, key := range keys {
		values = append(values, e.Values[key])
	}

	return values
}

// InputFieldID returns the integer field id of an input id or input name
// ("13", "5.2", "input_13"). Zero means the key does not belong to a field.
func InputFieldID(key string) int {
	key = strings.TrimPrefix(key, "input_")
	if idx := strings.IndexAny(key, "._"); idx >= 0 {
		key = key[:idx]
	}

	id, err := strconv.Atoi(key)
	if err != nil || id < 0 {
		return 0
	}

	return id
}

func inputSubIndex(key string) int {
	idx := strings.Index(key, ".")
	if idx < 0 {
		return 0
	}

	sub, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return 0
	}

	return sub
}

type EntryFilter struct {
	Status    EntryStatus
	CreatedBy string
}

const (
	SortDateCreated = "date_created"
	SortAsc         = "ASC"
	SortDesc        = "DESC"
)

type EntrySorting struct {
	Key       string
	Direction string
}

type Paging struct {
	Offset   int
	PageSize int
}

type Note struct {
	ID          int64     `json:"id"`
	EntryID     int64     `json:"entry_id"`
	UserID      string    `json:"user_id,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
	Value       string    `json:"value"`
	DateCreated time.Time `json:"date_created"`
}

// PendingUpload is a previously stored file that must survive the current edit.
type PendingUpload struct {
	EntryID   int64
	InputName string
	FieldID   int
	URL       string
}

// Actor is whoever drives the current request. An empty ID is an anonymous visitor.
type Actor struct {
	ID          string
	DisplayName string
	Role        string
}

func (a Actor) IsAnonymous() bool {
	return strings.TrimSpace(a.ID) == ""
}

// AuthorRoles may write page content, including form confirmation overrides.
var AuthorRoles = []string{RoleEditor, RoleAdmin}

// CanAuthor reports whether the actor may supply content rendered to others.
func (a Actor) CanAuthor() bool {
	return !a.IsAnonymous() && slices.Contains(AuthorRoles, strings.ToLower(a.Role))
}
