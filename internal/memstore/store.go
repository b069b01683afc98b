// Package memstore keeps forms, entries, users and refresh tokens in process
// memory. It backs development servers and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-form-editor/internal/model"
)

type Store struct {
	mu          sync.RWMutex
	forms       map[int64]*model.Form
	entries     map[int64]*model.Entry
	notes       map[int64][]model.Note
	nextEntryID int64
	nextNoteID  int64
}

func New() *Store {
	return &Store{
		forms:       make(map[int64]*model.Form),
		entries:     make(map[int64]*model.Entry),
		notes:       make(map[int64][]model.Note),
		nextEntryID: 1,
		nextNoteID:  1,
	}
}

func (s *Store) UpsertForm(_ context.Context, form *model.Form) error {
	if form == nil || form.ID <= 0 {
		return fmt.Errorf("upsert form: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := form.Clone()
	if existing, ok := s.forms[form.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.forms[form.ID] = stored

	return nil
}

func (s *Store) GetForm(_ context.Context, id int64) (*model.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	form, ok := s.forms[id]
	if !ok {
		return nil, model.ErrFormNotFound
	}

	return form.Clone(), nil
}

func (s *Store) ListForms(_ context.Context) ([]model.FormChoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.FormChoice, 0, len(s.forms))
	for _, form := range s.forms {
		out = append(out, model.FormChoice{ID: form.ID, Title: form.Title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (*model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, model.ErrEntryNotFound
	}

	return entry.Clone(), nil
}

func (s *Store) ListEntries(_ context.Context, formID int64, filter model.EntryFilter, sorting model.EntrySorting, paging model.Paging) ([]*model.Entry, error) {
	s.mu.RLock()
	matched := make([]*model.Entry, 0)
	for _, entry := range s.entries {
		if entry.FormID != formID {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.CreatedBy != "" && entry.CreatedBy != filter.CreatedBy {
			continue
		}
		matched = append(matched, entry.Clone())
	}
	s.mu.RUnlock()

	desc := !strings.EqualFold(sorting.Direction, model.SortAsc)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.DateCreated.Equal(b.DateCreated) {
			if desc {
				return a.DateCreated.After(b.DateCreated)
			}
			return a.DateCreated.Before(b.DateCreated)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})

	if paging.Offset > 0 {
		if paging.Offset >= len(matched) {
			return []*model.Entry{}, nil
		}
		matched = matched[paging.Offset:]
	}
	if paging.PageSize > 0 && len(matched) > paging.PageSize {
		matched = matched[:paging.PageSize]
	}

	return matched, nil
}

func (s *Store) CreateEntry(_ context.Context, entry *model.Entry) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.forms[entry.FormID]; !ok {
		return nil, model.ErrFormNotFound
	}

	stored := entry.Clone()
	stored.ID = s.nextEntryID
	s.nextEntryID++
	if stored.Status == "" {
		stored.Status = model.EntryActive
	}
	s.entries[stored.ID] = stored

	return stored.Clone(), nil
}

// PutEntry stores entry under its own id, for seeding and imports.
func (s *Store) PutEntry(_ context.Context, entry *model.Entry) error {
	if entry == nil || entry.ID <= 0 {
		return fmt.Errorf("put entry: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.forms[entry.FormID]; !ok {
		return model.ErrFormNotFound
	}

	stored := entry.Clone()
	if stored.Status == "" {
		stored.Status = model.EntryActive
	}
	s.entries[stored.ID] = stored
	if stored.ID >= s.nextEntryID {
		s.nextEntryID = stored.ID + 1
	}

	return nil
}

// UpdateEntry replaces the stored values of an existing entry.
func (s *Store) UpdateEntry(_ context.Context, entry *model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entry.ID]
	if !ok {
		return model.ErrEntryNotFound
	}

	stored := entry.Clone()
	stored.FormID = existing.FormID
	stored.CreatedBy = existing.CreatedBy
	stored.DateCreated = existing.DateCreated
	if stored.DateUpdated.IsZero() {
		stored.DateUpdated = time.Now().UTC()
	}
	s.entries[entry.ID] = stored

	return nil
}

func (s *Store) GetMeta(_ context.Context, entryID int64, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return "", model.ErrEntryNotFound
	}

	return entry.Values[key], nil
}

func (s *Store) AddNote(_ context.Context, note model.Note) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[note.EntryID]; !ok {
		return model.Note{}, model.ErrEntryNotFound
	}

	note.ID = s.nextNoteID
	s.nextNoteID++
	if note.DateCreated.IsZero() {
		note.DateCreated = time.Now().UTC()
	}
	s.notes[note.EntryID] = append(s.notes[note.EntryID], note)

	return note, nil
}

func (s *Store) ListNotes(_ context.Context, entryID int64) ([]model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[entryID]; !ok {
		return nil, model.ErrEntryNotFound
	}

	return append([]model.Note{}, s.notes[entryID]...), nil
}

// Ping always succeeds; it lets the memory store stand in for a database.
func (s *Store) Ping(context.Context) error {
	return nil
}
