package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-form-editor/internal/model"
)

func seeded(t *testing.T) *Store {
	t.Helper()

	s := New()
	require.NoError(t, s.UpsertForm(context.Background(), &model.Form{ID: 12, Title: "Profile", IsActive: true}))
	return s
}

func TestStore_ListEntries(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, owner := range []string{"a", "b", "a", "a"} {
		_, err := s.CreateEntry(ctx, &model.Entry{
			FormID:      12,
			CreatedBy:   owner,
			DateCreated: base.Add(time.Duration(i) * time.Hour),
			Values:      map[string]string{},
		})
		require.NoError(t, err)
	}

	trashed, err := s.GetEntry(ctx, 4)
	require.NoError(t, err)
	trashed.Status = model.EntryTrash
	require.NoError(t, s.UpdateEntry(ctx, trashed))

	latest, err := s.ListEntries(ctx, 12,
		model.EntryFilter{Status: model.EntryActive, CreatedBy: "a"},
		model.EntrySorting{Key: model.SortDateCreated, Direction: model.SortDesc},
		model.Paging{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, int64(3), latest[0].ID)

	all, err := s.ListEntries(ctx, 12, model.EntryFilter{}, model.EntrySorting{Direction: model.SortAsc}, model.Paging{Offset: 1})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(2), all[0].ID)
}

func TestStore_EntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	created, err := s.CreateEntry(ctx, &model.Entry{FormID: 12, Values: map[string]string{"1": "x"}})
	require.NoError(t, err)

	created.Values["1"] = "changed"
	stored, err := s.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", stored.Values["1"])

	form, err := s.GetForm(ctx, 12)
	require.NoError(t, err)
	form.Title = "changed"
	again, err := s.GetForm(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "Profile", again.Title)
}

func TestStore_NotesAndMeta(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	entry, err := s.CreateEntry(ctx, &model.Entry{FormID: 12, Values: map[string]string{"13": "https://x/a.png"}})
	require.NoError(t, err)

	url, err := s.GetMeta(ctx, entry.ID, "13")
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.png", url)

	_, err = s.GetMeta(ctx, 999, "13")
	require.ErrorIs(t, err, model.ErrEntryNotFound)

	_, err = s.AddNote(ctx, model.Note{EntryID: entry.ID, Value: "hello"})
	require.NoError(t, err)
	notes, err := s.ListNotes(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "hello", notes[0].Value)

	_, err = s.AddNote(ctx, model.Note{EntryID: 999})
	require.ErrorIs(t, err, model.ErrEntryNotFound)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	require.NoError(t, tokens.Store(ctx, "t1", "u1", now.Add(time.Minute)))
	userID, err := tokens.Validate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	now = now.Add(2 * time.Minute)
	_, err = tokens.Validate(ctx, "t1")
	require.ErrorIs(t, err, model.ErrTokenExpired)

	_, err = tokens.Validate(ctx, "missing")
	require.ErrorIs(t, err, model.ErrTokenNotFound)
}
