package editentry

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-form-editor/internal/model"
)

func TestEditedEntryID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.seedPrior(t)

	t.Run("resolves owned entry of the form", func(t *testing.T) {
		s := session(ownerID, url.Values{FieldEditEntry: {"100"}})
		id, ok := h.editor.EditedEntryID(ctx, s, 12)
		require.True(t, ok)
		assert.Equal(t, int64(100), id)
	})

	t.Run("rejects entries of other forms", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			other, err := h.store.CreateEntry(ctx, &model.Entry{FormID: 13, CreatedBy: ownerID, Values: map[string]string{}})
			require.NoError(t, err)

			s := session(ownerID, url.Values{FieldEditEntry: {strconv.FormatInt(other.ID, 10)}})
			_, ok := h.editor.EditedEntryID(ctx, s, 12)
			assert.False(t, ok, "entry %d belongs to form 13", other.ID)
		}
	})

	t.Run("fails closed", func(t *testing.T) {
		for name, post := range map[string]url.Values{
			"absent":        {},
			"blank":         {FieldEditEntry: {"  "}},
			"non numeric":   {FieldEditEntry: {"abc"}},
			"negative":      {FieldEditEntry: {"-100"}},
			"missing":       {FieldEditEntry: {"4242"}},
			"trailing junk": {FieldEditEntry: {"100abc"}},
		} {
			s := session(ownerID, post)
			_, ok := h.editor.EditedEntryID(ctx, s, 12)
			assert.False(t, ok, name)
		}
	})

	t.Run("rejects entries of other actors", func(t *testing.T) {
		s := session(strangerID, url.Values{FieldEditEntry: {"100"}})
		_, ok := h.editor.EditedEntryID(ctx, s, 12)
		assert.False(t, ok)

		anon := session("", url.Values{FieldEditEntry: {"100"}})
		_, ok = h.editor.EditedEntryID(ctx, anon, 12)
		assert.False(t, ok)
	})

	t.Run("caches the decision per session", func(t *testing.T) {
		s := session(ownerID, url.Values{FieldEditEntry: {"100"}})
		_, ok := h.editor.EditedEntryID(ctx, s, 12)
		require.True(t, ok)

		trashed := priorEntry()
		trashed.FormID = 13
		require.NoError(t, h.store.PutEntry(ctx, trashed))
		t.Cleanup(func() { require.NoError(t, h.store.PutEntry(ctx, priorEntry())) })

		id, ok := h.editor.EditedEntryID(ctx, s, 12)
		assert.True(t, ok)
		assert.Equal(t, int64(100), id)

		_, ok = h.editor.EditedEntryID(ctx, session(ownerID, url.Values{FieldEditEntry: {"100"}}), 12)
		assert.False(t, ok, "a new session sees the moved entry")
	})
}

func TestLatestEntryID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.seedPrior(t)

	newer := &model.Entry{ID: 120, FormID: 12, CreatedBy: ownerID, DateCreated: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Values: map[string]string{}}
	require.NoError(t, h.store.PutEntry(ctx, newer))
	trashed := &model.Entry{ID: 130, FormID: 12, CreatedBy: ownerID, DateCreated: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Status: model.EntryTrash, Values: map[string]string{}}
	require.NoError(t, h.store.PutEntry(ctx, trashed))
	foreign := &model.Entry{ID: 140, FormID: 12, CreatedBy: strangerID, DateCreated: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Values: map[string]string{}}
	require.NoError(t, h.store.PutEntry(ctx, foreign))

	id, ok := h.editor.LatestEntryID(ctx, 12, model.Actor{ID: ownerID})
	require.True(t, ok)
	assert.Equal(t, int64(120), id, "newest active entry of the actor")

	_, ok = h.editor.LatestEntryID(ctx, 13, model.Actor{ID: ownerID})
	assert.False(t, ok)

	_, ok = h.editor.LatestEntryID(ctx, 12, model.Actor{})
	assert.False(t, ok, "anonymous actors never resolve")
}
