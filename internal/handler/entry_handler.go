package handler

import (
	"context"
	"errors"
	"net/http"

	"go-form-editor/internal/middleware"
	"go-form-editor/internal/model"
	"go-form-editor/pkg/apierror"
)

type EntryReader interface {
	ListForms(ctx context.Context) ([]model.FormChoice, error)
	GetEntry(ctx context.Context, id int64) (*model.Entry, error)
	ListNotes(ctx context.Context, entryID int64) ([]model.Note, error)
}

type latestResolver interface {
	LatestEntryID(ctx context.Context, formID int64, actor model.Actor) (int64, bool)
}

// EntryHandler exposes forms and entries to the admin UI and to visitors
// looking up their own latest entry.
type EntryHandler struct {
	store  EntryReader
	latest latestResolver
}

func NewEntryHandler(store EntryReader, latest latestResolver) *EntryHandler {
	return &EntryHandler{store: store, latest: latest}
}

// FormChoices lists every form for a form picker, led by the empty choice.
func (h *EntryHandler) FormChoices(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListForms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	choices := make([]model.FormChoice, 0, len(items)+1)
	choices = append(choices, model.FormChoice{ID: 0, Title: "– Select form –"})
	choices = append(choices, items...)

	writeSuccess(w, http.StatusOK, choices, &model.Meta{Total: len(items)})
}

func (h *EntryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	formID, err := formIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entryID, ok := h.latest.LatestEntryID(r.Context(), formID, middleware.ActorFromContext(r.Context()))
	if !ok {
		writeError(w, apierror.NotFound("no editable entry", ""))
		return
	}

	entry, err := h.store.GetEntry(r.Context(), entryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.LatestEntryResponse{EntryID: entryID, FormID: formID, Entry: entry}, nil)
}

// Notes lists the notes of an entry to its creator and to admins.
func (h *EntryHandler) Notes(w http.ResponseWriter, r *http.Request) {
	entryID, err := int64Param(r, "entry_id")
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.store.GetEntry(r.Context(), entryID)
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if actor.IsAnonymous() {
		writeError(w, model.ErrUnauthorized)
		return
	}
	if actor.Role != model.RoleAdmin && entry.CreatedBy != actor.ID {
		writeError(w, apierror.Forbidden("only the entry creator can read its notes"))
		return
	}

	notes, err := h.store.ListNotes(r.Context(), entryID)
	if err != nil && !errors.Is(err, model.ErrEntryNotFound) {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}

	writeSuccess(w, http.StatusOK, model.NoteListData{Items: notes}, &model.Meta{
		Total:   len(notes),
		FormID:  entry.FormID,
		EntryID: entryID,
	})
}
