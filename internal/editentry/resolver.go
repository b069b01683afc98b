package editentry

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go-form-editor/internal/model"
)

// EditedEntryID returns the entry the current submission edits. It reads the
// posted entry reference and fails closed unless the entry exists, belongs to
// formID and the actor may edit it. The result is cached per form for the
// lifetime of the session.
func (e *Editor) EditedEntryID(ctx context.Context, s *Session, formID int64) (int64, bool) {
	if cached, ok := s.edited[formID]; ok {
		return cached.entryID, cached.ok
	}

	entryID, ok := e.resolveEdited(ctx, s, formID)
	s.edited[formID] = resolution{entryID: entryID, ok: ok}

	return entryID, ok
}

func (e *Editor) resolveEdited(ctx context.Context, s *Session, formID int64) (int64, bool) {
	raw := strings.TrimSpace(s.req.Post(FieldEditEntry))
	if raw == "" {
		return 0, false
	}

	entryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || entryID <= 0 {
		e.logger.Debug("ignoring malformed entry reference", "form_id", formID, "value", raw)
		return 0, false
	}

	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		if !errors.Is(err, model.ErrEntryNotFound) {
			e.logger.Warn("load edited entry failed", "entry_id", entryID, "error", err)
		}
		return 0, false
	}
	if entry.FormID != formID {
		e.logger.Debug("entry reference belongs to another form", "form_id", formID, "entry_id", entryID, "entry_form_id", entry.FormID)
		return 0, false
	}

	if !e.CanUserEditEntry(ctx, s.Actor(), Loaded(entry)) {
		e.logger.Info("edit denied", "form_id", formID, "entry_id", entryID, "actor_id", s.Actor().ID)
		return 0, false
	}

	return entryID, true
}

// LatestEntryID returns the newest active entry actor created on formID.
// Anonymous actors never have one.
func (e *Editor) LatestEntryID(ctx context.Context, formID int64, actor model.Actor) (int64, bool) {
	if actor.IsAnonymous() {
		return 0, false
	}

	entries, err := e.entries.ListEntries(ctx, formID,
		model.EntryFilter{Status: model.EntryActive, CreatedBy: actor.ID},
		model.EntrySorting{Key: model.SortDateCreated, Direction: model.SortDesc},
		model.Paging{PageSize: 1},
	)
	if err != nil {
		e.logger.Warn("list latest entry failed", "form_id", formID, "actor_id", actor.ID, "error", err)
		return 0, false
	}
	if len(entries) == 0 || entries[0] == nil {
		return 0, false
	}

	return entries[0].ID, true
}
