package editentry

import (
	"context"
	"time"

	"go-form-editor/internal/event"
	"go-form-editor/internal/model"
)

const noteTimeLayout = "01/02/2006 3:04:05 pm"

// ChangeSavedEntryID turns a "create new entry" save into an update of the
// entry being edited. A non-nil proposal was decided upstream and is returned
// unchanged. Each edited entry gets one audit note per session.
func (e *Editor) ChangeSavedEntryID(ctx context.Context, s *Session, proposed *int64, form *model.Form) *int64 {
	if proposed != nil {
		return proposed
	}
	if form == nil {
		return nil
	}

	entryID, ok := e.EditedEntryID(ctx, s, form.ID)
	if !ok {
		return nil
	}

	if !s.noted[entryID] {
		s.noted[entryID] = true
		e.addEditNote(ctx, s, form.ID, entryID)
	}

	return &entryID
}

func (e *Editor) addEditNote(ctx context.Context, s *Session, formID, entryID int64) {
	actor := s.Actor()
	now := s.req.Now
	if now.IsZero() {
		now = time.Now()
	}

	note := model.Note{
		EntryID:     entryID,
		UserID:      actor.ID,
		UserName:    actor.DisplayName,
		Value:       "Entry updated at " + now.Format(noteTimeLayout) + " on the page: " + s.req.Permalink,
		DateCreated: now,
	}

	saved, err := e.entries.AddNote(ctx, note)
	if err != nil {
		e.logger.Warn("add edit note failed", "entry_id", entryID, "actor_id", actor.ID, "error", err)
		return
	}

	e.publish(event.TypeNoteAdded, formID, entryID, actor.ID, saved)
}
