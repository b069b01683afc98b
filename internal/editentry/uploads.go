package editentry

import (
	"context"
	"sort"
	"strconv"

	"go-form-editor/internal/event"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
)

// PreRestoreUploads stages the stored file of every upload input the
// submission keeps, then schedules RestoreUploads to run once after the entry
// is saved. Inputs whose file was removed or replaced, and inputs that do not
// belong to an upload field of form, are left alone.
func (e *Editor) PreRestoreUploads(ctx context.Context, s *Session, form *model.Form) *model.Form {
	if form == nil {
		return form
	}

	entryID, ok := e.EditedEntryID(ctx, s, form.ID)
	if !ok {
		return form
	}

	markers, ok := forms.ParseUploadedFiles(s.req.Post(forms.FieldUploadedFiles))
	if !ok {
		return form
	}

	names := make([]string, 0, len(markers))
	for name := range markers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, inputName := range names {
		if !forms.IsRetained(markers[inputName]) {
			continue
		}

		fieldID := model.InputFieldID(inputName)
		if fieldID == 0 {
			continue
		}
		// Only upload fields keep their stored value; any other input is the
		// visitor's fresh answer.
		if field, ok := form.Field(fieldID); !ok || field.Type != model.FieldFileUpload {
			continue
		}

		url, err := e.entries.GetMeta(ctx, entryID, strconv.Itoa(fieldID))
		if err != nil {
			e.logger.Warn("load stored upload failed", "entry_id", entryID, "field_id", fieldID, "error", err)
			continue
		}
		if url == "" {
			continue
		}

		s.stageUpload(model.PendingUpload{
			EntryID:   entryID,
			InputName: inputName,
			FieldID:   fieldID,
			URL:       url,
		})
	}

	s.req.Hooks.AfterSubmission.AddOnce(StageRestoreUploads, form.ID, priorityRestore,
		func(ctx context.Context, args forms.SubmissionArgs) forms.SubmissionArgs {
			args.Entry = e.RestoreUploads(ctx, s, args.Entry, args.Form)
			return args
		})

	return form
}

// RestoreUploads writes the staged file URLs back into entry and persists it
// with a single update when anything changed.
func (e *Editor) RestoreUploads(ctx context.Context, s *Session, entry *model.Entry, _ *model.Form) *model.Entry {
	if entry == nil {
		return entry
	}

	restored := 0
	for _, u := range s.PendingUploads() {
		if u.EntryID != entry.ID {
			continue
		}
		if entry.Values == nil {
			entry.Values = make(map[string]string)
		}
		entry.Values[strconv.Itoa(u.FieldID)] = u.URL
		restored++
	}

	if restored == 0 {
		return entry
	}

	if err := e.entries.UpdateEntry(ctx, entry); err != nil {
		e.logger.Warn("restore uploads failed", "entry_id", entry.ID, "error", err)
		return entry
	}
	e.logger.Debug("uploads restored", "entry_id", entry.ID, "count", restored)
	e.publish(event.TypeEntryRestored, entry.FormID, entry.ID, s.Actor().ID, map[string]int{"restored": restored})

	return entry
}
