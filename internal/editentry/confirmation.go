package editentry

import (
	"context"
	"html"
	"strconv"
	"strings"

	"go-form-editor/internal/content"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
)

// AddHiddenFields appends the edit markers to the form's opening tag: the
// latest entry id and, when one was set, the encrypted confirmation override.
func (e *Editor) AddHiddenFields(ctx context.Context, s *Session, tag string, form *model.Form) string {
	if form == nil {
		return tag
	}

	entryID, ok := e.LatestEntryID(ctx, form.ID, s.Actor())
	if !ok {
		return tag
	}

	tag += "\n" + hiddenInput(FieldEditEntry, strconv.FormatInt(entryID, 10))

	msg, ok := s.Confirmation(form.ID)
	if !ok || msg == "" || e.cipher == nil {
		return tag
	}

	token, err := e.cipher.Encrypt(msg)
	if err != nil {
		e.logger.Warn("encrypt confirmation failed", "form_id", form.ID, "error", err)
		return tag
	}

	return tag + "\n" + hiddenInput(FieldConfirmation, token)
}

func hiddenInput(name, value string) string {
	return `<input type="hidden" name="` + name + `" value="` + html.EscapeString(value) + `" />`
}

// DisableNotifications mutes notifications for submissions that edit an entry.
func (e *Editor) DisableNotifications(ctx context.Context, s *Session, args forms.NotificationArgs) bool {
	if args.Disabled || args.Form == nil {
		return args.Disabled
	}

	_, edited := e.EditedEntryID(ctx, s, args.Form.ID)
	return edited
}

// EditConfirmation replaces the confirmation of an edit with the override the
// form was rendered with. The override gets merge tags, paragraphs, shortcodes
// and the confirmation filters applied, then the engine recomputes the
// confirmation from it. Anything missing or empty keeps the original result.
func (e *Editor) EditConfirmation(ctx context.Context, s *Session, args forms.ConfirmationArgs) forms.ConfirmationResult {
	if s.recomputing || args.Form == nil {
		return args.Result
	}

	if _, ok := e.EditedEntryID(ctx, s, args.Form.ID); !ok {
		return args.Result
	}

	token := strings.TrimSpace(s.req.Post(FieldConfirmation))
	if token == "" || e.cipher == nil {
		return args.Result
	}

	msg, err := e.cipher.Decrypt(token)
	if err != nil {
		e.logger.Warn("decrypt confirmation failed", "form_id", args.Form.ID, "error", err)
		return args.Result
	}
	if msg == "" {
		return args.Result
	}

	msg = content.ReplaceVariables(msg, args.Form, args.Entry)
	msg = content.Autop(msg)
	msg = e.shortcodes.Do(ctx, msg)
	for _, filter := range e.confirmationFilters {
		msg = filter(ctx, msg, args.Form, args.Entry)
	}
	if strings.TrimSpace(msg) == "" {
		return args.Result
	}

	form := args.Form.Clone()
	form.Confirmations = []model.Confirmation{{
		Type:              model.ConfirmationMessage,
		Message:           msg,
		IsDefault:         true,
		DisableAutoformat: true,
	}}

	return e.recompute(ctx, s, form, args.Entry)
}

// recompute asks the engine for the confirmation of form while flagging the
// session so this override passes the nested run through untouched.
func (e *Editor) recompute(ctx context.Context, s *Session, form *model.Form, entry *model.Entry) forms.ConfirmationResult {
	s.recomputing = true
	defer func() { s.recomputing = false }()

	return e.renderer.HandleConfirmation(ctx, s.req, form, entry)
}
