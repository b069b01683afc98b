// Package editentry lets a visitor resubmit a form as an edit of their own
// latest entry. It hooks into the forms engine's per-request pipelines to
// redirect the save to the existing entry, prefill previous answers, keep
// uploaded files and show a caller supplied confirmation after the edit.
package editentry

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"go-form-editor/internal/content"
	"go-form-editor/internal/cryptox"
	"go-form-editor/internal/event"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
)

const (
	FieldEditEntry    = "rs_gf_edit_entry"
	FieldConfirmation = "rs_gf_confirmation"
)

// Stage names registered on the request hooks.
const (
	StageChangeEntryID        = "editentry.change_saved_entry_id"
	StagePreRestoreUploads    = "editentry.pre_restore_uploads"
	StageRestoreUploads       = "editentry.restore_uploads"
	StageDisableNotifications = "editentry.disable_notifications"
	StageEditConfirmation     = "editentry.edit_confirmation"
	StagePrefill              = "editentry.prefill_field_values"
	StageHiddenFields         = "editentry.add_hidden_fields"
)

const (
	priorityChangeEntryID = 50
	priorityPreRestore    = 20
	priorityRestore       = 20
	priorityNotifications = 10
	priorityConfirmation  = 15
	priorityPrefill       = 20
	priorityHiddenFields  = 10
)

type EntryStore interface {
	GetEntry(ctx context.Context, id int64) (*model.Entry, error)
	ListEntries(ctx context.Context, formID int64, filter model.EntryFilter, sorting model.EntrySorting, paging model.Paging) ([]*model.Entry, error)
	UpdateEntry(ctx context.Context, entry *model.Entry) error
	AddNote(ctx context.Context, note model.Note) (model.Note, error)
	GetMeta(ctx context.Context, entryID int64, key string) (string, error)
}

type FormStore interface {
	GetForm(ctx context.Context, id int64) (*model.Form, error)
}

type Renderer interface {
	Render(ctx context.Context, req *forms.Request, formID int64, opts forms.RenderOptions) (string, error)
	HandleConfirmation(ctx context.Context, req *forms.Request, form *model.Form, entry *model.Entry) forms.ConfirmationResult
}

// ConfirmationFilter adjusts the final post-edit confirmation message.
// Returning an empty string keeps the form's own confirmation.
type ConfirmationFilter func(ctx context.Context, message string, form *model.Form, entry *model.Entry) string

// RenderHook runs before or after an editable form is rendered.
type RenderHook func(ctx context.Context, formID int64)

type Options struct {
	Ownership           OwnershipMode
	PolicyFilters       []PolicyFilter
	ConfirmationFilters []ConfirmationFilter
	BeforeRender        []RenderHook
	AfterRender         []RenderHook
	// Events receives note and upload restore events when set.
	Events              event.Bus
	Logger              *slog.Logger
}

// Editor is shared by all requests and never mutated after New.
type Editor struct {
	entries    EntryStore
	forms      FormStore
	renderer   Renderer
	cipher     cryptox.Cipher
	shortcodes *content.Registry

	ownership           OwnershipMode
	policyFilters       []PolicyFilter
	confirmationFilters []ConfirmationFilter
	beforeRender        []RenderHook
	afterRender         []RenderHook
	events              event.Bus
	logger              *slog.Logger
}

func New(entries EntryStore, formStore FormStore, renderer Renderer, cipher cryptox.Cipher, shortcodes *content.Registry, opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Ownership == "" {
		opts.Ownership = OwnershipStrict
	}
	if opts.Ownership == OwnershipLegacy {
		logger.Warn("legacy ownership mode grants every actor edit access unless a policy filter denies it")
	}

	return &Editor{
		entries:             entries,
		forms:               formStore,
		renderer:            renderer,
		cipher:              cipher,
		shortcodes:          shortcodes,
		ownership:           opts.Ownership,
		policyFilters:       append([]PolicyFilter(nil), opts.PolicyFilters...),
		confirmationFilters: append([]ConfirmationFilter(nil), opts.ConfirmationFilters...),
		beforeRender:        append([]RenderHook(nil), opts.BeforeRender...),
		afterRender:         append([]RenderHook(nil), opts.AfterRender...),
		events:              opts.Events,
		logger:              logger.With("component", "editentry"),
	}
}

// Install registers the submission side stages on the session's hooks. These
// apply to every form of the request. Calling it again is a no-op.
func (e *Editor) Install(s *Session) {
	if s.installed {
		return
	}
	s.installed = true

	hooks := s.req.Hooks

	hooks.EntryIDPreSave.Add(StageChangeEntryID, forms.AllForms, priorityChangeEntryID,
		func(ctx context.Context, args forms.EntryIDArgs) forms.EntryIDArgs {
			args.EntryID = e.ChangeSavedEntryID(ctx, s, args.EntryID, args.Form)
			return args
		})

	hooks.PreProcess.Add(StagePreRestoreUploads, forms.AllForms, priorityPreRestore,
		func(ctx context.Context, form *model.Form) *model.Form {
			return e.PreRestoreUploads(ctx, s, form)
		})

	hooks.DisableNotification.Add(StageDisableNotifications, forms.AllForms, priorityNotifications,
		func(ctx context.Context, args forms.NotificationArgs) forms.NotificationArgs {
			args.Disabled = e.DisableNotifications(ctx, s, args)
			return args
		})

	hooks.Confirmation.Add(StageEditConfirmation, forms.AllForms, priorityConfirmation,
		func(ctx context.Context, args forms.ConfirmationArgs) forms.ConfirmationArgs {
			args.Result = e.EditConfirmation(ctx, s, args)
			return args
		})
}

type EditableOptions struct {
	Title        bool
	Description  bool
	Confirmation string
}

// PrepareEditableForm renders formID for the session's actor with their latest
// entry prefilled and the edit markers embedded in the form tag.
func (e *Editor) PrepareEditableForm(ctx context.Context, s *Session, formID int64, opts EditableOptions) (string, error) {
	for _, hook := range e.beforeRender {
		hook(ctx, formID)
	}

	e.Install(s)

	hooks := s.req.Hooks
	hooks.PreRender.Add(StagePrefill, formID, priorityPrefill,
		func(ctx context.Context, form *model.Form) *model.Form {
			return e.PrefillFieldValues(ctx, s, form)
		})
	hooks.FormTag.Add(StageHiddenFields, formID, priorityHiddenFields,
		func(ctx context.Context, args forms.FormTagArgs) forms.FormTagArgs {
			args.Tag = e.AddHiddenFields(ctx, s, args.Tag, args.Form)
			return args
		})

	var values map[int]model.FieldValue
	if entryID, ok := e.LatestEntryID(ctx, formID, s.Actor()); ok {
		values = e.FieldValues(ctx, s, formID, entryID)
	}

	if opts.Confirmation != "" {
		s.SetConfirmation(formID, opts.Confirmation)
	}

	markup, err := e.renderer.Render(ctx, s.req, formID, forms.RenderOptions{
		DisplayTitle:       opts.Title,
		DisplayDescription: opts.Description,
		FieldValues:        values,
		AJAX:               false,
	})

	for _, hook := range e.afterRender {
		hook(ctx, formID)
	}

	return markup, err
}

// CaptureShortcode swaps the output of a form shortcode for the editable form
// when the shortcode carries editable="true". Otherwise output is returned as is.
func (e *Editor) CaptureShortcode(ctx context.Context, s *Session, output string, attrs map[string]string) (string, error) {
	formID, err := strconv.ParseInt(strings.TrimSpace(attrs["id"]), 10, 64)
	if err != nil || formID <= 0 {
		return output, nil
	}
	if !IsStringTrue(strings.ToLower(attrs["editable"])) {
		return output, nil
	}

	return e.PrepareEditableForm(ctx, s, formID, EditableOptions{
		Title:        IsStringTrue(attrs["title"]),
		Description:  IsStringTrue(attrs["description"]),
		Confirmation: attrs["confirmation"],
	})
}

// FormShortcode renders [gravityform id=...] for the session carried by ctx.
// Editable shortcodes render only the editable form. Without a session the
// shortcode is left untouched.
func (e *Editor) FormShortcode(ctx context.Context, raw string, attrs map[string]string) (string, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return raw, nil
	}

	formID, err := strconv.ParseInt(strings.TrimSpace(attrs["id"]), 10, 64)
	if err != nil || formID <= 0 {
		return raw, nil
	}

	if IsStringTrue(strings.ToLower(attrs["editable"])) {
		return e.CaptureShortcode(ctx, s, raw, attrs)
	}

	return e.renderer.Render(ctx, s.req, formID, forms.RenderOptions{
		DisplayTitle:       IsStringTrue(attrs["title"]),
		DisplayDescription: IsStringTrue(attrs["description"]),
	})
}

func (e *Editor) publish(typ event.Type, formID, entryID int64, actorID string, payload any) {
	if e.events == nil {
		return
	}
	e.events.Publish(event.New(typ, formID, entryID, actorID, payload))
}

// IsStringTrue is false only for "", "0" and "false".
func IsStringTrue(v string) bool {
	return v != "" && v != "0" && v != "false"
}
