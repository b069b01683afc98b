// Package forms is a small forms engine: it renders form definitions to HTML,
// processes submissions into entries and exposes named extension points that
// let other packages reshape both paths for a single request.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path"
	"strconv"
	"strings"

	"go-form-editor/internal/content"
	"go-form-editor/internal/event"
	"go-form-editor/internal/model"
)

const defaultConfirmation = "Thanks for contacting us! We will get in touch with you shortly."

type Store interface {
	GetForm(ctx context.Context, id int64) (*model.Form, error)
	GetEntry(ctx context.Context, id int64) (*model.Entry, error)
	CreateEntry(ctx context.Context, entry *model.Entry) (*model.Entry, error)
	UpdateEntry(ctx context.Context, entry *model.Entry) error
}

// FileStore persists an uploaded file and returns its public URL.
type FileStore interface {
	SaveUpload(ctx context.Context, formID int64, filename string, r io.Reader) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, form *model.Form, entry *model.Entry, notification model.Notification) error
}

type RenderOptions struct {
	DisplayTitle       bool
	DisplayDescription bool
	// FieldValues overrides the rendered value of a field, keyed by field id.
	FieldValues map[int]model.FieldValue
	AJAX        bool
}

type SubmitResult struct {
	Entry             *model.Entry       `json:"entry"`
	Created           bool               `json:"created"`
	NotificationsSent int                `json:"notifications_sent"`
	Confirmation      ConfirmationResult `json:"confirmation"`
}

type Engine struct {
	store      Store
	files      FileStore
	notifier   Notifier
	shortcodes *content.Registry
	bus        event.Bus
	logger     *slog.Logger
}

func NewEngine(store Store, files FileStore, notifier Notifier, shortcodes *content.Registry, bus event.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:      store,
		files:      files,
		notifier:   notifier,
		shortcodes: shortcodes,
		bus:        bus,
		logger:     logger.With("component", "forms"),
	}
}

func (e *Engine) loadForm(ctx context.Context, formID int64) (*model.Form, error) {
	form, err := e.store.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !form.IsActive {
		return nil, model.ErrFormInactive
	}

	return form.Clone(), nil
}

// Render produces the markup of formID after the request's pre-render and
// form-tag stages ran.
func (e *Engine) Render(ctx context.Context, req *Request, formID int64, opts RenderOptions) (string, error) {
	ensureHooks(req)

	form, err := e.loadForm(ctx, formID)
	if err != nil {
		return "", fmt.Errorf("render form %d: %w", formID, err)
	}

	form = req.Hooks.PreRender.Run(ctx, formID, form)
	if form == nil {
		return "", fmt.Errorf("render form %d: %w", formID, model.ErrFormNotFound)
	}

	return renderForm(ctx, req, form, opts), nil
}

// Submit turns the posted request into an entry. The id chosen by the
// entry-id stages decides between updating an existing entry and creating one.
func (e *Engine) Submit(ctx context.Context, req *Request, formID int64) (*SubmitResult, error) {
	ensureHooks(req)

	form, err := e.loadForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("submit form %d: %w", formID, err)
	}

	e.normalizeRetention(req, form)

	form = req.Hooks.PreProcess.Run(ctx, formID, form)
	if form == nil {
		return nil, fmt.Errorf("submit form %d: %w", formID, model.ErrFormNotFound)
	}

	values, err := e.collectValues(ctx, req, form)
	if err != nil {
		return nil, fmt.Errorf("submit form %d: %w", formID, err)
	}

	target := req.Hooks.EntryIDPreSave.Run(ctx, formID, EntryIDArgs{Form: form}).EntryID

	entry, created, err := e.save(ctx, req, form, target, values)
	if err != nil {
		return nil, fmt.Errorf("submit form %d: %w", formID, err)
	}

	saved := req.Hooks.AfterSubmission.Run(ctx, formID, SubmissionArgs{Entry: entry, Form: form})
	if saved.Entry != nil {
		entry = saved.Entry
	}

	sent := e.sendNotifications(ctx, req, form, entry)

	return &SubmitResult{
		Entry:             entry,
		Created:           created,
		NotificationsSent: sent,
		Confirmation:      e.HandleConfirmation(ctx, req, form, entry),
	}, nil
}

func (e *Engine) save(ctx context.Context, req *Request, form *model.Form, target *int64, values map[string]string) (*model.Entry, bool, error) {
	now := req.now()

	if target != nil {
		existing, err := e.store.GetEntry(ctx, *target)
		switch {
		case err == nil && existing.FormID == form.ID:
			existing.Values = values
			existing.DateUpdated = now
			if err := e.store.UpdateEntry(ctx, existing); err != nil {
				return nil, false, fmt.Errorf("update entry %d: %w", existing.ID, err)
			}
			e.publish(event.TypeEntryUpdated, form.ID, existing.ID, req.Actor.ID)
			return existing, false, nil
		case err != nil && !errors.Is(err, model.ErrEntryNotFound):
			return nil, false, fmt.Errorf("load entry %d: %w", *target, err)
		default:
			e.logger.Warn("entry id from pre-save stage is not usable, creating a new entry",
				"form_id", form.ID, "entry_id", *target)
		}
	}

	entry := &model.Entry{
		FormID:      form.ID,
		CreatedBy:   req.Actor.ID,
		DateCreated: now,
		DateUpdated: now,
		Status:      model.EntryActive,
		SourceURL:   req.Permalink,
		Values:      values,
	}

	created, err := e.store.CreateEntry(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("create entry: %w", err)
	}
	e.publish(event.TypeEntryCreated, form.ID, created.ID, req.Actor.ID)

	return created, true, nil
}

func (e *Engine) sendNotifications(ctx context.Context, req *Request, form *model.Form, entry *model.Entry) int {
	sent := 0
	for _, n := range form.Notifications {
		if !n.IsActive {
			continue
		}

		args := req.Hooks.DisableNotification.Run(ctx, form.ID, NotificationArgs{
			Notification: n,
			Form:         form,
			Entry:        entry,
		})
		if args.Disabled {
			e.logger.Debug("notification disabled", "form_id", form.ID, "entry_id", entry.ID, "notification", n.ID)
			continue
		}
		if e.notifier == nil {
			continue
		}

		if err := e.notifier.Notify(ctx, form, entry, n); err != nil {
			e.logger.Warn("notification failed", "form_id", form.ID, "entry_id", entry.ID, "notification", n.ID, "error", err)
			continue
		}
		sent++
	}

	return sent
}

// HandleConfirmation builds the confirmation for entry from the form's default
// confirmation and passes it through the request's confirmation stages.
func (e *Engine) HandleConfirmation(ctx context.Context, req *Request, form *model.Form, entry *model.Entry) ConfirmationResult {
	ensureHooks(req)

	conf := defaultConfirmationOf(form)

	var result ConfirmationResult
	switch conf.Type {
	case model.ConfirmationRedirect, model.ConfirmationPage:
		result.Redirect = strings.TrimSpace(content.ReplaceVariables(conf.URL, form, entry))
	default:
		msg := content.ReplaceVariables(conf.Message, form, entry)
		if !conf.DisableAutoformat {
			msg = content.Autop(msg)
		}
		msg = e.shortcodes.Do(ctx, msg)
		result.Message = wrapConfirmation(form.ID, msg)
	}

	args := req.Hooks.Confirmation.Run(ctx, form.ID, ConfirmationArgs{
		Result: result,
		Form:   form,
		Entry:  entry,
		AJAX:   req.Post(FieldAJAX) != "",
	})

	return args.Result
}

func defaultConfirmationOf(form *model.Form) model.Confirmation {
	for _, c := range form.Confirmations {
		if c.IsDefault {
			return c
		}
	}
	if len(form.Confirmations) > 0 {
		return form.Confirmations[0]
	}

	return model.Confirmation{Type: model.ConfirmationMessage, Message: defaultConfirmation}
}

func wrapConfirmation(formID int64, msg string) string {
	id := strconv.FormatInt(formID, 10)
	return `<div id="gform_confirmation_wrapper_` + id + `" class="gform_confirmation_wrapper">` +
		`<div id="gform_confirmation_message_` + id + `" class="gform_confirmation_message">` +
		msg + `</div></div>`
}

// normalizeRetention clears the retention marker of inputs that got a new file
// or were ticked for deletion.
func (e *Engine) normalizeRetention(req *Request, form *model.Form) {
	markers, ok := ParseUploadedFiles(req.Post(FieldUploadedFiles))
	if !ok {
		return
	}

	changed := false
	for _, field := range form.Fields {
		if field.Type != model.FieldFileUpload {
			continue
		}
		name := field.InputName()
		if _, tracked := markers[name]; !tracked {
			continue
		}
		if req.hasNewFile(name) || req.Post(deletePrefix+name) != "" {
			markers[name] = []byte("null")
			changed = true
		}
	}

	if changed {
		req.Form.Set(FieldUploadedFiles, encodeUploadedFiles(markers))
	}
}

func (e *Engine) collectValues(ctx context.Context, req *Request, form *model.Form) (map[string]string, error) {
	values := make(map[string]string, len(form.Fields))
	markers, _ := ParseUploadedFiles(req.Post(FieldUploadedFiles))

	for _, field := range form.Fields {
		key := strconv.Itoa(field.ID)
		name := field.InputName()

		switch field.Type {
		case model.FieldCheckbox, model.FieldName, model.FieldAddress:
			for _, input := range subInputs(field) {
				values[input.ID] = strings.TrimSpace(req.Post(subInputName(input.ID)))
			}
		case model.FieldMultiselect:
			items := nonEmpty(req.Form[name+"[]"])
			if len(items) > 0 {
				values[key] = model.EncodeJSONList(items)
			} else {
				values[key] = ""
			}
		case model.FieldList:
			values[key] = collectList(field, req.Form[name+"[]"])
		case model.FieldFileUpload:
			value, err := e.collectFiles(ctx, req, form.ID, field, markers[name])
			if err != nil {
				return nil, err
			}
			values[key] = value
		default:
			values[key] = strings.TrimSpace(req.Post(name))
		}
	}

	return values, nil
}

// collectFiles stores new uploads. Without a new upload a retained marker only
// keeps the bare file name, leaving the stored URL to be restored later.
func (e *Engine) collectFiles(ctx context.Context, req *Request, formID int64, field model.Field, marker []byte) (string, error) {
	name := field.InputName()
	headers := append(append([]*multipart.FileHeader(nil), req.Files[name]...), req.Files[name+"[]"]...)

	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		if fh == nil || fh.Filename == "" {
			continue
		}
		if e.files == nil {
			return "", fmt.Errorf("field %d: %w", field.ID, model.ErrUploadRejected)
		}

		f, err := fh.Open()
		if err != nil {
			return "", fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		url, err := e.files.SaveUpload(ctx, formID, fh.Filename, f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("store upload %q: %w", fh.Filename, err)
		}

		e.publish(event.TypeUploadStored, formID, 0, req.Actor.ID)
		urls = append(urls, url)
		if !field.MultipleFiles {
			break
		}
	}

	if len(urls) > 0 {
		if field.MultipleFiles {
			return model.EncodeJSONList(urls), nil
		}
		return urls[0], nil
	}

	if marker == nil || !IsRetained(marker) {
		return "", nil
	}

	kept := retainedNames(marker)
	if field.MultipleFiles {
		return model.EncodeJSONList(kept), nil
	}
	if len(kept) > 0 {
		return kept[0], nil
	}

	return "", nil
}

func retainedNames(marker []byte) []string {
	if names, ok := model.DecodeJSONList(string(marker)); ok {
		for i := range names {
			names[i] = path.Base(names[i])
		}
		return names
	}

	var uploaded []struct {
		Name string `json:"uploaded_filename"`
	}
	if err := json.Unmarshal(marker, &uploaded); err == nil {
		names := make([]string, 0, len(uploaded))
		for _, u := range uploaded {
			names = append(names, path.Base(u.Name))
		}
		return names
	}

	var single string
	if err := json.Unmarshal(marker, &single); err == nil && single != "" {
		return []string{path.Base(single)}
	}

	return nil
}

func collectList(field model.Field, cells []string) string {
	columns := len(field.Choices)
	if columns <= 1 {
		items := nonEmpty(cells)
		if len(items) == 0 {
			return ""
		}
		return model.EncodeJSONList(items)
	}

	var rows [][]string
	for i := 0; i+columns <= len(cells); i += columns {
		row := make([]string, columns)
		empty := true
		for c := range row {
			row[c] = strings.TrimSpace(cells[i+c])
			if row[c] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return ""
	}

	return model.EncodeListRows(rows)
}

// subInputs lists the inputs of a choice or composite field. Checkbox fields
// without explicit inputs get one input per choice.
func subInputs(field model.Field) []model.Input {
	if len(field.Inputs) > 0 || field.Type != model.FieldCheckbox {
		return field.Inputs
	}

	inputs := make([]model.Input, 0, len(field.Choices))
	for i, choice := range field.Choices {
		inputs = append(inputs, model.Input{
			ID:    strconv.Itoa(field.ID) + "." + strconv.Itoa(i+1),
			Label: choice.Text,
		})
	}

	return inputs
}

func subInputName(inputID string) string {
	return "input_" + strings.ReplaceAll(inputID, ".", "_")
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (e *Engine) publish(typ event.Type, formID, entryID int64, actorID string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(event.New(typ, formID, entryID, actorID, nil))
}

func ensureHooks(req *Request) {
	if req.Hooks == nil {
		req.Hooks = NewHooks()
	}
	if req.Form == nil {
		req.Form = map[string][]string{}
	}
}
