package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-form-editor/internal/editentry"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/middleware"
	"go-form-editor/pkg/apierror"
)

const multipartMemory = 32 << 20

type Submitter interface {
	Submit(ctx context.Context, req *forms.Request, formID int64) (*forms.SubmitResult, error)
}

// FormHandler serves the public form pages: the editable form, its
// submission and the editable-form block.
type FormHandler struct {
	editor        *editentry.Editor
	submitter     Submitter
	maxUploadSize int64
}

func NewFormHandler(editor *editentry.Editor, submitter Submitter, maxUploadSize int64) *FormHandler {
	return &FormHandler{editor: editor, submitter: submitter, maxUploadSize: maxUploadSize}
}

// NewSession builds the edit session of r and returns a context carrying it,
// so shortcodes rendered further down can reach the same session.
func NewSession(r *http.Request, link string) (*editentry.Session, context.Context) {
	req := forms.NewRequest(middleware.ActorFromContext(r.Context()), r.PostForm, link)
	if r.MultipartForm != nil {
		req.Files = r.MultipartForm.File
	}

	s := editentry.NewSession(req)
	return s, editentry.WithSession(r.Context(), s)
}

func (h *FormHandler) Render(w http.ResponseWriter, r *http.Request) {
	formID, err := formIDParam(r)
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	s, ctx := NewSession(r, requestURL(r))
	query := r.URL.Query()

	markup, err := h.editor.PrepareEditableForm(ctx, s, formID, editentry.EditableOptions{
		Title:       editentry.IsStringTrue(query.Get("title")),
		Description: editentry.IsStringTrue(query.Get("description")),
	})
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	writeHTML(w, http.StatusOK, markup)
}

func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	formID, err := formIDParam(r)
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := parseForm(r); err != nil {
		writeHTMLError(w, err)
		return
	}

	link := r.Referer()
	if link == "" {
		link = requestURL(r)
	}

	s, ctx := NewSession(r, link)
	h.editor.Install(s)

	result, err := h.submitter.Submit(ctx, s.Request(), formID)
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	if result.Confirmation.Redirect != "" {
		http.Redirect(w, r, result.Confirmation.Redirect, http.StatusSeeOther)
		return
	}

	writeHTML(w, http.StatusOK, result.Confirmation.Message)
}

// Block renders the editable-form block. Without a form the block shows a
// placeholder in the editor preview and nothing on the page.
func (h *FormHandler) Block(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	preview := editentry.IsStringTrue(query.Get("preview"))

	formID, err := strconv.ParseInt(strings.TrimSpace(query.Get("form_id")), 10, 64)
	if err != nil || formID <= 0 {
		if preview {
			writeHTML(w, http.StatusOK, "<p>Select a form</p>")
			return
		}
		writeHTML(w, http.StatusOK, "")
		return
	}

	s, ctx := NewSession(r, "/forms/"+strconv.FormatInt(formID, 10))

	// The override is rendered as HTML after an edit, so only authors set it.
	var confirmation string
	if s.Actor().CanAuthor() {
		confirmation = query.Get("confirmation_message")
	}

	markup, err := h.editor.PrepareEditableForm(ctx, s, formID, editentry.EditableOptions{
		Title:        editentry.IsStringTrue(query.Get("title")),
		Description:  editentry.IsStringTrue(query.Get("description")),
		Confirmation: confirmation,
	})
	if err != nil {
		writeHTMLError(w, err)
		return
	}

	writeHTML(w, http.StatusOK, markup)
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return apierror.New("UPLOAD_TOO_LARGE", "request body too large", "", http.StatusRequestEntityTooLarge)
			}
			return apierror.BadRequest("invalid multipart body", err.Error())
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return apierror.BadRequest("invalid form body", err.Error())
	}
	return nil
}

func formIDParam(r *http.Request) (int64, error) {
	return int64Param(r, "form_id")
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("invalid "+name, raw)
	}
	return id, nil
}

// requestURL rebuilds the absolute URL the visitor requested.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + r.URL.Path
}
