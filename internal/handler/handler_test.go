package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-form-editor/internal/content"
	"go-form-editor/internal/cryptox"
	"go-form-editor/internal/editentry"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/memstore"
	"go-form-editor/internal/middleware"
	"go-form-editor/internal/model"
	"go-form-editor/internal/storage"
	"go-form-editor/pkg/apierror"
)

const ownerID = "7"

type fixture struct {
	store  *memstore.Store
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	require.NoError(t, store.UpsertForm(ctx, &model.Form{
		ID:       12,
		Title:    "Profile",
		IsActive: true,
		Fields:   []model.Field{{ID: 1, Label: "Email", Type: model.FieldEmail}},
		Confirmations: []model.Confirmation{
			{ID: "default", Type: model.ConfirmationMessage, Message: "Thanks {Email:1}", IsDefault: true},
		},
	}))
	require.NoError(t, store.PutEntry(ctx, &model.Entry{
		ID:          100,
		FormID:      12,
		CreatedBy:   ownerID,
		DateCreated: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		Status:      model.EntryActive,
		Values:      map[string]string{"1": "ada@example.com"},
	}))

	cipher, err := cryptox.NewSecretBox("handler-test-secret")
	require.NoError(t, err)

	shortcodes := content.NewRegistry(nil)
	engine := forms.NewEngine(store, nil, nil, shortcodes, nil, nil)
	editor := editentry.New(store, store, engine, cipher, shortcodes, editentry.Options{})

	shortcodes.Register("gravityform", func(ctx context.Context, raw string, attrs map[string]string) (string, error) {
		s, ok := editentry.SessionFromContext(ctx)
		if !ok {
			return raw, nil
		}
		return editor.CaptureShortcode(ctx, s, raw, attrs)
	})

	formHandler := NewFormHandler(editor, engine, 1<<20)
	entryHandler := NewEntryHandler(store, editor)
	contentHandler := NewContentHandler(shortcodes)

	r := chi.NewRouter()
	r.Get("/forms/{form_id}", formHandler.Render)
	r.Post("/forms/{form_id}", formHandler.Submit)
	r.Get("/blocks/editable-form", formHandler.Block)
	authors := middleware.NewAuthMiddleware(nil)
	r.With(authors.RequireAuth, authors.RequireRoles(model.AuthorRoles...)).Post("/api/v1/content/render", contentHandler.Render)
	r.Get("/api/v1/forms/choices", entryHandler.FormChoices)
	r.Get("/api/v1/forms/{form_id}/entries/latest", entryHandler.Latest)
	r.Get("/api/v1/entries/{entry_id}/notes", entryHandler.Notes)

	return &fixture{store: store, router: r}
}

func (f *fixture) do(req *http.Request, actorID string, role string) *httptest.ResponseRecorder {
	if actorID != "" {
		claims := &model.AuthClaims{UserID: actorID, Username: "user" + actorID, Role: role, Type: "access"}
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestFormHandler_Render(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	t.Run("anonymous visitors get a blank form", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/forms/12?title=1", nil), "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `<h3 class="gform_title">Profile</h3>`)
		require.NotContains(t, rec.Body.String(), editentry.FieldEditEntry)
	})

	t.Run("the owner gets the edit marker and the previous answer", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/forms/12", nil), ownerID, model.RoleSubscriber)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `name="rs_gf_edit_entry" value="100"`)
		require.Contains(t, rec.Body.String(), `value="ada@example.com"`)
		require.Contains(t, rec.Body.String(), `action="http://example.com/forms/12"`)
	})

	t.Run("unknown form", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/forms/99", nil), "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "Form not found")
	})

	t.Run("invalid form id", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/forms/abc", nil), "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://example.com/profile")
	return req
}

func TestFormHandler_Submit(t *testing.T) {
	t.Parallel()

	t.Run("the owner edits the entry in place", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(postForm("/forms/12", url.Values{
			editentry.FieldEditEntry: {"100"},
			forms.FieldSubmit:        {"12"},
			"input_1":                {"new@example.com"},
		}), ownerID, model.RoleSubscriber)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Thanks new@example.com")

		entry, err := f.store.GetEntry(context.Background(), 100)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", entry.Values["1"])

		notes, err := f.store.ListNotes(context.Background(), 100)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		require.Contains(t, notes[0].Value, "on the page: https://example.com/profile")
	})

	t.Run("a stranger creates a new entry instead", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(postForm("/forms/12", url.Values{
			editentry.FieldEditEntry: {"100"},
			"input_1":                {"eve@example.com"},
		}), "9", model.RoleSubscriber)
		require.Equal(t, http.StatusOK, rec.Code)

		entry, err := f.store.GetEntry(context.Background(), 100)
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", entry.Values["1"])
	})

	t.Run("unknown form", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(postForm("/forms/99", url.Values{"input_1": {"x"}}), "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFormHandler_Block(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/blocks/editable-form?preview=1", nil), "", "")
	require.Equal(t, "<p>Select a form</p>", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/blocks/editable-form", nil), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/blocks/editable-form?form_id=12&confirmation_message=Saved", nil), ownerID, model.RoleEditor)
	require.Contains(t, rec.Body.String(), `name="rs_gf_confirmation"`)
	require.Contains(t, rec.Body.String(), `action="/forms/12"`)
}

func TestFormHandler_BlockIgnoresVisitorConfirmation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	target := "/blocks/editable-form?form_id=12&confirmation_message=" + url.QueryEscape("<script>alert(1)</script>")

	for _, role := range []string{"", model.RoleSubscriber} {
		rec := f.do(httptest.NewRequest(http.MethodGet, target, nil), ownerID, role)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `name="rs_gf_edit_entry" value="100"`)
		require.NotContains(t, rec.Body.String(), "rs_gf_confirmation", role)
	}

	// Without an override the edit shows the form's own confirmation.
	rec := f.do(postForm("/forms/12", url.Values{
		editentry.FieldEditEntry: {"100"},
		"input_1":                {"new@example.com"},
	}), ownerID, model.RoleSubscriber)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Thanks new@example.com")
	require.NotContains(t, rec.Body.String(), "<script>")
}

func TestContentHandler_Render(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	body := `{"content":"<div>[gravityform id=\"12\" editable=\"true\"]</div>","permalink":"https://example.com/me"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/content/render", strings.NewReader(body)), ownerID, model.RoleEditor)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	require.Contains(t, data["html"], `name="rs_gf_edit_entry" value="100"`)
	require.Contains(t, data["html"], `action="https://example.com/me"`)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/content/render", strings.NewReader("{")), "1", model.RoleAdmin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandler_RenderRequiresAuthor(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	body := `{"content":"[gravityform id=\"12\" editable=\"true\" confirmation=\"<script>alert(1)</script>\"]"}`

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/content/render", strings.NewReader(body)), "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/content/render", strings.NewReader(body)), ownerID, model.RoleSubscriber)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "rs_gf_confirmation")
}

func TestEntryHandler(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.store.AddNote(context.Background(), model.Note{EntryID: 100, UserID: ownerID, Value: "Entry updated"})
	require.NoError(t, err)

	t.Run("form choices start with the empty choice", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/forms/choices", nil), "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		items := decode(t, rec).Data.([]any)
		require.Len(t, items, 2)
		require.Equal(t, map[string]any{"id": float64(0), "title": "– Select form –"}, items[0])
		require.Equal(t, map[string]any{"id": float64(12), "title": "Profile"}, items[1])
		require.Equal(t, 1, decode(t, rec).Meta.Total)
	})

	t.Run("latest entry of the actor", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/forms/12/entries/latest", nil), ownerID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, float64(100), decode(t, rec).Data.(map[string]any)["entry_id"])

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/forms/12/entries/latest", nil), "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("notes are visible to the owner and admins only", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/entries/100/notes", nil), ownerID, model.RoleSubscriber)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		require.Len(t, resp.Data.(map[string]any)["items"], 1)
		require.Equal(t, model.Meta{Total: 1, FormID: 12, EntryID: 100}, *resp.Meta)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/entries/100/notes", nil), "1", model.RoleAdmin)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/entries/100/notes", nil), "9", model.RoleSubscriber)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/entries/100/notes", nil), "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/entries/404/notes", nil), ownerID, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFormHandler_SubmitUpload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.New()
	require.NoError(t, store.UpsertForm(ctx, &model.Form{
		ID:       20,
		Title:    "Avatar",
		IsActive: true,
		Fields:   []model.Field{{ID: 3, Label: "Avatar", Type: model.FieldFileUpload}},
	}))

	uploads := &storage.MockUploads{}
	uploads.On("SaveUpload", int64(20), "me.png", "png-bytes").Return("/uploads/20/2026/03/me.png", nil).Once()
	uploads.On("SaveUpload", int64(20), "huge.png", mock.Anything).Return("", apierror.New("UPLOAD_TOO_LARGE", "file too large", "", http.StatusRequestEntityTooLarge)).Once()

	shortcodes := content.NewRegistry(nil)
	engine := forms.NewEngine(store, uploads, nil, shortcodes, nil, nil)
	editor := editentry.New(store, store, engine, nil, shortcodes, editentry.Options{})

	r := chi.NewRouter()
	r.Post("/forms/{form_id}", NewFormHandler(editor, engine, 1<<20).Submit)

	post := func(filename string, data string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField(forms.FieldSubmit, "20"))
		part, err := mw.CreateFormFile("input_3", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/forms/20", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("me.png", "png-bytes")
	require.Equal(t, http.StatusOK, rec.Code)

	entry, err := store.GetEntry(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "/uploads/20/2026/03/me.png", entry.Values["3"])

	rec = post("huge.png", "x")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	uploads.AssertExpectations(t)
}
