package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go-form-editor/internal/model"
	"go-form-editor/pkg/apierror"
)

type shortcodeRunner interface {
	Do(ctx context.Context, text string) string
}

type ContentHandler struct {
	shortcodes shortcodeRunner
}

func NewContentHandler(shortcodes shortcodeRunner) *ContentHandler {
	return &ContentHandler{shortcodes: shortcodes}
}

// Render evaluates the shortcodes of the posted content for the caller.
func (h *ContentHandler) Render(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RenderContentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	link := payload.Permalink
	if link == "" {
		link = r.Referer()
	}

	_, ctx := NewSession(r, link)
	writeSuccess(w, http.StatusOK, model.RenderContentResponse{HTML: h.shortcodes.Do(ctx, payload.Content)}, nil)
}
