package forms

import (
	"encoding/json"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"go-form-editor/internal/model"
)

const (
	FieldUploadedFiles = "gform_uploaded_files"
	FieldSubmit        = "gform_submit"
	FieldAJAX          = "gform_ajax"
	deletePrefix       = "gform_delete_"
)

// TrackedUpload is a file already attached to an input, rendered back to the
// browser so a resubmission can keep it.
type TrackedUpload struct {
	Files    []string
	Multiple bool
}

// Request is everything one HTTP request contributes to rendering or submitting
// a form. It is created per request and never shared.
type Request struct {
	Actor     model.Actor
	Form      url.Values
	Files     map[string][]*multipart.FileHeader
	Permalink string
	Now       time.Time
	Hooks     *Hooks

	// UploadedFiles tracks existing uploads per form and input name.
	UploadedFiles map[int64]map[string]TrackedUpload
}

func NewRequest(actor model.Actor, form url.Values, permalink string) *Request {
	if form == nil {
		form = url.Values{}
	}

	return &Request{
		Actor:         actor,
		Form:          form,
		Files:         map[string][]*multipart.FileHeader{},
		Permalink:     permalink,
		Now:           time.Now(),
		Hooks:         NewHooks(),
		UploadedFiles: map[int64]map[string]TrackedUpload{},
	}
}

// Post returns a submitted value with surrounding whitespace intact.
func (r *Request) Post(name string) string {
	if r == nil || r.Form == nil {
		return ""
	}
	return r.Form.Get(name)
}

// TrackUpload records files for an input unless something is already tracked
// for it. It reports whether the record was stored.
func (r *Request) TrackUpload(formID int64, inputName string, upload TrackedUpload) bool {
	if r.UploadedFiles == nil {
		r.UploadedFiles = map[int64]map[string]TrackedUpload{}
	}

	byInput, ok := r.UploadedFiles[formID]
	if !ok {
		byInput = map[string]TrackedUpload{}
		r.UploadedFiles[formID] = byInput
	}
	if _, exists := byInput[inputName]; exists {
		return false
	}

	byInput[inputName] = upload
	return true
}

func (r *Request) TrackedUpload(formID int64, inputName string) (TrackedUpload, bool) {
	upload, ok := r.UploadedFiles[formID][inputName]
	return upload, ok
}

func (r *Request) now() time.Time {
	if r.Now.IsZero() {
		return time.Now()
	}
	return r.Now
}

func (r *Request) hasNewFile(inputName string) bool {
	for _, key := range []string{inputName, inputName + "[]"} {
		for _, fh := range r.Files[key] {
			if fh != nil && fh.Filename != "" {
				return true
			}
		}
	}
	return false
}

// ParseUploadedFiles decodes the retention payload: input name to the file kept
// for that input, or a falsy marker when the file was removed or replaced.
func ParseUploadedFiles(raw string) (map[string]json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var markers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &markers); err != nil {
		return nil, false
	}

	return markers, true
}

// IsRetained reports whether a retention marker keeps its file. null, false,
// "", "0", 0, [] and {} all mean removed.
func IsRetained(marker json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(marker, &v); err != nil {
		return false
	}

	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0"
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return false
	}
}

func encodeUploadedFiles(markers map[string]json.RawMessage) string {
	if len(markers) == 0 {
		return ""
	}

	data, err := json.Marshal(markers)
	if err != nil {
		return ""
	}

	return string(data)
}
