package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-form-editor/internal/model"
	"go-form-editor/internal/util"
	"go-form-editor/pkg/apierror"
)

type Options struct {
	// BaseURL prefixes the public URL of stored files, e.g. "/uploads".
	BaseURL     string
	MaxSize     int64
	AllowedMIME []string
	Thumbnails  *Thumbnailer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Uploads keeps form uploads below one root as <form>/<yyyy>/<mm>/<name>.
type Uploads struct {
	validator   *PathValidator
	baseURL     string
	maxSize     int64
	allowedMIME []string
	thumbnails  *Thumbnailer
	logger      *slog.Logger
	now         func() time.Time
}

func New(root string, opts Options) (*Uploads, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Uploads{
		validator:   validator,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		maxSize:     opts.MaxSize,
		allowedMIME: opts.AllowedMIME,
		thumbnails:  opts.Thumbnails,
		logger:      logger.With("component", "uploads"),
		now:         now,
	}, nil
}

func (u *Uploads) RootAbs() string {
	return u.validator.RootAbs()
}

func (u *Uploads) Resolve(clientPath string) (string, error) {
	return u.validator.ResolvePath(clientPath)
}

// SaveUpload stores r under a sanitized, unique name and returns its public URL.
func (u *Uploads) SaveUpload(ctx context.Context, formID int64, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := util.SanitizeUploadName(filename)
	if err != nil {
		return "", apierror.Wrap(errors.Join(model.ErrUploadRejected, err), "UPLOAD_REJECTED", "invalid file name", http.StatusBadRequest)
	}

	now := u.now().UTC()
	relDir := path.Join(strconv.FormatInt(formID, 10), now.Format("2006"), now.Format("01"))
	dir, err := u.validator.ResolvePath(relDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp upload: %w", err)
	}
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	src := r
	if u.maxSize > 0 {
		src = io.LimitReader(r, u.maxSize+1)
	}
	written, err := io.Copy(tmp, src)
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if u.maxSize > 0 && written > u.maxSize {
		return "", apierror.Wrap(model.ErrUploadRejected, "UPLOAD_TOO_LARGE", "file exceeds the upload size limit", http.StatusRequestEntityTooLarge)
	}

	mimeType, err := util.SniffMIME(tmp)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	if !util.MIMEAllowed(mimeType, u.allowedMIME) {
		return "", apierror.Wrap(model.ErrUploadRejected, "UNSUPPORTED_TYPE", "file type is not allowed", http.StatusUnsupportedMediaType)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	final := filepath.Join(dir, name)
	if _, err := os.Stat(final); err == nil {
		ext := path.Ext(name)
		final = filepath.Join(dir, strings.TrimSuffix(name, ext)+"-"+uuid.NewString()[:8]+ext)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("check upload name: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	committed = true

	rel, err := u.validator.RelPath(final)
	if err != nil {
		return "", err
	}

	if u.thumbnails != nil && util.CanThumbnail(mimeType, name) {
		if _, err := u.thumbnails.Generate(final, rel); err != nil {
			u.logger.Warn("thumbnail generation failed", "path", rel, "error", err)
		}
	}

	u.logger.Info("upload stored", "form_id", formID, "path", rel, "size", written, "mime", mimeType)
	return u.URLFor(rel), nil
}

// URLFor builds the public URL of a path below the upload root.
func (u *Uploads) URLFor(rel string) string {
	segments := strings.Split(strings.TrimPrefix(rel, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u.baseURL + "/" + strings.Join(segments, "/")
}
