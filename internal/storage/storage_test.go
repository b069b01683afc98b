package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-form-editor/internal/model"
	"go-form-editor/pkg/apierror"
)

var uploadTime = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newUploads(t *testing.T, opts Options) *Uploads {
	t.Helper()

	opts.BaseURL = "/uploads/"
	opts.Now = func() time.Time { return uploadTime }
	uploads, err := New(t.TempDir(), opts)
	require.NoError(t, err)
	return uploads
}

func TestUploadsSaveUpload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores below form and month", func(t *testing.T) {
		uploads := newUploads(t, Options{})

		url, err := uploads.SaveUpload(ctx, 12, "My Avatar.png", bytes.NewReader(pngBytes(t, 4, 4)))
		require.NoError(t, err)
		assert.Equal(t, "/uploads/12/2026/03/My-Avatar.png", url)
		assert.FileExists(t, filepath.Join(uploads.RootAbs(), "12", "2026", "03", "My-Avatar.png"))

		leftovers, err := filepath.Glob(filepath.Join(uploads.RootAbs(), "12", "2026", "03", ".upload-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("name clashes get a suffix", func(t *testing.T) {
		uploads := newUploads(t, Options{})

		first, err := uploads.SaveUpload(ctx, 1, "cv.txt", strings.NewReader("one"))
		require.NoError(t, err)
		second, err := uploads.SaveUpload(ctx, 1, "cv.txt", strings.NewReader("two"))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Regexp(t, `^/uploads/1/2026/03/cv-[0-9a-f]{8}\.txt$`, second)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		uploads := newUploads(t, Options{MaxSize: 4})

		_, err := uploads.SaveUpload(ctx, 1, "big.txt", strings.NewReader("12345"))
		require.ErrorIs(t, err, model.ErrUploadRejected)

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "UPLOAD_TOO_LARGE", apiErr.Code)

		entries, err := os.ReadDir(filepath.Join(uploads.RootAbs(), "1", "2026", "03"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("rejects disallowed types", func(t *testing.T) {
		uploads := newUploads(t, Options{AllowedMIME: []string{"image/*"}})

		_, err := uploads.SaveUpload(ctx, 1, "notes.png", strings.NewReader("plain text"))
		require.ErrorIs(t, err, model.ErrUploadRejected)

		_, err = uploads.SaveUpload(ctx, 1, "real.png", bytes.NewReader(pngBytes(t, 2, 2)))
		require.NoError(t, err)
	})

	t.Run("rejects unusable names", func(t *testing.T) {
		uploads := newUploads(t, Options{})

		_, err := uploads.SaveUpload(ctx, 1, ".htaccess", strings.NewReader("x"))
		require.ErrorIs(t, err, model.ErrUploadRejected)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		uploads := newUploads(t, Options{})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := uploads.SaveUpload(cancelled, 1, "a.txt", strings.NewReader("x"))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestThumbnailer(t *testing.T) {
	t.Parallel()

	thumbs, err := NewThumbnailer(t.TempDir(), 64)
	require.NoError(t, err)
	uploads := newUploads(t, Options{Thumbnails: thumbs})

	_, err = uploads.SaveUpload(context.Background(), 12, "wide.png", bytes.NewReader(pngBytes(t, 200, 100)))
	require.NoError(t, err)

	thumbPath, err := thumbs.Resolve(ThumbnailPath("12/2026/03/wide.png"))
	require.NoError(t, err)

	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer f.Close()

	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	_, err = thumbs.Generate(filepath.Join(uploads.RootAbs(), "missing.png"), "missing.png")
	require.Error(t, err)
}
