package storage

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-form-editor/pkg/apierror"
)

const defaultThumbnailSize = 256

// Thumbnailer writes JPEG previews of uploaded images to a separate root.
type Thumbnailer struct {
	validator *PathValidator
	size      int
}

func NewThumbnailer(root string, size int) (*Thumbnailer, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail root: %w", err)
	}
	if size <= 0 {
		size = defaultThumbnailSize
	}

	return &Thumbnailer{validator: validator, size: size}, nil
}

func (t *Thumbnailer) Resolve(clientPath string) (string, error) {
	return t.validator.ResolvePath(clientPath)
}

// ThumbnailPath is the path below the thumbnail root for an upload path.
func ThumbnailPath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".jpg"
}

// Generate decodes the image at src, scales it to fit the configured size and
// returns the thumbnail location relative to the thumbnail root.
func (t *Thumbnailer) Generate(src string, rel string) (string, error) {
	file, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", apierror.New("UNSUPPORTED_TYPE", "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return "", apierror.New("UNSUPPORTED_TYPE", "invalid image dimensions", rel, http.StatusUnsupportedMediaType)
	}

	scale := math.Min(1, float64(t.size)/float64(max(width, height)))
	targetWidth := max(1, int(math.Round(float64(width)*scale)))
	targetHeight := max(1, int(math.Round(float64(height)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	thumbRel := ThumbnailPath(rel)
	thumbPath, err := t.validator.ResolvePath(thumbRel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail directory: %w", err)
	}

	out, err := os.OpenFile(thumbPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	encodeErr := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85})
	closeErr := out.Close()
	if encodeErr != nil {
		return "", encodeErr
	}
	if closeErr != nil {
		return "", closeErr
	}

	return thumbRel, nil
}
