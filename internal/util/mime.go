package util

import (
	"io"
	"net/http"
	"path"
	"strings"
)

// SniffMIME reads the head of r, detects its content type and rewinds r.
func SniffMIME(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer[:n]), nil
}

// MIMEAllowed matches mimeType against patterns such as "image/png" or
// "image/*". An empty pattern list allows everything.
func MIMEAllowed(mimeType string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	cleaned := normalizeMIME(mimeType)
	for _, pattern := range patterns {
		pattern = normalizeMIME(pattern)
		if pattern == "*/*" || pattern == cleaned {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(cleaned, prefix+"/") {
			return true
		}
	}

	return false
}

// normalizeMIME drops parameters such as "; charset=utf-8".
func normalizeMIME(mimeType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.IndexByte(cleaned, ';'); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

func IsThumbnailMIME(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}

// CanThumbnail decides from the sniffed type, falling back to the file
// extension when the content was not recognised.
func CanThumbnail(mimeType string, filename string) bool {
	if IsThumbnailMIME(mimeType) {
		return true
	}
	if normalizeMIME(mimeType) != "application/octet-stream" {
		return false
	}

	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".jpe", ".jfif", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
