package util

import (
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode"

	"go-form-editor/pkg/apierror"
)

const maxFilenameRunes = 200

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\[\]{}#%&']`)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

func invalidFilename(message string, details string) *apierror.APIError {
	return apierror.New("INVALID_FILENAME", message, details, http.StatusBadRequest)
}

// SanitizeUploadName turns a browser supplied file name into a safe base name.
// Directory parts are dropped, unsafe characters become "_" and spaces become
// "-". Long names are shortened while keeping the extension.
func SanitizeUploadName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalidFilename("filename cannot be empty", "")
	}
	if strings.Contains(trimmed, "\x00") {
		return "", invalidFilename("filename contains null bytes", trimmed)
	}

	base := path.Base(strings.ReplaceAll(trimmed, `\`, "/"))

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(invalidFilenameChars.ReplaceAllString(b.String(), "_"), "-_ ")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", invalidFilename("filename is invalid after sanitization", trimmed)
	}
	if strings.HasPrefix(cleaned, ".") {
		return "", invalidFilename("hidden filenames are not allowed", cleaned)
	}

	ext := path.Ext(cleaned)
	stem := strings.TrimSuffix(cleaned, ext)
	if _, reserved := reservedNames[strings.ToUpper(stem)]; reserved {
		return "", invalidFilename("reserved filename is not allowed", cleaned)
	}

	if runes := []rune(cleaned); len(runes) > maxFilenameRunes {
		extRunes := []rune(ext)
		if len(extRunes) >= maxFilenameRunes {
			extRunes = nil
		}
		keep := []rune(stem)[:maxFilenameRunes-len(extRunes)]
		cleaned = string(keep) + string(extRunes)
	}

	return cleaned, nil
}
