package content

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// ShortcodeFunc renders one shortcode occurrence. raw is the full original text
// of the shortcode so a handler may decline by returning it unchanged.
type ShortcodeFunc func(ctx context.Context, raw string, attrs map[string]string) (string, error)

var (
	shortcodePattern = regexp.MustCompile(`\[([a-zA-Z][\w-]*)((?:\s+[^\]]*)?)\]`)
	attrPattern      = regexp.MustCompile(`([\w-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))`)
)

// Registry evaluates self-closing shortcodes such as [gravityform id="3"].
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ShortcodeFunc
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		handlers: make(map[string]ShortcodeFunc),
		logger:   logger.With("component", "shortcodes"),
	}
}

// Register binds name to fn, replacing any previous handler.
func (r *Registry) Register(name string, fn ShortcodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[strings.ToLower(name)] = fn
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.handlers[strings.ToLower(name)]
	return ok
}

// Do replaces every registered shortcode in text with its rendered output.
// Unknown shortcodes and failing handlers leave the original text in place.
func (r *Registry) Do(ctx context.Context, text string) string {
	if r == nil || !strings.Contains(text, "[") {
		return text
	}

	return shortcodePattern.ReplaceAllStringFunc(text, func(raw string) string {
		match := shortcodePattern.FindStringSubmatch(raw)
		name := strings.ToLower(match[1])

		r.mu.RLock()
		fn, ok := r.handlers[name]
		r.mu.RUnlock()
		if !ok {
			return raw
		}

		out, err := fn(ctx, raw, ParseAttrs(match[2]))
		if err != nil {
			r.logger.Warn("shortcode failed", "shortcode", name, "error", err)
			return raw
		}

		return out
	})
}

// ParseAttrs parses shortcode attributes. Keys are lower-cased.
func ParseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		if value == "" {
			value = m[4]
		}
		attrs[strings.ToLower(m[1])] = value
	}

	return attrs
}
