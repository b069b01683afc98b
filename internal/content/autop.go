package content

import (
	"regexp"
	"strings"
)

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	blockStart = regexp.MustCompile(`(?i)^<(?:div|p|ul|ol|li|table|thead|tbody|tr|td|th|h[1-6]|blockquote|pre|form|section|article|header|footer|hr|dl|address|fieldset)[\s>/]`)
)

// Autop turns blank-line separated text into paragraphs and single newlines into
// line breaks. Blocks that already start with a block-level tag are left as is.
func Autop(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}

	blocks := blankLines.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if blockStart.MatchString(block) {
			out = append(out, block)
			continue
		}

		lines := strings.Split(block, "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
		out = append(out, "<p>"+strings.Join(lines, "<br />\n")+"</p>")
	}

	return strings.Join(out, "\n")
}
