package formatter

import (
	"fmt"
	"slices"
	"strings"

	"chaptersnap/internal/scraper"
)

// Formats lists the sidecar formats a record can be exported to.
// The JSON record is always written and is not one of them.
var Formats = []string{"markdown", "text", "html"}

// Supported reports whether format, or one of its aliases, is in Formats.
func Supported(format string) bool {
	return slices.Contains(Formats, Normalize(format))
}

func Format(content scraper.Content, format string) (string, error) {
	switch Normalize(format) {
	case "html":
		return content.ToHTML()
	case "text":
		return content.ToText()
	case "markdown":
		return content.ToMarkdown()
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// Normalize maps aliases and file extensions to a format name.
// Unknown values are returned lowercased.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "md":
		return "markdown"
	case "txt":
		return "text"
	case "htm":
		return "html"
	default:
		return f
	}
}

// Extension returns the file extension, without dot, used for a format.
func Extension(format string) string {
	switch Normalize(format) {
	case "markdown":
		return "md"
	case "text":
		return "txt"
	default:
		return Normalize(format)
	}
}
