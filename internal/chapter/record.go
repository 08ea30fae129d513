// Package chapter holds the Chapter Record produced by one capture run.
package chapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// TimestampLayout is ISO-8601 with microseconds, always rendered in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Record is the structured result of one fetch. Field order is the JSON order.
type Record struct {
	Book           string `json:"book"`
	Chapter        string `json:"chapter"`
	URL            string `json:"url"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// inner HTML of the primary container, used by ToHTML/ToMarkdown
	html string
}

// New assembles a record stamped with at, converted to UTC.
func New(book, title, url, content, containerHTML string, at time.Time) *Record {
	return &Record{
		Book:      book,
		Chapter:   title,
		URL:       url,
		Content:   content,
		Timestamp: FormatTimestamp(at),
		html:      containerHTML,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToJSON returns the record as indented UTF-8 JSON. HTML characters and
// non-ASCII text are written verbatim.
func (r *Record) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// ToText returns a plain text rendering: book, chapter, then the content.
func (r *Record) ToText() (string, error) {
	var sb strings.Builder
	if r.Book != "" {
		sb.WriteString(r.Book + "\n")
	}
	sb.WriteString(r.Chapter + "\n\n")
	sb.WriteString(r.Content)
	sb.WriteString("\n")
	return sb.String(), nil
}

// ToHTML returns a standalone fragment with the chapter heading and the
// original container markup.
func (r *Record) ToHTML() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(r.Chapter)))
	if r.html != "" {
		sb.WriteString(r.html)
	} else {
		for _, block := range strings.Split(r.Content, "\n\n") {
			if block == "" {
				continue
			}
			sb.WriteString("<p>" + html.EscapeString(block) + "</p>\n")
		}
	}
	return sb.String(), nil
}

// ToMarkdown converts the container markup to Markdown under a level one
// heading. Without markup the extracted text is used as is.
func (r *Record) ToMarkdown() (string, error) {
	body := r.Content
	if r.html != "" {
		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(r.html)
		if err != nil {
			return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
		}
		body = markdown
	}
	return fmt.Sprintf("# %s\n\n%s\n", r.Chapter, strings.TrimSpace(body)), nil
}
