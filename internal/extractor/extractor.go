package extractor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"chaptersnap/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrStructureNotFound means the primary content container is missing,
	// i.e. the page markup no longer has the expected shape.
	ErrStructureNotFound = errors.New("content container not found")
	// ErrTitleNotFound means the page has no chapter heading.
	ErrTitleNotFound = errors.New("title not found")
)

// BlockSeparator joins extracted blocks.
const BlockSeparator = "\n\n"

// Extraction is what a page yields before it becomes a chapter record.
type Extraction struct {
	Title         string
	Blocks        []string
	ContainerHTML string
}

// Content returns the blocks joined in document order.
func (e *Extraction) Content() string {
	return strings.Join(e.Blocks, BlockSeparator)
}

// Extract parses HTML from r and pulls the title and text blocks described
// by p. There is no fallback when the container or title is missing.
func Extract(r io.Reader, p scraper.Profile) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return FromDocument(doc, p)
}

// FromDocument runs the extraction on an already parsed document.
func FromDocument(doc *goquery.Document, p scraper.Profile) (*Extraction, error) {
	container := doc.Find(p.Container).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrStructureNotFound, p.Container)
	}

	var blocks []string
	container.Find(p.Blocks).Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	heading := doc.Find(p.Title).First()
	if heading.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTitleNotFound, p.Title)
	}

	containerHTML, err := container.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render container HTML: %w", err)
	}

	return &Extraction{
		Title:         strings.TrimSpace(heading.Text()),
		Blocks:        blocks,
		ContainerHTML: containerHTML,
	}, nil
}
