// Package mediawiki registers profiles for pages rendered by MediaWiki,
// where the article body lives in div.mw-parser-output.
package mediawiki

import "chaptersnap/internal/scraper"

const (
	parserOutput = "div.mw-parser-output"
	textBlocks   = "p, h2, h3"
	firstHeading = "h1"
)

func init() {
	scraper.Register(scraper.Profile{
		Name:      "wikisource",
		Container: parserOutput,
		Blocks:    textBlocks,
		Title:     firstHeading,
	})
	scraper.Register(scraper.Profile{
		Name:      "wikipedia",
		Container: parserOutput,
		Blocks:    textBlocks,
		Title:     "h1#firstHeading",
	})
}
