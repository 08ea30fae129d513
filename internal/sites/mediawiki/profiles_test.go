package mediawiki

import (
	"testing"

	"chaptersnap/internal/scraper"
)

func TestProfilesRegistered(t *testing.T) {
	for _, name := range []string{"wikisource", "wikipedia"} {
		p, ok := scraper.Get(name)
		if !ok {
			t.Fatalf("profile %q not registered", name)
		}
		if p.Container != parserOutput {
			t.Errorf("%s: Container = %q, want %q", name, p.Container, parserOutput)
		}
		if p.Blocks != textBlocks {
			t.Errorf("%s: Blocks = %q, want %q", name, p.Blocks, textBlocks)
		}
		if p.Title == "" {
			t.Errorf("%s: Title is empty", name)
		}
	}
}
