// Package pipeline wires fetch, save and screenshot into one sequential run.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"chaptersnap/internal/chapter"
	"chaptersnap/internal/config"
	"chaptersnap/internal/logger"
	"chaptersnap/internal/output"
)

// ChapterFetcher turns a URL into a chapter record.
type ChapterFetcher interface {
	Fetch(ctx context.Context, url string) (*chapter.Record, error)
}

// Capturer writes a screenshot of url to dest.
type Capturer interface {
	Capture(ctx context.Context, url, dest string) error
}

// Deps are the collaborators of a run.
type Deps struct {
	Fetcher  ChapterFetcher
	Capturer Capturer // may be nil when cfg.SkipScreenshot is set
	Out      io.Writer
	Logger   logger.Logger
}

// Result lists what a run wrote.
type Result struct {
	Record         *chapter.Record
	JSONPath       string
	ScreenshotPath string // empty when the screenshot was skipped
	ExportPaths    []string
}

// Run executes fetch → save → screenshot. Any error aborts the run; files
// written by earlier steps are left in place.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	out := deps.Out
	if out == nil {
		out = io.Discard
	}

	jsonPath := output.JSONPath(cfg.OutputDir, cfg.ChapterID)
	shotPath := output.ScreenshotPath(cfg.OutputDir, cfg.ChapterID)

	fmt.Fprintln(out, "[*] Fetching chapter content...")
	rec, err := deps.Fetcher.Fetch(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chapter: %w", err)
	}
	log.Info("chapter fetched",
		logger.String("chapter", rec.Chapter),
		logger.Int("chars", len(rec.Content)),
	)
	if !cfg.SkipScreenshot {
		rec.ScreenshotPath = shotPath
	}

	fmt.Fprintln(out, "[*] Saving JSON...")
	if err := output.WriteJSON(jsonPath, rec); err != nil {
		return nil, fmt.Errorf("failed to save JSON: %w", err)
	}
	res := &Result{Record: rec, JSONPath: jsonPath}

	if len(cfg.Exports) > 0 {
		paths, err := output.WriteExports(cfg.OutputDir, cfg.ChapterID, rec, cfg.Exports)
		res.ExportPaths = paths
		if err != nil {
			return res, fmt.Errorf("failed to write exports: %w", err)
		}
		log.Debug("exports written", logger.Int("count", len(paths)))
	}

	if !cfg.SkipScreenshot {
		fmt.Fprintln(out, "[*] Taking screenshot...")
		if deps.Capturer == nil {
			return res, fmt.Errorf("failed to take screenshot: no capturer configured")
		}
		if err := deps.Capturer.Capture(ctx, cfg.URL, shotPath); err != nil {
			return res, fmt.Errorf("failed to take screenshot: %w", err)
		}
		res.ScreenshotPath = shotPath
	}

	fmt.Fprintf(out, "[✓] Done! JSON saved to: %s\n", jsonPath)
	for _, p := range res.ExportPaths {
		fmt.Fprintf(out, "[✓] Export saved to: %s\n", p)
	}
	if res.ScreenshotPath != "" {
		fmt.Fprintf(out, "[✓] Screenshot saved to: %s\n", res.ScreenshotPath)
	}
	return res, nil
}
