package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chaptersnap/internal/chapter"
	"chaptersnap/internal/config"
	"chaptersnap/internal/extractor"
	"chaptersnap/internal/fetcher"
	"chaptersnap/internal/scraper"
)

var testProfile = scraper.Profile{
	Name:      "test",
	Container: "div.mw-parser-output",
	Blocks:    "p, h2, h3",
	Title:     "h1",
}

// fakeCapturer writes a small file instead of driving a browser.
type fakeCapturer struct {
	calls []string
	err   error
}

func (f *fakeCapturer) Capture(ctx context.Context, url, dest string) error {
	f.calls = append(f.calls, url+" -> "+dest)
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("\x89PNG"), 0o644)
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.URL = url
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	return cfg
}

func newFetcher() *fetcher.Fetcher {
	return fetcher.NewFetcher(fetcher.Options{
		Profile: testProfile,
		Book:    config.DefaultBook,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func chapterServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunEndToEnd(t *testing.T) {
	srv := chapterServer(t, `<html><body><h1>Chapter 1</h1>
		<div class="mw-parser-output"><p>Hello.</p><p>  </p><p>World.</p></div></body></html>`)
	cfg := testConfig(t, srv.URL)
	capt := &fakeCapturer{}
	var out bytes.Buffer

	res, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: capt, Out: &out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantJSON := filepath.Join(cfg.OutputDir, "chapter_1.json")
	wantPNG := filepath.Join(cfg.OutputDir, "screenshots", "chapter_1.png")
	if res.JSONPath != wantJSON || res.ScreenshotPath != wantPNG {
		t.Errorf("paths = %q, %q", res.JSONPath, res.ScreenshotPath)
	}

	data, err := os.ReadFile(wantJSON)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var rec chapter.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Chapter != "Chapter 1" || rec.Content != "Hello.\n\nWorld." {
		t.Errorf("record = %+v", rec)
	}
	if rec.ScreenshotPath != wantPNG {
		t.Errorf("screenshot_path = %q, want %q", rec.ScreenshotPath, wantPNG)
	}
	if rec.Book != config.DefaultBook {
		t.Errorf("book = %q", rec.Book)
	}

	if info, err := os.Stat(wantPNG); err != nil || info.Size() == 0 {
		t.Errorf("screenshot missing or empty: %v", err)
	}
	if len(capt.calls) != 1 || !strings.HasPrefix(capt.calls[0], srv.URL) {
		t.Errorf("capturer calls = %v", capt.calls)
	}

	wantOut := "[*] Fetching chapter content...\n" +
		"[*] Saving JSON...\n" +
		"[*] Taking screenshot...\n" +
		"[✓] Done! JSON saved to: " + wantJSON + "\n" +
		"[✓] Screenshot saved to: " + wantPNG + "\n"
	if out.String() != wantOut {
		t.Errorf("progress output:\n%s\nwant:\n%s", out.String(), wantOut)
	}
}

func TestRunUnreachableWritesNothing(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	cfg := testConfig(t, "http://"+addr+"/wiki/Chapter_1")
	capt := &fakeCapturer{}
	var out bytes.Buffer

	_, err = Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: capt, Out: &out})
	if !errors.Is(err, fetcher.ErrNetwork) {
		t.Fatalf("Run() error = %v, want ErrNetwork", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "chapter_1.json")); !os.IsNotExist(err) {
		t.Errorf("json file should not exist: %v", err)
	}
	if len(capt.calls) != 0 {
		t.Errorf("capturer should not run, calls = %v", capt.calls)
	}
	if strings.Contains(out.String(), "Done!") {
		t.Errorf("unexpected completion line:\n%s", out.String())
	}
}

func TestRunStructureMissingWritesNothing(t *testing.T) {
	srv := chapterServer(t, `<h1>Chapter 1</h1><div id="content"><p>Hello.</p></div>`)
	cfg := testConfig(t, srv.URL)

	_, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: &fakeCapturer{}})
	if !errors.Is(err, extractor.ErrStructureNotFound) {
		t.Fatalf("Run() error = %v, want ErrStructureNotFound", err)
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Errorf("output dir should not exist: %v", err)
	}
}

func TestRunScreenshotFailureKeepsJSON(t *testing.T) {
	srv := chapterServer(t, `<h1>Chapter 1</h1><div class="mw-parser-output"><p>Hello.</p></div>`)
	cfg := testConfig(t, srv.URL)
	boom := errors.New("render failed")
	var out bytes.Buffer

	res, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: &fakeCapturer{err: boom}, Out: &out})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if res == nil || res.JSONPath == "" {
		t.Fatalf("result should carry the JSON path, got %+v", res)
	}
	if _, err := os.Stat(res.JSONPath); err != nil {
		t.Errorf("json should persist after screenshot failure: %v", err)
	}
	if strings.Contains(out.String(), "Done!") {
		t.Errorf("unexpected completion line:\n%s", out.String())
	}
}

func TestRunSkipScreenshotWithExports(t *testing.T) {
	srv := chapterServer(t, `<h1>Chapter 1</h1><div class="mw-parser-output"><p>Hello.</p><h2>Part</h2></div>`)
	cfg := testConfig(t, srv.URL)
	cfg.SkipScreenshot = true
	cfg.Exports = []string{"markdown"}
	var out bytes.Buffer

	res, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Out: &out})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ScreenshotPath != "" || res.Record.ScreenshotPath != "" {
		t.Errorf("screenshot path should be empty, got %+v", res)
	}
	data, err := os.ReadFile(res.JSONPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if _, ok := fields["screenshot_path"]; ok || len(fields) != 5 {
		t.Errorf("skipped screenshot should leave five fields without screenshot_path, got %v", fields)
	}
	if len(res.ExportPaths) != 1 {
		t.Fatalf("ExportPaths = %v", res.ExportPaths)
	}
	md, err := os.ReadFile(res.ExportPaths[0])
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(md), "## Part") {
		t.Errorf("markdown export = %q", md)
	}
	if strings.Contains(out.String(), "Taking screenshot") {
		t.Errorf("screenshot step should be skipped:\n%s", out.String())
	}
}

func TestRunOverwritesPreviousRun(t *testing.T) {
	var body atomic.Value
	body.Store(`<h1>Chapter 1</h1><div class="mw-parser-output"><p>First.</p></div>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	if _, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: &fakeCapturer{}}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	body.Store(`<h1>Chapter 1</h1><div class="mw-parser-output"><p>Second.</p></div>`)
	res, err := Run(context.Background(), cfg, Deps{Fetcher: newFetcher(), Capturer: &fakeCapturer{}})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	data, _ := os.ReadFile(res.JSONPath)
	if strings.Contains(string(data), "First.") || !strings.Contains(string(data), "Second.") {
		t.Errorf("file not overwritten:\n%s", data)
	}
}
