package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chaptersnap/internal/chapter"
	"chaptersnap/internal/extractor"
	"chaptersnap/internal/logger"
	"chaptersnap/internal/scraper"

	"golang.org/x/net/html/charset"
)

var (
	// ErrNetwork wraps transport failures: DNS, refused connections, timeouts.
	ErrNetwork = errors.New("network error")
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Options configures a Fetcher.
type Options struct {
	Profile   scraper.Profile
	Book      string
	UserAgent string        // empty keeps Go's default
	Timeout   time.Duration // 0 means no client timeout
	Client    *http.Client  // optional, overrides Timeout
	Now       func() time.Time
	Logger    logger.Logger
}

// Fetcher downloads one page and turns it into a chapter record.
type Fetcher struct {
	client  *http.Client
	profile scraper.Profile
	book    string
	ua      string
	now     func() time.Time
	log     logger.Logger
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		client:  client,
		profile: opts.Profile,
		book:    opts.Book,
		ua:      opts.UserAgent,
		now:     now,
		log:     log,
	}
}

// Fetch performs a single GET against url and extracts the chapter.
// The returned record has no screenshot path.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*chapter.Record, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.ua != "" {
		req.Header.Set("User-Agent", f.ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	// decode to UTF-8 using the declared charset, falling back to <meta> and sniffing
	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrNetwork, err)
	}

	ext, err := extractor.Extract(body, f.profile)
	if err != nil {
		return nil, err
	}

	if len(ext.Blocks) == 0 {
		f.log.Warn("no text blocks found in content container",
			logger.String("url", url),
			logger.String("container", f.profile.Container),
		)
	}
	f.log.Debug("chapter fetched",
		logger.String("url", url),
		logger.String("chapter", ext.Title),
		logger.Int("blocks", len(ext.Blocks)),
		logger.Duration("elapsed", time.Since(startTime)),
	)

	return chapter.New(f.book, ext.Title, url, ext.Content(), ext.ContainerHTML, f.now()), nil
}
