// Package screenshot renders a page in a headless browser and saves a
// full-page PNG.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chaptersnap/internal/browser"
	"chaptersnap/internal/logger"
	"chaptersnap/internal/output"
)

// ErrRender covers page load, measurement, resize and capture failures.
var ErrRender = errors.New("render failed")

const (
	DefaultPollInterval  = 250 * time.Millisecond
	DefaultSettleTimeout = 10 * time.Second
)

// Options configures a Capturer.
type Options struct {
	Browser       browser.Config
	PollInterval  time.Duration // gap between two layout measurements
	SettleTimeout time.Duration // upper bound for each stabilization wait
	Logger        logger.Logger
}

// Capturer takes one screenshot per call, each in its own browser session.
type Capturer struct {
	opts   Options
	log    logger.Logger
	launch func(ctx context.Context, cfg browser.Config) (session, error)
}

func NewCapturer(opts Options) *Capturer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = DefaultSettleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Browser.Logger == nil {
		opts.Browser.Logger = opts.Logger
	}
	return &Capturer{opts: opts, log: opts.Logger, launch: launchBrowser}
}

// Capture loads url, grows the viewport to the page's full scroll size and
// writes a PNG to dest. The browser is closed on every return path.
func (c *Capturer) Capture(ctx context.Context, url, dest string) error {
	s, err := c.launch(ctx, c.opts.Browser)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			c.log.Warn("failed to close browser", logger.Error(cerr))
		}
	}()

	p, err := s.NewPage()
	if err != nil {
		return fmt.Errorf("%w: failed to create page: %w", ErrRender, err)
	}

	img, err := c.render(ctx, p, url)
	if err != nil {
		return err
	}

	if err := output.WriteFile(dest, img); err != nil {
		return err
	}
	c.log.Debug("screenshot written", logger.String("path", dest), logger.Int("bytes", len(img)))
	return nil
}

func (c *Capturer) render(ctx context.Context, p page, url string) ([]byte, error) {
	if err := p.Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: failed to navigate: %w", ErrRender, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: failed to wait for page load: %w", ErrRender, err)
	}

	measure := func(context.Context) (Size, error) { return p.Measure() }

	size, err := c.settle(ctx, measure, "load")
	if err != nil {
		return nil, err
	}
	size = size.OrElse(Size{Width: c.opts.Browser.Width, Height: c.opts.Browser.Height})

	if err := p.SetViewport(size.Width, size.Height); err != nil {
		return nil, fmt.Errorf("%w: failed to resize viewport to %s: %w", ErrRender, size, err)
	}
	if _, err := c.settle(ctx, measure, "resize"); err != nil {
		return nil, err
	}

	img, err := p.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to capture screenshot: %w", ErrRender, err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: browser returned an empty image", ErrRender)
	}
	return img, nil
}

func (c *Capturer) settle(ctx context.Context, measure MeasureFunc, stage string) (Size, error) {
	size, stable, err := WaitStable(ctx, measure, c.opts.PollInterval, c.opts.SettleTimeout)
	if err != nil {
		return Size{}, fmt.Errorf("%w: failed to measure page after %s: %w", ErrRender, stage, err)
	}
	if !stable {
		c.log.Warn("layout did not settle, using last measurement",
			logger.String("stage", stage),
			logger.String("size", size.String()),
			logger.Duration("timeout", c.opts.SettleTimeout),
		)
	}
	return size, nil
}
