package screenshot

import (
	"context"

	"chaptersnap/internal/browser"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// session is one running browser.
type session interface {
	NewPage() (page, error)
	Close() error
}

// page is the part of a browser tab a capture drives.
type page interface {
	Navigate(url string) error
	WaitLoad() error
	Measure() (Size, error)
	SetViewport(width, height int) error
	Screenshot() ([]byte, error)
}

type rodSession struct {
	b   *browser.Browser
	ctx context.Context
}

func launchBrowser(ctx context.Context, cfg browser.Config) (session, error) {
	b, err := browser.New(cfg)
	if err != nil {
		return nil, err
	}
	return &rodSession{b: b, ctx: ctx}, nil
}

func (s *rodSession) NewPage() (page, error) {
	p, err := s.b.NewPage()
	if err != nil {
		return nil, err
	}
	return &rodPage{p: p.Context(s.ctx)}, nil
}

func (s *rodSession) Close() error { return s.b.Close() }

type rodPage struct {
	p *rod.Page
}

func (r *rodPage) Navigate(url string) error { return r.p.Navigate(url) }
func (r *rodPage) WaitLoad() error           { return r.p.WaitLoad() }

func (r *rodPage) SetViewport(width, height int) error {
	return browser.SetViewport(r.p, width, height)
}

func (r *rodPage) Screenshot() ([]byte, error) {
	return r.p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

const measureJS = `() => {
	const b = document.body, d = document.documentElement;
	return {
		width: Math.max(b ? b.scrollWidth : 0, d ? d.scrollWidth : 0),
		height: Math.max(b ? b.scrollHeight : 0, d ? d.scrollHeight : 0),
	};
}`

// Measure reads the full scroll size of the document.
func (r *rodPage) Measure() (Size, error) {
	res, err := r.p.Eval(measureJS)
	if err != nil {
		return Size{}, err
	}
	return Size{
		Width:  res.Value.Get("width").Int(),
		Height: res.Value.Get("height").Int(),
	}, nil
}
