package browser

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"chaptersnap/internal/logger"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrBrowserLaunch covers a missing binary and a browser that fails to start.
var ErrBrowserLaunch = errors.New("browser launch failed")

// Config controls how the browser process is started.
type Config struct {
	Bin      string // browser executable; empty means look it up on the system
	Headless bool
	Width    int // initial viewport
	Height   int
	ProxyURL string
	Stealth  bool // inject go-rod/stealth into every new page
	Logger   logger.Logger
}

// Browser wraps a rod.Browser together with the process that backs it.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
}

// New launches the browser and connects to it. The binary is never
// downloaded: it must be configured or installed on the system.
func New(cfg Config) (*Browser, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	bin, err := resolveBin(cfg.Bin)
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Bin(bin).
		Headless(cfg.Headless).
		Set(flags.Flag("disable-gpu"))
	if cfg.Width > 0 && cfg.Height > 0 {
		l = l.Set(flags.Flag("window-size"), strconv.Itoa(cfg.Width)+","+strconv.Itoa(cfg.Height))
	}
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %w", ErrBrowserLaunch, err)
	}
	cfg.Logger.Debug("browser launched", logger.String("bin", bin), logger.String("controlURL", controlURL))

	// rod emulates a laptop screen by default, which would override the
	// viewport we set explicitly.
	rb := rod.New().ControlURL(controlURL).NoDefaultDevice()
	if err := rb.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("%w: failed to connect: %w", ErrBrowserLaunch, err)
	}

	return &Browser{
		browser:  rb,
		launcher: l,
		cfg:      cfg,
	}, nil
}

func resolveBin(bin string) (string, error) {
	if bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return "", fmt.Errorf("%w: browser binary %q: %w", ErrBrowserLaunch, bin, err)
		}
		return bin, nil
	}
	found, ok := launcher.LookPath()
	if !ok {
		return "", fmt.Errorf("%w: no Chrome/Chromium/Edge binary found, set --browser-bin", ErrBrowserLaunch)
	}
	return found, nil
}

// NewPage opens a tab sized to the configured initial viewport.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	if b.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			b.cfg.Logger.Warn("stealth injection failed, proceeding without stealth", logger.Error(err))
		}
	}

	if b.cfg.Width > 0 && b.cfg.Height > 0 {
		if err := SetViewport(page, b.cfg.Width, b.cfg.Height); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return page, nil
}

// SetViewport resizes the page's layout viewport to exactly width x height CSS pixels.
func SetViewport(page *rod.Page, width, height int) error {
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

// PID returns the browser process id, 0 if it was never started.
func (b *Browser) PID() int {
	if b.launcher == nil {
		return 0
	}
	return b.launcher.PID()
}

// Close shuts the browser down and kills the process. It is safe to call
// on every exit path, including after a failed capture.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}
