package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"chaptersnap/internal/formatter"
	"chaptersnap/internal/scraper"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Defaults describe the chapter the tool was first written for.
const (
	DefaultURL       = "https://en.wikisource.org/wiki/The_Gates_of_Morning/Book_1/Chapter_1"
	DefaultChapterID = "chapter_1"
	DefaultBook      = "The Gates of Morning"
	DefaultOutputDir = "output"
	DefaultSite      = "wikisource"
)

const envPrefix = "CHAPTERSNAP_"

// Config holds the run parameters for one invocation.
type Config struct {
	URL       string `yaml:"url"`
	ChapterID string `yaml:"chapter_id"`
	Book      string `yaml:"book"`
	OutputDir string `yaml:"output_dir"`

	Site      string    `yaml:"site"`      // registered scraper profile
	Selectors Selectors `yaml:"selectors"` // overrides on top of the profile

	HTTPTimeout time.Duration `yaml:"http_timeout"` // 0 = no timeout
	UserAgent   string        `yaml:"user_agent"`

	Browser BrowserConfig `yaml:"browser"`

	SkipScreenshot bool     `yaml:"skip_screenshot"`
	Exports        []string `yaml:"exports"` // extra formats: markdown, text, html

	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => JSON
}

type Selectors struct {
	Container string `yaml:"container"`
	Blocks    string `yaml:"blocks"`
	Title     string `yaml:"title"`
}

type BrowserConfig struct {
	Bin           string        `yaml:"bin"` // Chrome/Chromium/Edge executable
	Headless      bool          `yaml:"headless"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Stealth       bool          `yaml:"stealth"`
	ProxyURL      string        `yaml:"proxy"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	SettleTimeout time.Duration `yaml:"settle_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		URL:       DefaultURL,
		ChapterID: DefaultChapterID,
		Book:      DefaultBook,
		OutputDir: DefaultOutputDir,
		Site:      DefaultSite,
		Browser: BrowserConfig{
			Headless:      true,
			Width:         1920,
			Height:        1080,
			PollInterval:  250 * time.Millisecond,
			SettleTimeout: 10 * time.Second,
		},
		LogLevel:  "info",
		PrettyLog: true,
	}
}

// Load starts from Default, applies the YAML file at path (if any) and then
// CHAPTERSNAP_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.URL = getenv("URL", c.URL)
	c.ChapterID = getenv("CHAPTER_ID", c.ChapterID)
	c.Book = getenv("BOOK", c.Book)
	c.OutputDir = getenv("OUTPUT_DIR", c.OutputDir)
	c.Site = getenv("SITE", c.Site)
	c.HTTPTimeout = mustDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.UserAgent = getenv("USER_AGENT", c.UserAgent)
	c.Browser.Bin = getenv("BROWSER_BIN", c.Browser.Bin)
	c.Browser.Headless = mustBool("HEADLESS", c.Browser.Headless)
	c.Browser.Stealth = mustBool("STEALTH", c.Browser.Stealth)
	c.Browser.ProxyURL = getenv("PROXY", c.Browser.ProxyURL)
	c.Browser.SettleTimeout = mustDuration("SETTLE_TIMEOUT", c.Browser.SettleTimeout)
	c.SkipScreenshot = mustBool("SKIP_SCREENSHOT", c.SkipScreenshot)
	c.Exports = getenvSlice("EXPORTS", c.Exports)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("PRETTY_LOG", c.PrettyLog)
}

// Profile resolves the site profile with selector overrides applied.
func (c *Config) Profile() (scraper.Profile, error) {
	p, ok := scraper.Get(c.Site)
	if !ok {
		return scraper.Profile{}, fmt.Errorf("unknown site: %s (known: %s)", c.Site, strings.Join(scraper.Names(), ", "))
	}
	return p.Merge(scraper.Profile{
		Container: c.Selectors.Container,
		Blocks:    c.Selectors.Blocks,
		Title:     c.Selectors.Title,
	}), nil
}

// Validate checks the configuration before anything touches the network.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.URL)
	switch {
	case c.URL == "":
		errs = append(errs, errors.New("url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("invalid url scheme %q: only http and https are supported", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("invalid url %q: missing host", c.URL))
	}

	if err := validateID(c.ChapterID); err != nil {
		errs = append(errs, err)
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if p, err := c.Profile(); err != nil {
		errs = append(errs, err)
	} else {
		selectors := []struct{ name, sel string }{
			{"container", p.Container},
			{"blocks", p.Blocks},
			{"title", p.Title},
		}
		for _, s := range selectors {
			if s.sel == "" {
				errs = append(errs, fmt.Errorf("%s selector is empty", s.name))
				continue
			}
			if _, err := cascadia.ParseGroup(s.sel); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s selector %q: %w", s.name, s.sel, err))
			}
		}
	}

	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid viewport %dx%d", c.Browser.Width, c.Browser.Height))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http timeout must not be negative"))
	}

	for _, f := range c.Exports {
		if !formatter.Supported(f) {
			errs = append(errs, fmt.Errorf("invalid export format: %s", f))
		}
	}

	return errors.Join(errs...)
}

func validateID(id string) error {
	if id == "" {
		return errors.New("chapter id is required")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid chapter id %q: must not contain path separators or '..'", id)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvSlice(key string, def []string) []string {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	raw := strings.Split(v, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
