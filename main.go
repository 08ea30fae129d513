package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"chaptersnap/internal/browser"
	"chaptersnap/internal/config"
	"chaptersnap/internal/fetcher"
	"chaptersnap/internal/formatter"
	"chaptersnap/internal/logger"
	"chaptersnap/internal/pipeline"
	"chaptersnap/internal/scraper"
	"chaptersnap/internal/screenshot"
	_ "chaptersnap/internal/sites/mediawiki"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFile     string
	chapterID      string
	book           string
	outputDir      string
	site           string
	container      string
	blocks         string
	title          string
	timeout        time.Duration
	userAgent      string
	browserBin     string
	showUI         bool
	stealthMode    bool
	proxyURL       string
	settleTimeout  time.Duration
	skipScreenshot bool
	exports        []string
	logLevel       string
	prettyLog      bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "chaptersnap [URL]",
		Short:   "Capture a wiki chapter as JSON plus a full-page screenshot",
		Version: version,
		Long: `chaptersnap fetches one chapter page, extracts its title and body text,
saves them as <output>/<id>.json and renders the same page in a headless
browser to <output>/screenshots/<id>.png.

Without a URL argument the configured (or built-in) chapter is captured.`,
		Example: `  # Capture the built-in chapter into ./output
  chaptersnap

  # Capture another chapter
  chaptersnap --id chapter_2 https://en.wikisource.org/wiki/The_Gates_of_Morning/Book_1/Chapter_2

  # Use a config file, skip the browser and also write markdown
  chaptersnap --config chapter.yaml --skip-screenshot --export markdown

  # Point at a specific browser binary
  chaptersnap --browser-bin /usr/bin/chromium`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("CHAPTERSNAP_CONFIG"), "YAML config file, defaults to CHAPTERSNAP_CONFIG env var")
	rootCmd.Flags().StringVar(&chapterID, "id", config.DefaultChapterID, "Chapter identifier used for output file names")
	rootCmd.Flags().StringVar(&book, "book", config.DefaultBook, "Display name of the book")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "Output directory")
	rootCmd.Flags().StringVar(&site, "site", config.DefaultSite, "Site profile ("+strings.Join(scraper.Names(), ", ")+")")
	rootCmd.Flags().StringVar(&container, "container", "", "CSS selector overriding the profile's content container")
	rootCmd.Flags().StringVar(&blocks, "blocks", "", "CSS selector overriding the profile's text blocks")
	rootCmd.Flags().StringVar(&title, "title", "", "CSS selector overriding the profile's title element")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "HTTP timeout for the content fetch (0 = none)")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent header for the content fetch")
	rootCmd.Flags().StringVar(&browserBin, "browser-bin", "", "Chrome/Chromium/Edge executable (default: look up on the system)")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().BoolVar(&stealthMode, "stealth", false, "Inject stealth scripts before loading the page")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "Browser proxy URL (e.g. http://127.0.0.1:7890)")
	rootCmd.Flags().DurationVar(&settleTimeout, "settle-timeout", 10*time.Second, "Max wait for the page layout to settle")
	rootCmd.Flags().BoolVar(&skipScreenshot, "skip-screenshot", false, "Only fetch and save the chapter JSON (screenshot_path is then omitted from it)")
	rootCmd.Flags().StringSliceVar(&exports, "export", nil, "Extra output formats written next to the JSON ("+strings.Join(formatter.Formats, ", ")+")")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&prettyLog, "pretty-log", true, "Human readable logs instead of JSON")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, args)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	profile, err := cfg.Profile()
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Fetcher: fetcher.NewFetcher(fetcher.Options{
			Profile:   profile,
			Book:      cfg.Book,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
			Logger:    log,
		}),
		Out:    os.Stdout,
		Logger: log,
	}
	if !cfg.SkipScreenshot {
		deps.Capturer = screenshot.NewCapturer(screenshot.Options{
			Browser: browser.Config{
				Bin:      cfg.Browser.Bin,
				Headless: cfg.Browser.Headless,
				Width:    cfg.Browser.Width,
				Height:   cfg.Browser.Height,
				ProxyURL: cfg.Browser.ProxyURL,
				Stealth:  cfg.Browser.Stealth,
			},
			PollInterval:  cfg.Browser.PollInterval,
			SettleTimeout: cfg.Browser.SettleTimeout,
			Logger:        log,
		})
	}

	log.Debug("starting capture",
		logger.String("url", cfg.URL),
		logger.String("chapter_id", cfg.ChapterID),
		logger.String("site", cfg.Site),
		logger.Bool("skip_screenshot", cfg.SkipScreenshot),
	)

	if _, err := pipeline.Run(context.Background(), cfg, deps); err != nil {
		log.Error("capture failed", logger.Error(err))
		return err
	}
	return nil
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) == 1 {
		cfg.URL = normalizeURL(args[0])
	}

	flags := cmd.Flags()
	if flags.Changed("id") {
		cfg.ChapterID = chapterID
	}
	if flags.Changed("book") {
		cfg.Book = book
	}
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("site") {
		cfg.Site = site
	}
	if flags.Changed("container") {
		cfg.Selectors.Container = container
	}
	if flags.Changed("blocks") {
		cfg.Selectors.Blocks = blocks
	}
	if flags.Changed("title") {
		cfg.Selectors.Title = title
	}
	if flags.Changed("timeout") {
		cfg.HTTPTimeout = timeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if flags.Changed("browser-bin") {
		cfg.Browser.Bin = browserBin
	}
	if flags.Changed("showui") {
		cfg.Browser.Headless = !showUI
	}
	if flags.Changed("stealth") {
		cfg.Browser.Stealth = stealthMode
	}
	if flags.Changed("proxy") {
		cfg.Browser.ProxyURL = proxyURL
	}
	if flags.Changed("settle-timeout") {
		cfg.Browser.SettleTimeout = settleTimeout
	}
	if flags.Changed("skip-screenshot") {
		cfg.SkipScreenshot = skipScreenshot
	}
	if flags.Changed("export") {
		cfg.Exports = exports
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("pretty-log") {
		cfg.PrettyLog = prettyLog
	}
}

// normalizeURL adds https:// if no protocol prefix is present
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}
