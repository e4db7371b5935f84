package browser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobs-scraper/internal/config"
	"jobs-scraper/internal/logging"
	"jobs-scraper/pkg/utils"
)

// maskAutomationJS hides the navigator flags headless Chrome exposes to bot checks
const maskAutomationJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['es-CO', 'es', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// Options controls how the browser is launched and how pages are driven
type Options struct {
	Headless          bool
	Stealth           bool
	NoSandbox         bool
	UserAgent         string
	BinPath           string
	Width             int
	Height            int
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	PollInterval      time.Duration
}

// OptionsFromConfig maps the browser and timing sections of the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:          cfg.Browser.HeadlessMode,
		Stealth:           cfg.Browser.StealthMode,
		NoSandbox:         cfg.Browser.NoSandbox,
		UserAgent:         cfg.Browser.UserAgent,
		BinPath:           cfg.Browser.BinPath,
		Width:             cfg.Browser.WindowWidth,
		Height:            cfg.Browser.WindowHeight,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		SettleDelay:       cfg.Scraper.SettleDelay,
		PollInterval:      cfg.Scraper.PollInterval,
	}
}

// Launcher starts headless browser sessions
type Launcher struct {
	opts   Options
	logger logging.Logger
}

// NewLauncher creates a launcher for the given options
func NewLauncher(opts Options, logger logging.Logger) *Launcher {
	return &Launcher{opts: opts, logger: logger}
}

// newLauncher builds the Chrome command line
func (l *Launcher) newLauncher(ctx context.Context) *launcher.Launcher {
	ln := launcher.New().
		Context(ctx).
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("window-size", strconv.Itoa(l.opts.Width)+","+strconv.Itoa(l.opts.Height))

	if l.opts.Stealth {
		ln = ln.Set("disable-blink-features", "AutomationControlled")
	}

	if l.opts.UserAgent != "" {
		ln = ln.Set("user-agent", l.opts.UserAgent)
	}

	if chromePath := findChrome(l.opts.BinPath); chromePath != "" {
		ln = ln.Bin(chromePath)
		l.logger.Debug("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		l.logger.Warn("System Chrome not found, Rod will download a browser")
	}

	return ln
}

// Launch spawns a browser process and opens one page on it.
// Any failure is returned as a session error and leaves no process behind.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	ln := l.newLauncher(ctx)

	controlURL, err := ln.Launch()
	if err != nil {
		// the process never started, so Cleanup would wait on an exit that never comes
		_ = os.RemoveAll(ln.Get(flags.UserDataDir))
		return nil, utils.NewSessionError(fmt.Errorf("failed to launch browser: %w", err))
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, utils.NewSessionError(fmt.Errorf("failed to connect to browser: %w", err))
	}

	page, err := l.createPage(browser)
	if err != nil {
		_ = browser.Close()
		ln.Cleanup()
		return nil, utils.NewSessionError(err)
	}

	l.logger.Info("Browser session started", map[string]interface{}{
		"headless": l.opts.Headless,
		"stealth":  l.opts.Stealth,
	})

	return &Session{
		browser:  browser,
		page:     page,
		launcher: ln,
		opts:     l.opts,
		logger:   l.logger,
	}, nil
}

// createPage opens a page, through go-rod/stealth when stealth mode is on
func (l *Launcher) createPage(browser *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if l.opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             l.opts.Width,
		Height:            l.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		l.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if l.opts.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      l.opts.UserAgent,
			AcceptLanguage: "es-CO,es;q=0.9,en;q=0.8",
		})
		if err != nil {
			l.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if l.opts.Stealth {
		if _, err := page.EvalOnNewDocument(maskAutomationJS); err != nil {
			l.logger.Warn("Failed to install automation mask", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return page, nil
}

// findChrome returns the configured binary, then CHROME_BIN / CHROME_PATH, then common install paths
func findChrome(configured string) string {
	candidates := []string{configured, os.Getenv("CHROME_BIN"), os.Getenv("CHROME_PATH")}
	candidates = append(candidates,
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
