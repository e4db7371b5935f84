package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"jobs-scraper/internal/logging"
	"jobs-scraper/pkg/utils"
)

// Session is one live browser with a single page
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	opts     Options
	logger   logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// Navigate loads url, waits for the load event and then for the settle delay
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	page := s.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for load of %s: %w", url, err)
	}

	s.logger.Debug("Successfully navigated to URL", map[string]interface{}{
		"url": url,
	})

	if s.opts.SettleDelay > 0 {
		select {
		case <-time.After(s.opts.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Click clicks the first element matching selector whose text matches the
// JS regex textPattern, waiting at most timeout for it to appear
func (s *Session) Click(ctx context.Context, selector, textPattern string, timeout time.Duration) error {
	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := s.page.Context(clickCtx).ElementR(selector, textPattern)
	if err != nil {
		return fmt.Errorf("no %q element matching %s: %w", selector, textPattern, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// Listings polls until at least one element matches selector and returns the
// outer HTML of every match. A timeout is reported as a navigation timeout.
func (s *Session) Listings(ctx context.Context, selector string, timeout time.Duration) ([]string, error) {
	var found rod.Elements

	err := Poll(ctx, timeout, s.opts.PollInterval, func(ctx context.Context) (bool, error) {
		els, err := s.page.Context(ctx).Elements(selector)
		if err != nil {
			return false, err
		}
		found = els
		return len(els) > 0, nil
	})
	if err != nil {
		if errors.Is(err, ErrPollTimeout) {
			return nil, utils.NewNavigationTimeoutError(selector, err)
		}
		return nil, err
	}

	fragments := make([]string, 0, len(found))
	for i, el := range found {
		html, err := el.Context(ctx).HTML()
		if err != nil {
			s.logger.Warn("Failed to read listing element", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		fragments = append(fragments, html)
	}
	return fragments, nil
}

// Close quits the browser and removes its profile directory. Only the first call has any effect.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			s.logger.Debug("Failed to close page", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
			s.launcher.Kill()
		}
		s.launcher.Cleanup()
		s.logger.Info("Browser session closed")
	})
	return s.closeErr
}
