package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"jobs-scraper/internal/config"
	"jobs-scraper/internal/logging"
	"jobs-scraper/pkg/models"
	"jobs-scraper/pkg/utils"
)

// Scraper runs the acquire, scrape, persist, release workflow
type Scraper struct {
	cfg       *config.Config
	open      Opener
	extractor Extractor
	sink      Sink
	schema    models.Schema
	pacer     *rate.Limiter
	logger    logging.Logger
	now       func() time.Time
}

// New creates a scraper. The output schema is resolved from cfg.Output.Schema.
func New(cfg *config.Config, open Opener, extractor Extractor, sink Sink, logger logging.Logger) (*Scraper, error) {
	schema, err := models.SchemaByName(cfg.Output.Schema)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.Scraper.PageDelay > 0 {
		limit = rate.Every(cfg.Scraper.PageDelay)
	}

	return &Scraper{
		cfg:       cfg,
		open:      open,
		extractor: extractor,
		sink:      sink,
		schema:    schema,
		pacer:     rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// WithClock replaces the clock used for run stamps
func (s *Scraper) WithClock(now func() time.Time) *Scraper {
	s.now = now
	return s
}

// Run performs one run. The session is released exactly once, before
// persisting, on every path out of the scrape. The returned report is never nil.
func (s *Scraper) Run(ctx context.Context) (*RunReport, error) {
	began := time.Now()
	start := s.now()
	report := &RunReport{RunID: utils.GenerateRunID(), StartedAt: start, State: StateIdle}
	logger := s.logger.WithField("run_id", report.RunID)
	defer func() { report.Duration = time.Since(began) }()

	if s.cfg.Scraper.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Scraper.RunTimeout)
		defer cancel()
	}

	logger.Info("Starting job scraping", map[string]interface{}{
		"base_url": s.cfg.Scraper.BaseURL,
		"paginate": s.cfg.Scraper.Paginate,
	})

	session, err := s.open(ctx)
	if err != nil {
		report.State = StateSessionError
		if !errors.Is(err, utils.ErrSession) {
			err = utils.NewSessionError(err)
		}
		logger.Error("Failed to start browser session", map[string]interface{}{
			"error": err.Error(),
		})
		return report, err
	}
	report.State = StateSessionActive

	listings := s.collect(ctx, session, start, report, logger)
	report.State = StateSessionClosed

	if len(listings) == 0 {
		report.State = StateNoData
		logger.Warn("No listings scraped, nothing persisted", map[string]interface{}{
			"pages": report.Pages,
		})
		return report, utils.NewPersistenceSkippedError("no listings scraped")
	}

	result, err := s.sink.Write(s.schema.Headers(), s.schema.Rows(listings))
	if err != nil {
		report.State = StatePersistFailed
		logger.Error("Failed to persist listings", map[string]interface{}{
			"records": len(listings),
			"error":   err.Error(),
		})
		return report, fmt.Errorf("failed to persist listings: %w", err)
	}

	report.State = StatePersisted
	report.Records = result.Rows
	report.OutputPath = result.Path
	report.LatestPath = result.LatestPath

	logger.Info("Job scraping completed", map[string]interface{}{
		"records":  report.Records,
		"skipped":  report.Skipped,
		"pages":    report.Pages,
		"output":   report.OutputPath,
		"duration": utils.FormatDuration(time.Since(began)),
	})
	return report, nil
}

// collect scrapes pages until a stop condition and always closes the session
func (s *Scraper) collect(ctx context.Context, session Session, start time.Time, report *RunReport, logger logging.Logger) []models.JobListing {
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close browser session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	var listings []models.JobListing
	page := s.cfg.Scraper.StartPage

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("Run interrupted", map[string]interface{}{"error": err.Error()})
			break
		}
		if ceiling := s.cfg.Scraper.MaxPages; s.cfg.Scraper.Paginate && ceiling > 0 && report.Pages >= ceiling {
			logger.Warn("Page ceiling reached, stopping", map[string]interface{}{"max_pages": ceiling})
			break
		}
		if err := s.pacer.Wait(ctx); err != nil {
			logger.Warn("Run interrupted", map[string]interface{}{"error": err.Error()})
			break
		}

		pageURL, err := s.pageURL(page)
		if err != nil {
			logger.Error("Invalid page URL", map[string]interface{}{"error": err.Error()})
			break
		}
		pageLog := logger.WithFields(map[string]interface{}{"page": page, "url": pageURL})
		pageLog.Info("Scraping page")

		if err := s.navigateAndWait(ctx, session, pageURL); err != nil {
			pageLog.Error("Navigation failed, stopping", map[string]interface{}{"error": err.Error()})
			break
		}
		if report.Pages == 0 {
			s.dismissCookieConsent(ctx, session, pageLog)
		}
		report.Pages++

		fragments := s.extractListings(ctx, session, pageLog)
		if len(fragments) == 0 {
			pageLog.Info("No listings on page, stopping")
			break
		}

		for i, fragment := range fragments {
			listing, err := s.extractor.Extract(fragment, models.ListingID(start, len(listings)+1))
			if err != nil {
				report.Skipped++
				pageLog.Warn("Skipping listing", map[string]interface{}{
					"index": i,
					"error": err.Error(),
				})
				continue
			}
			listings = append(listings, listing)
		}
		pageLog.Debug("Page scraped", map[string]interface{}{
			"found": len(fragments),
			"total": len(listings),
		})

		if !s.cfg.Scraper.Paginate {
			break
		}
		page++
	}

	return listings
}

// pageURL returns the base URL, with the page parameter set when paginating
func (s *Scraper) pageURL(page int) (string, error) {
	if !s.cfg.Scraper.Paginate {
		return s.cfg.Scraper.BaseURL, nil
	}
	u, err := url.Parse(s.cfg.Scraper.BaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(s.cfg.Scraper.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Scraper) navigateAndWait(ctx context.Context, session Session, pageURL string) error {
	return session.Navigate(ctx, pageURL)
}

// dismissCookieConsent is best effort: every failure, including a panic, is logged and ignored
func (s *Scraper) dismissCookieConsent(ctx context.Context, session Session, logger logging.Logger) {
	if s.cfg.Scraper.ConsentSelector == "" || s.cfg.Scraper.ConsentPattern == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Cookie consent handling panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
		}
	}()

	err := session.Click(ctx, s.cfg.Scraper.ConsentSelector, s.cfg.Scraper.ConsentPattern, s.cfg.Scraper.ConsentTimeout)
	if err != nil {
		logger.Debug("No cookie consent control dismissed", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Info("Dismissed cookie consent")
}

// extractListings returns the listing fragments on the current page, capped at MaxListings.
// A wait timeout or lookup failure yields an empty result.
func (s *Scraper) extractListings(ctx context.Context, session Session, logger logging.Logger) []string {
	fragments, err := session.Listings(ctx, s.cfg.Scraper.ListingSelector, s.cfg.Scraper.WaitTimeout)
	if err != nil {
		if errors.Is(err, utils.ErrNavigationTimeout) {
			logger.Info("No listings appeared before timeout", map[string]interface{}{
				"timeout": s.cfg.Scraper.WaitTimeout.String(),
			})
		} else {
			logger.Warn("Failed to locate listings", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}

	if limit := s.cfg.Scraper.MaxListings; limit > 0 && len(fragments) > limit {
		logger.Debug("Capping listings", map[string]interface{}{
			"found": len(fragments),
			"cap":   limit,
		})
		fragments = fragments[:limit]
	}
	return fragments
}
