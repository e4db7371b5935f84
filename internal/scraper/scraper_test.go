package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobs-scraper/internal/config"
	"jobs-scraper/internal/exporter"
	"jobs-scraper/internal/extract"
	"jobs-scraper/internal/logging"
	"jobs-scraper/pkg/models"
	"jobs-scraper/pkg/utils"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

// fakeSession serves one slice of fragments per navigation
type fakeSession struct {
	pages           [][]string
	navigateErr     error
	clickErr        error
	panicOnListings bool

	visited []string
	clicks  int
	closes  int
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	if f.navigateErr != nil {
		return f.navigateErr
	}
	f.visited = append(f.visited, url)
	return nil
}

func (f *fakeSession) Click(context.Context, string, string, time.Duration) error {
	f.clicks++
	return f.clickErr
}

func (f *fakeSession) Listings(_ context.Context, selector string, _ time.Duration) ([]string, error) {
	if f.panicOnListings {
		panic("element lookup exploded")
	}
	i := len(f.visited) - 1
	if i < 0 || i >= len(f.pages) || len(f.pages[i]) == 0 {
		return nil, utils.NewNavigationTimeoutError(selector, errors.New("deadline"))
	}
	return f.pages[i], nil
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

type failingSink struct{}

func (failingSink) Write([]string, [][]string) (*exporter.Result, error) {
	return nil, exporter.ErrWrite
}

func listing(title, company, city, salary string) string {
	html := `<div class="result-item"><h2><a class="js-offer-title" href="/co/ofertas-trabajo/` +
		fmt.Sprintf("%x", title) + `">` + title + `</a></h2>`
	if salary != "" {
		html += `<span class="info-salary">` + salary + `</span>`
	}
	if city != "" {
		html += `<span class="info-city">` + city + `</span>`
	}
	if company != "" {
		html += `<span class="info-company-name">` + company + `</span>`
	}
	return html + `</div>`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Scraper.PageDelay = 0
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func dailyConfig(t *testing.T) *config.Config {
	cfg := testConfig(t)
	cfg.Scraper.Paginate = false
	cfg.Scraper.MaxListings = 5
	cfg.Output.Naming = config.NamingDaily
	cfg.Output.FilePrefix = "ofertas"
	cfg.Output.Schema = models.SchemaFull
	cfg.Output.Delimiter = "|"
	cfg.Output.LatestAlias = false
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, session *fakeSession, sink Sink) *Scraper {
	t.Helper()
	extractor := extract.NewExtractor(cfg.Scraper.Selectors, cfg.Scraper.SalarySentinel, cfg.Scraper.BaseURL).
		WithClock(func() time.Time { return fixedNow })
	if sink == nil {
		sink = exporter.NewCSVWriter(exporter.OptionsFromConfig(cfg), logging.Nop()).
			WithClock(func() time.Time { return fixedNow })
	}
	open := func(context.Context) (Session, error) { return session, nil }

	s, err := New(cfg, open, extractor, sink, logging.Nop())
	require.NoError(t, err)
	return s.WithClock(func() time.Time { return fixedNow })
}

func readRows(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_SalarySentinelForMissingSalaries(t *testing.T) {
	cfg := dailyConfig(t)
	session := &fakeSession{pages: [][]string{{
		listing("Analyst I", "Acme", "Bogotá", "$2.500.000"),
		listing("Cook", "Fonda", "Medellín", ""),
		listing("Driver III", "Rutas", "Cali", ""),
	}}}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, report.State)
	assert.True(t, report.Succeeded())
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, session.closes)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "ofertas_2026-10-14.csv"), report.OutputPath)

	rows := readRows(t, report.OutputPath, '|')
	require.Len(t, rows, 4)
	assert.Equal(t, models.FullSchema.Headers(), rows[0])

	for _, row := range rows {
		assert.Len(t, row, len(models.FullSchema.Columns))
	}

	const title, salary, city, date, company = 1, 2, 3, 4, 15
	assert.Equal(t, "Analyst I", rows[1][title])
	assert.Equal(t, "$2.500.000", rows[1][salary])
	assert.Equal(t, "No especificado", rows[2][salary])
	assert.Equal(t, "No especificado", rows[3][salary])
	assert.Equal(t, "Bogotá", rows[1][city])
	assert.Equal(t, "Rutas", rows[3][company])
	assert.Equal(t, "2026-10-14", rows[2][date])

	ids := map[string]bool{rows[1][0]: true, rows[2][0]: true, rows[3][0]: true}
	assert.Len(t, ids, 3)
}

func TestRun_CapsListings(t *testing.T) {
	cfg := dailyConfig(t)
	var page []string
	for i := 1; i <= 7; i++ {
		page = append(page, listing(fmt.Sprintf("Job %d", i), "Acme", "Cali", ""))
	}
	session := &fakeSession{pages: [][]string{page}}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Records)
	rows := readRows(t, report.OutputPath, '|')
	assert.Len(t, rows, 6)
	assert.Equal(t, "Job 5", rows[5][1])
}

func TestRun_NoListingsWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	session := &fakeSession{}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, utils.ErrPersistenceSkipped)
	assert.Equal(t, StateNoData, report.State)
	assert.False(t, report.Succeeded())
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, session.closes)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ClosesSessionWhenNavigationFails(t *testing.T) {
	cfg := testConfig(t)
	session := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())

	assert.ErrorIs(t, err, utils.ErrPersistenceSkipped)
	assert.Equal(t, 0, report.Pages)
	assert.Equal(t, 1, session.closes)
}

func TestRun_ClosesSessionWhenScrapePanics(t *testing.T) {
	cfg := testConfig(t)
	session := &fakeSession{pages: [][]string{{listing("Cook", "Fonda", "Cali", "")}}, panicOnListings: true}
	s := newTestScraper(t, cfg, session, nil)

	assert.Panics(t, func() { _, _ = s.Run(context.Background()) })
	assert.Equal(t, 1, session.closes)
}

func TestRun_SessionErrorIsFatal(t *testing.T) {
	cfg := testConfig(t)
	open := func(context.Context) (Session, error) { return nil, errors.New("chrome not found") }
	s, err := New(cfg, open, extract.NewExtractor(cfg.Scraper.Selectors, "", cfg.Scraper.BaseURL), failingSink{}, logging.Nop())
	require.NoError(t, err)

	report, err := s.Run(context.Background())

	assert.ErrorIs(t, err, utils.ErrSession)
	assert.Equal(t, StateSessionError, report.State)
	assert.Zero(t, report.Pages)
}

func TestRun_PaginatesUntilEmptyPage(t *testing.T) {
	cfg := testConfig(t)
	session := &fakeSession{pages: [][]string{
		{listing("Analyst I", "Acme", "Bogotá", ""), listing("Cook", "Fonda", "Cali", "")},
		{listing("Driver III", "Rutas", "Cali", "$1.800.000")},
		{},
	}}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, []string{
		"https://www.elempleo.com/co/ofertas-empleo?page=1",
		"https://www.elempleo.com/co/ofertas-empleo?page=2",
		"https://www.elempleo.com/co/ofertas-empleo?page=3",
	}, session.visited)
	assert.Equal(t, 1, session.clicks, "consent is only handled on the first page")

	rows := readRows(t, report.OutputPath, ',')
	require.Len(t, rows, 4)
	assert.Equal(t, models.CompactSchema.Headers(), rows[0])
	assert.Equal(t, []string{"20261014093000-1", "20261014093000-2", "20261014093000-3"},
		[]string{rows[1][0], rows[2][0], rows[3][0]})
	assert.Equal(t, "https://www.elempleo.com/co/ofertas-trabajo/"+fmt.Sprintf("%x", "Cook"), rows[2][6])

	latest := readRows(t, report.LatestPath, ',')
	assert.Equal(t, rows, latest)
}

func TestRun_StopsAtPageCeiling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.MaxPages = 3
	var pages [][]string
	for i := 0; i < 10; i++ {
		pages = append(pages, []string{listing(fmt.Sprintf("Job %d", i), "Acme", "Cali", "")})
	}
	session := &fakeSession{pages: pages}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 3, report.Records)
	assert.Len(t, session.visited, 3)
}

func TestRun_SkipsListingsMissingRequiredFields(t *testing.T) {
	cfg := dailyConfig(t)
	session := &fakeSession{pages: [][]string{{
		listing("Analyst I", "Acme", "Bogotá", ""),
		listing("Cook", "", "Cali", ""),
		listing("Driver III", "Rutas", "", ""),
	}}}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 2, report.Skipped)
}

func TestRun_ConsentFailureIsIgnored(t *testing.T) {
	cfg := dailyConfig(t)
	session := &fakeSession{
		pages:    [][]string{{listing("Cook", "Fonda", "Cali", "")}},
		clickErr: errors.New("no consent button"),
	}

	report, err := newTestScraper(t, cfg, session, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, session.clicks)
	assert.Equal(t, 1, report.Records)
}

func TestRun_PersistFailure(t *testing.T) {
	cfg := dailyConfig(t)
	session := &fakeSession{pages: [][]string{{listing("Cook", "Fonda", "Cali", "")}}}

	report, err := newTestScraper(t, cfg, session, failingSink{}).Run(context.Background())

	assert.ErrorIs(t, err, exporter.ErrWrite)
	assert.Equal(t, StatePersistFailed, report.State)
	assert.Equal(t, 1, session.closes)
}

func TestRun_CancelledContextStopsBeforeScraping(t *testing.T) {
	cfg := testConfig(t)
	session := &fakeSession{pages: [][]string{{listing("Cook", "Fonda", "Cali", "")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestScraper(t, cfg, session, nil).Run(ctx)

	assert.ErrorIs(t, err, utils.ErrPersistenceSkipped)
	assert.Empty(t, session.visited)
	assert.Equal(t, 1, session.closes)
	assert.Equal(t, StateNoData, report.State)
}

func TestNew_RejectsUnknownSchema(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Schema = "wide"

	_, err := New(cfg, nil, nil, nil, logging.Nop())
	assert.Error(t, err)
}
