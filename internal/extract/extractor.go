package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobs-scraper/internal/config"
	"jobs-scraper/pkg/models"
)

// Extractor turns one listing element's HTML into a JobListing
type Extractor struct {
	selectors      config.Selectors
	salarySentinel string
	baseURL        *url.URL
	now            func() time.Time
}

// NewExtractor creates an extractor; baseURL resolves relative detail links
func NewExtractor(selectors config.Selectors, salarySentinel, baseURL string) *Extractor {
	if salarySentinel == "" {
		salarySentinel = models.DefaultSalarySentinel
	}
	base, _ := url.Parse(baseURL)
	return &Extractor{
		selectors:      selectors,
		salarySentinel: salarySentinel,
		baseURL:        base,
		now:            time.Now,
	}
}

// WithClock replaces the clock used for the posting date fallback
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract reads the fields of a single listing.
// Title, company and city are required; salary, posting date and detail link degrade to sentinels.
func (e *Extractor) Extract(fragment, id string) (models.JobListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return models.JobListing{}, fmt.Errorf("failed to parse listing HTML: %w", err)
	}
	root := doc.Selection

	title, err := Required(root, e.selectors.Title, "title")
	if err != nil {
		return models.JobListing{}, err
	}
	company, err := Required(root, e.selectors.Company, "company")
	if err != nil {
		return models.JobListing{}, err
	}
	city, err := Required(root, e.selectors.City, "city")
	if err != nil {
		return models.JobListing{}, err
	}

	return models.JobListing{
		ID:          id,
		Title:       title,
		CompanyName: company,
		City:        city,
		Salary:      Optional(root, e.selectors.Salary).Or(e.salarySentinel),
		PostedDate:  Optional(root, e.selectors.PostedDate).Or(e.now().Format(models.DateLayout)),
		Detail:      e.resolve(Attr(root, e.selectors.DetailLink, "href")),
	}, nil
}

func (e *Extractor) resolve(link Field) string {
	if !link.Present {
		return ""
	}
	ref, err := url.Parse(link.Value)
	if err != nil || e.baseURL == nil {
		return link.Value
	}
	return e.baseURL.ResolveReference(ref).String()
}
