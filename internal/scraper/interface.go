package scraper

import (
	"context"
	"time"

	"jobs-scraper/internal/exporter"
	"jobs-scraper/pkg/models"
)

// Session is a live browser page the scraper drives
type Session interface {
	// Navigate loads the URL and waits for it to finish loading
	Navigate(ctx context.Context, url string) error

	// Click clicks the first selector match whose text matches textPattern
	Click(ctx context.Context, selector, textPattern string, timeout time.Duration) error

	// Listings waits for selector to match and returns the outer HTML of each match
	Listings(ctx context.Context, selector string, timeout time.Duration) ([]string, error)

	// Close releases the browser
	Close() error
}

// Opener acquires a new Session
type Opener func(ctx context.Context) (Session, error)

// Extractor builds a listing from one element's HTML
type Extractor interface {
	Extract(fragment, id string) (models.JobListing, error)
}

// Sink persists rendered rows
type Sink interface {
	Write(headers []string, rows [][]string) (*exporter.Result, error)
}
