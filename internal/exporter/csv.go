package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"jobs-scraper/internal/config"
	"jobs-scraper/internal/logging"
	"jobs-scraper/pkg/models"
)

// Sentinel errors to allow precise mapping by callers
var (
	ErrNothingToWrite = errors.New("nothing_to_write")
	ErrLock           = errors.New("lock_failed")
	ErrWrite          = errors.New("write_failed")
)

// Options configures a CSVWriter
type Options struct {
	Dir         string
	FilePrefix  string
	Naming      string
	Delimiter   rune
	LatestAlias bool
	LatestName  string
}

// OptionsFromConfig maps the output section of the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:         cfg.Output.Dir,
		FilePrefix:  cfg.Output.FilePrefix,
		Naming:      cfg.Output.Naming,
		Delimiter:   cfg.DelimiterRune(),
		LatestAlias: cfg.Output.LatestAlias,
		LatestName:  cfg.Output.LatestName,
	}
}

// Result describes what a Write produced
type Result struct {
	Path          string
	LatestPath    string
	Rows          int
	HeaderWritten bool
}

// CSVWriter appends rows to delimited files named by the configured policy
type CSVWriter struct {
	opts   Options
	now    func() time.Time
	logger logging.Logger
}

// NewCSVWriter creates a writer
func NewCSVWriter(opts Options, logger logging.Logger) *CSVWriter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVWriter{opts: opts, now: time.Now, logger: logger}
}

// WithClock replaces the clock used for file naming
func (w *CSVWriter) WithClock(now func() time.Time) *CSVWriter {
	w.now = now
	return w
}

// FileName returns the data file name for the given time
func (w *CSVWriter) FileName(t time.Time) string {
	if w.opts.Naming == config.NamingDaily {
		return fmt.Sprintf("%s_%s.csv", w.opts.FilePrefix, t.Format(models.DateLayout))
	}
	return fmt.Sprintf("%s_%s.csv", w.opts.FilePrefix, t.Format("20060102_150405"))
}

// Write appends rows to the current data file, writing the header only when
// the file is new, and refreshes the latest alias when enabled. Only the data
// file decides success; Result.LatestPath is empty when the alias was not refreshed.
// With no rows nothing is created or modified.
func (w *CSVWriter) Write(headers []string, rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToWrite
	}

	if err := os.MkdirAll(w.opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	path := filepath.Join(w.opts.Dir, w.FileName(w.now()))

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLock, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("Failed to release output lock", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}()

	headerWritten, err := w.appendRows(path, headers, rows)
	if err != nil {
		return nil, err
	}

	result := &Result{Path: path, Rows: len(rows), HeaderWritten: headerWritten}

	if w.opts.LatestAlias {
		latest := filepath.Join(w.opts.Dir, w.opts.LatestName)
		// the rows are already in the data file; a stale alias must not fail the write
		if err := w.replace(latest, headers, rows); err != nil {
			w.logger.Warn("Failed to refresh latest alias", map[string]interface{}{
				"path":  latest,
				"error": err.Error(),
			})
		} else {
			result.LatestPath = latest
		}
	}

	w.logger.Info("Saved listings", map[string]interface{}{
		"path":   path,
		"rows":   len(rows),
		"header": headerWritten,
	})

	return result, nil
}

func (w *CSVWriter) appendRows(path string, headers []string, rows [][]string) (bool, error) {
	_, err := os.Stat(path)
	isNew := os.IsNotExist(err)
	if err != nil && !isNew {
		return false, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	var header []string
	if isNew {
		header = headers
	}
	payload, err := w.encode(header, rows)
	if err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return false, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return isNew, nil
}

// replace atomically swaps path for a file holding only this write
func (w *CSVWriter) replace(path string, headers []string, rows [][]string) error {
	payload, err := w.encode(headers, rows)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".latest-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// encode renders an optional header followed by rows into one buffer
func (w *CSVWriter) encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = w.opts.Delimiter

	if header != nil {
		if err := cw.Write(header); err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrWrite, err)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrWrite, err)
	}
	return buf.Bytes(), nil
}
