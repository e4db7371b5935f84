package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jobs-scraper/internal/browser"
	"jobs-scraper/internal/config"
	"jobs-scraper/internal/exporter"
	"jobs-scraper/internal/extract"
	"jobs-scraper/internal/logging"
	"jobs-scraper/internal/scraper"
	"jobs-scraper/pkg/utils"
)

func main() {
	os.Exit(run())
}

// run returns the process exit status: 0 when records were persisted, 1 otherwise
func run() int {
	configPath := utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return 1
	}
	defer logging.CloseLogging()
	logger := logging.GetGlobalLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher := browser.NewLauncher(browser.OptionsFromConfig(cfg), logger.WithField("component", "browser"))
	open := func(ctx context.Context) (scraper.Session, error) {
		session, err := launcher.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	extractor := extract.NewExtractor(cfg.Scraper.Selectors, cfg.Scraper.SalarySentinel, cfg.Scraper.BaseURL)
	sink := exporter.NewCSVWriter(exporter.OptionsFromConfig(cfg), logger.WithField("component", "exporter"))

	s, err := scraper.New(cfg, open, extractor, sink, logger.WithField("component", "scraper"))
	if err != nil {
		logger.Error("Failed to create scraper", map[string]interface{}{"error": err.Error()})
		return 1
	}

	report, err := s.Run(ctx)
	if err != nil {
		logger.Error("Scraping failed", map[string]interface{}{
			"state": string(report.State),
			"error": err.Error(),
		})
		fmt.Printf("Scraping failed after %s: %v\n", utils.FormatDuration(report.Duration), err)
		return 1
	}

	fmt.Printf("Scraping completed. Found %d jobs; saved to %s\n", report.Records, report.OutputPath)
	return 0
}
