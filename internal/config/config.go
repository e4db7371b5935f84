package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Naming policies for output files
const (
	NamingTimestamp = "timestamp"
	NamingDaily     = "daily"
)

// Selectors are CSS selectors evaluated inside one listing element
type Selectors struct {
	Title      string `yaml:"title" validate:"required"`
	Company    string `yaml:"company" validate:"required"`
	City       string `yaml:"city" validate:"required"`
	Salary     string `yaml:"salary"`
	PostedDate string `yaml:"posted_date"`
	DetailLink string `yaml:"detail_link"`
}

// LogAdapterConfig configures one logging adapter
type LogAdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type" validate:"oneof=stdout file"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Scraper struct {
		BaseURL     string `yaml:"base_url" validate:"required,url"`
		PageParam   string `yaml:"page_param" validate:"required_if=Paginate true"`
		Paginate    bool   `yaml:"paginate"`
		StartPage   int    `yaml:"start_page" validate:"gte=0"`
		MaxPages    int    `yaml:"max_pages" validate:"gte=0"` // 0 means no ceiling
		MaxListings int    `yaml:"max_listings" validate:"gte=0"`

		ListingSelector string    `yaml:"listing_selector" validate:"required"`
		Selectors       Selectors `yaml:"selectors"`

		ConsentSelector string        `yaml:"consent_selector"`
		ConsentPattern  string        `yaml:"consent_pattern"`
		ConsentTimeout  time.Duration `yaml:"consent_timeout" validate:"gte=0"`

		NavigationTimeout time.Duration `yaml:"navigation_timeout" validate:"gt=0"`
		WaitTimeout       time.Duration `yaml:"wait_timeout" validate:"gt=0"`
		PollInterval      time.Duration `yaml:"poll_interval" validate:"gt=0"`
		SettleDelay       time.Duration `yaml:"settle_delay" validate:"gte=0"`
		PageDelay         time.Duration `yaml:"page_delay" validate:"gte=0"`
		RunTimeout        time.Duration `yaml:"run_timeout" validate:"gte=0"` // 0 means unbounded

		SalarySentinel string `yaml:"salary_sentinel"`
	} `yaml:"scraper"`

	Browser struct {
		HeadlessMode bool   `yaml:"headless_mode"`
		StealthMode  bool   `yaml:"stealth_mode"`
		NoSandbox    bool   `yaml:"no_sandbox"`
		UserAgent    string `yaml:"user_agent"`
		BinPath      string `yaml:"bin_path"`
		WindowWidth  int    `yaml:"window_width" validate:"gt=0"`
		WindowHeight int    `yaml:"window_height" validate:"gt=0"`
	} `yaml:"browser"`

	Output struct {
		Dir         string `yaml:"dir" validate:"required"`
		FilePrefix  string `yaml:"file_prefix" validate:"required"`
		Naming      string `yaml:"naming" validate:"oneof=timestamp daily"`
		Schema      string `yaml:"schema" validate:"oneof=full compact"`
		Delimiter   string `yaml:"delimiter" validate:"required"`
		LatestAlias bool   `yaml:"latest_alias"`
		LatestName  string `yaml:"latest_name" validate:"required_if=LatestAlias true"`
	} `yaml:"output"`

	Logging struct {
		Level    string             `yaml:"level"`
		Format   string             `yaml:"format" validate:"oneof=json text"`
		Adapters []LogAdapterConfig `yaml:"adapters" validate:"dive"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file overrides it
func Default() *Config {
	config := &Config{}

	config.Scraper.BaseURL = "https://www.elempleo.com/co/ofertas-empleo"
	config.Scraper.PageParam = "page"
	config.Scraper.Paginate = true
	config.Scraper.StartPage = 1
	config.Scraper.MaxPages = 50
	config.Scraper.ListingSelector = "div[class*='result-item']"
	config.Scraper.Selectors = Selectors{
		Title:      "[class*='js-offer-title']",
		Company:    "[class*='company-name'], [class*='info-company']",
		City:       "[class*='info-city'], [class*='city']",
		Salary:     "[class*='info-salary'], [class*='salary']",
		PostedDate: "[class*='publish-date'], [class*='info-date']",
		DetailLink: "a[href*='/ofertas-trabajo/'], a[class*='js-offer-title']",
	}
	config.Scraper.ConsentSelector = "button, a"
	config.Scraper.ConsentPattern = "/Aceptar|Accept/i"
	config.Scraper.ConsentTimeout = 10 * time.Second
	config.Scraper.NavigationTimeout = 30 * time.Second
	config.Scraper.WaitTimeout = 10 * time.Second
	config.Scraper.PollInterval = 250 * time.Millisecond
	config.Scraper.PageDelay = 2 * time.Second

	config.Browser.HeadlessMode = true
	config.Browser.NoSandbox = true
	config.Browser.WindowWidth = 1920
	config.Browser.WindowHeight = 1080

	config.Output.Dir = "datos"
	config.Output.FilePrefix = "jobs"
	config.Output.Naming = NamingTimestamp
	config.Output.Schema = "compact"
	config.Output.Delimiter = ","
	config.Output.LatestAlias = true
	config.Output.LatestName = "latest.csv"

	config.Logging.Level = "info"
	config.Logging.Format = "text"

	return config
}

// expandEnvVars expands ${VAR} and $VAR references, leaving unknown variables untouched
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(match, "$"), "{"), "}")
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error; the defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if baseURL := os.Getenv("SCRAPER_BASE_URL"); baseURL != "" {
		c.Scraper.BaseURL = baseURL
	}

	if paginate := os.Getenv("SCRAPER_PAGINATE"); paginate != "" {
		c.Scraper.Paginate = paginate == "true" || paginate == "1"
	}

	if maxPages := os.Getenv("SCRAPER_MAX_PAGES"); maxPages != "" {
		if n, err := strconv.Atoi(maxPages); err == nil {
			c.Scraper.MaxPages = n
		}
	}

	if maxListings := os.Getenv("SCRAPER_MAX_LISTINGS"); maxListings != "" {
		if n, err := strconv.Atoi(maxListings); err == nil {
			c.Scraper.MaxListings = n
		}
	}

	if waitTimeout := os.Getenv("SCRAPER_WAIT_TIMEOUT"); waitTimeout != "" {
		if d, err := time.ParseDuration(waitTimeout); err == nil {
			c.Scraper.WaitTimeout = d
		}
	}

	if runTimeout := os.Getenv("SCRAPER_RUN_TIMEOUT"); runTimeout != "" {
		if d, err := time.ParseDuration(runTimeout); err == nil {
			c.Scraper.RunTimeout = d
		}
	}

	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.HeadlessMode = headless == "true" || headless == "1"
	}

	if stealthMode := os.Getenv("BROWSER_STEALTH"); stealthMode != "" {
		c.Browser.StealthMode = stealthMode == "true" || stealthMode == "1"
	}

	if userAgent := os.Getenv("BROWSER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}

	if outputDir := os.Getenv("OUTPUT_DIR"); outputDir != "" {
		c.Output.Dir = outputDir
	}

	if naming := os.Getenv("OUTPUT_NAMING"); naming != "" {
		c.Output.Naming = naming
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}
}

var validate = validator.New()

// Validate checks struct constraints and the single-rune delimiter
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if utf8.RuneCountInString(c.Output.Delimiter) != 1 {
		return fmt.Errorf("invalid configuration: output.delimiter must be a single character, got %q", c.Output.Delimiter)
	}
	return nil
}

// DelimiterRune returns the output delimiter as a rune
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Output.Delimiter)
	return r
}
