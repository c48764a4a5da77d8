package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"leaguecheck/internal/registrant"

	"gopkg.in/yaml.v3"
)

// Config holds all leaguecheck configuration.
type Config struct {
	// What to verify
	LeagueName string `yaml:"league_name"`
	FinderURL  string `yaml:"finder_url"`
	Division   string `yaml:"division"`

	// Inputs and outputs
	DataFile      string `yaml:"data_file"`
	ResultsFile   string `yaml:"results_file"`
	SummaryFile   string `yaml:"summary_file"` // GitHub step summary; empty disables
	ScreenshotDir string `yaml:"screenshot_dir"`

	// Pacing and retry
	PacingDelay      string `yaml:"pacing_delay"`
	RateLimitBackoff string `yaml:"rate_limit_backoff"`
	MaxRetries       int    `yaml:"max_retries"`
	ResultTimeout    string `yaml:"result_timeout"`
	PollInterval     string `yaml:"poll_interval"`

	// Used when a registrant has no usable birthday; the form requires one.
	DefaultBirthMonth int    `yaml:"default_birth_month"`
	DefaultBirthYear  string `yaml:"default_birth_year"`

	Browser BrowserConfig `yaml:"browser"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// SheetsConfig configures the Google Sheets record source.
type SheetsConfig struct {
	ID                  string `yaml:"id"`
	Tab                 string `yaml:"tab"`
	ServiceAccountEmail string `yaml:"service_account_email"`
	PrivateKey          string `yaml:"private_key"`
}

// Enabled reports whether a spreadsheet is configured.
func (s SheetsConfig) Enabled() bool {
	return s.ID != ""
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9090"; empty disables the server
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LeagueName:  "WALNUT CREEK LL",
		FinderURL:   "https://maps.littleleague.org/leaguefinder/",
		DataFile:    "data/kids-2025.json",
		ResultsFile: "results.json",

		PacingDelay:      "30s",
		RateLimitBackoff: "60s",
		MaxRetries:       3,
		ResultTimeout:    "20s",
		PollInterval:     "250ms",

		DefaultBirthMonth: 1,
		DefaultBirthYear:  "2015",

		Browser: DefaultBrowserConfig(),
		Sheets: SheetsConfig{
			Tab: "Player Details",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// ErrConfigExists is returned by Save when the target exists and overwrite
// was not requested.
var ErrConfigExists = errors.New("config file already exists")

const fileHeader = `# leaguecheck configuration.
# Secrets (GOOGLE_PRIVATE_KEY) are read from the environment and never saved.
`

// Save writes the configuration as YAML. The private key is omitted and the
// file is replaced atomically.
func (c *Config) Save(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	out := *c
	out.Sheets.PrivateKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".leaguecheck-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(append([]byte(fileHeader), data...))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEAGUE_NAME"); v != "" {
		c.LeagueName = v
	}
	if v := os.Getenv("DIVISION"); v != "" {
		c.Division = v
	}

	// Sheets credentials usually come from CI secrets
	if v := os.Getenv("GOOGLE_SHEETS_ID"); v != "" {
		c.Sheets.ID = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_TAB"); v != "" {
		c.Sheets.Tab = v
	}
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"); v != "" {
		c.Sheets.ServiceAccountEmail = v
	}
	if v := os.Getenv("GOOGLE_PRIVATE_KEY"); v != "" {
		c.Sheets.PrivateKey = v
	}
	// Secrets stores flatten newlines in PEM keys
	c.Sheets.PrivateKey = strings.ReplaceAll(c.Sheets.PrivateKey, `\n`, "\n")

	if v := os.Getenv("GITHUB_STEP_SUMMARY"); v != "" {
		c.SummaryFile = v
	}
	if v := os.Getenv("LEAGUECHECK_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("LEAGUECHECK_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetPacingDelay returns the wait after each registrant.
func (c *Config) GetPacingDelay() time.Duration {
	return parseDuration(c.PacingDelay, 30*time.Second)
}

// GetRateLimitBackoff returns the wait before a rate-limit retry.
func (c *Config) GetRateLimitBackoff() time.Duration {
	return parseDuration(c.RateLimitBackoff, 60*time.Second)
}

// GetResultTimeout returns how long to wait for a result region.
func (c *Config) GetResultTimeout() time.Duration {
	return parseDuration(c.ResultTimeout, 20*time.Second)
}

// GetPollInterval returns how often result regions are read.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, 250*time.Millisecond)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.LeagueName) == "" {
		errs = append(errs, errors.New("league_name is empty (set LEAGUE_NAME or --league)"))
	}
	if u, err := url.Parse(c.FinderURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("finder_url %q is not an absolute http(s) URL", c.FinderURL))
	}

	for _, d := range []struct{ name, value string }{
		{"pacing_delay", c.PacingDelay},
		{"rate_limit_backoff", c.RateLimitBackoff},
		{"result_timeout", c.ResultTimeout},
		{"poll_interval", c.PollInterval},
	} {
		if err := validDuration(d.name, d.value); err != nil {
			errs = append(errs, err)
		}
	}

	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries))
	}
	if c.DefaultBirthMonth < 1 || c.DefaultBirthMonth > 12 {
		errs = append(errs, fmt.Errorf("default_birth_month must be 1-12, got %d", c.DefaultBirthMonth))
	}
	if !registrant.IsYear(c.DefaultBirthYear) {
		errs = append(errs, fmt.Errorf("default_birth_year must be four digits, got %q", c.DefaultBirthYear))
	}

	if err := c.Browser.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Sheets.Enabled() && (c.Sheets.ServiceAccountEmail == "" || c.Sheets.PrivateKey == "") {
		errs = append(errs, errors.New("sheets id set but service account email or private key missing (set GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY)"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return nil
}
