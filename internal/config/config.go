package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Production and test endpoints for the hosted checkout and transaction API.
const (
	DefaultCheckoutURL     = "https://pay.quickbytes.exchange"
	DefaultAPIURL          = "https://api.quickbytes.exchange"
	TestCheckoutURL        = "https://test.pay.quickbytes.exchange"
	TestAPIURL             = "https://test.api.quickbytes.exchange"
	defaultPopupFeatures   = "resizable=yes,scrollbars=yes,status=yes"
	defaultVerifyRate      = "120-M"
	defaultBreakerMinReqs  = 5
	defaultBreakerRatio    = 0.5
	defaultBreakerOpenSecs = 30
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	TestMode           bool
	CheckoutURL        string
	APIURL             string
	PopupWidth         int
	PopupHeight        int
	PopupFeatures      string
	PollInterval       time.Duration
	VerifyTimeout      time.Duration
	VerifyRate         string
	BreakerMinRequests int
	BreakerRatio       float64
	BreakerOpenFor     time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	testMode := parseBool(k.String("QB_TEST_MODE"))
	checkoutURL, apiURL := ResolveEndpoints(testMode, k.String("QB_CHECKOUT_URL"), k.String("QB_API_URL"))

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		TestMode:           testMode,
		CheckoutURL:        checkoutURL,
		APIURL:             apiURL,
		PopupWidth:         parseInt(k.String("QB_POPUP_WIDTH"), 600),
		PopupHeight:        parseInt(k.String("QB_POPUP_HEIGHT"), 800),
		PopupFeatures:      valueOrDefault(k.String("QB_POPUP_FEATURES"), defaultPopupFeatures),
		PollInterval:       parseDuration(k.String("QB_POLL_INTERVAL"), "1s"),
		VerifyTimeout:      parseDuration(k.String("QB_VERIFY_TIMEOUT"), "5s"),
		VerifyRate:         valueOrDefault(k.String("QB_VERIFY_RATE"), defaultVerifyRate),
		BreakerMinRequests: parseInt(k.String("QB_BREAKER_MIN_REQUESTS"), defaultBreakerMinReqs),
		BreakerRatio:       parseFloat(k.String("QB_BREAKER_RATIO"), defaultBreakerRatio),
		BreakerOpenFor:     parseDuration(k.String("QB_BREAKER_OPEN_FOR"), fmt.Sprintf("%ds", defaultBreakerOpenSecs)),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
	}

	return cfg, nil
}

// ResolveEndpoints returns the checkout and API base URLs for the given mode.
// Explicit overrides always win; otherwise test mode selects the test pair.
func ResolveEndpoints(testMode bool, checkoutURL, apiURL string) (string, string) {
	checkout := strings.TrimSpace(checkoutURL)
	api := strings.TrimSpace(apiURL)
	if checkout == "" {
		if testMode {
			checkout = TestCheckoutURL
		} else {
			checkout = DefaultCheckoutURL
		}
	}
	if api == "" {
		if testMode {
			api = TestAPIURL
		} else {
			api = DefaultAPIURL
		}
	}
	return checkout, api
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
