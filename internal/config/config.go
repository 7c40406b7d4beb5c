package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultAPIURL is used when API_URL is not set
const DefaultAPIURL = "https://api.fadr.com"

// ErrMissingAPIKey is returned by Validate when no bearer token is configured
var ErrMissingAPIKey = errors.New("API key not found in environment variables")

// Config holds all application configuration
type Config struct {
	// API settings
	APIKey string `validate:"required"`
	APIURL string `validate:"required,http_url"`

	// Timeouts per HTTP call
	RequestTimeout  time.Duration `validate:"gt=0"`
	UploadTimeout   time.Duration `validate:"gt=0"`
	DownloadTimeout time.Duration `validate:"gt=0"`

	// Polling settings
	PollInterval   time.Duration `validate:"gte=0"`
	MaxAttempts    int           `validate:"gt=0"`
	SubMaxAttempts int           `validate:"gt=0"`

	// Logging
	LogDir string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		RequestTimeout:  30 * time.Second,
		UploadTimeout:   120 * time.Second,
		DownloadTimeout: 60 * time.Second,
		PollInterval:    5 * time.Second,
		MaxAttempts:     60,
		SubMaxAttempts:  30,
		LogDir:          "logs",
	}
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	if apiKey := os.Getenv("FADR_API_KEY"); apiKey != "" {
		c.APIKey = strings.TrimSpace(apiKey)
	}

	if apiURL := os.Getenv("API_URL"); apiURL != "" {
		c.APIURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	}

	if interval := os.Getenv("FADR_POLL_INTERVAL"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil {
			c.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	if attempts := os.Getenv("FADR_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			c.MaxAttempts = a
		}
	}

	if attempts := os.Getenv("FADR_SUB_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			c.SubMaxAttempts = a
		}
	}

	loadSeconds("FADR_REQUEST_TIMEOUT", &c.RequestTimeout)
	loadSeconds("FADR_UPLOAD_TIMEOUT", &c.UploadTimeout)
	loadSeconds("FADR_DOWNLOAD_TIMEOUT", &c.DownloadTimeout)

	if logDir := os.Getenv("FADR_LOG_DIR"); logDir != "" {
		c.LogDir = logDir
	}
}

func loadSeconds(key string, target *time.Duration) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if s, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(s) * time.Second
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q check (got %v)", first.Field(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
