package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment variable the application reads.
const EnvPrefix = "NEWSEXTRACT_"

func getenv(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over a config file;
// flags are applied after this and win over both.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.PDFFont, "PDF_FONT")
	setString(&cfg.Profiles, "PROFILES")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.AcceptLanguage, "ACCEPT_LANGUAGE")
	setString(&cfg.CacheDir, "CACHE_DIR")

	setInt := func(dst *int, key string) {
		if n, err := strconv.Atoi(getenv(key)); err == nil && n > 0 {
			*dst = n
		}
	}
	setInt(&cfg.MaxAttempts, "MAX_ATTEMPTS")
	setInt(&cfg.ContentAttempts, "CONTENT_ATTEMPTS")
	setInt(&cfg.Concurrency, "CONCURRENCY")
	setInt(&cfg.CacheMaxEntries, "CACHE_MAX_ENTRIES")
	if n, err := strconv.ParseInt(getenv("CACHE_MAX_BYTES"), 10, 64); err == nil && n > 0 {
		cfg.CacheMaxBytes = n
	}

	setDuration := func(dst *time.Duration, key string) {
		if d, err := time.ParseDuration(getenv(key)); err == nil {
			*dst = d
		}
	}
	setDuration(&cfg.Timeout, "TIMEOUT")
	setDuration(&cfg.RetryWait, "RETRY_WAIT")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(getenv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Markdown, "MARKDOWN")
	setBool(&cfg.PDF, "PDF")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.Verbose, "VERBOSE")
}
