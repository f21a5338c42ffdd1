package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Output
	OutputDir string
	Markdown  bool
	PDF       bool
	PDFFont   string

	// Profiles is an optional YAML file adding or overriding site profiles.
	Profiles string

	// Fetching
	UserAgent       string
	AcceptLanguage  string
	Timeout         time.Duration
	MaxAttempts     int
	RetryWait       time.Duration
	ContentAttempts int
	Concurrency     int

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxBytes    int64
	CacheMaxEntries  int

	Verbose bool
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		OutputDir:       "output",
		Timeout:         30 * time.Second,
		MaxAttempts:     3,
		RetryWait:       time.Second,
		ContentAttempts: 3,
		Concurrency:     4,
		CacheDir:        ".newsextract-cache",
	}
}

// withDefaults fills zero numeric fields so a partially built Config is
// still usable.
func (c Config) withDefaults() Config {
	d := Defaults()
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryWait <= 0 {
		c.RetryWait = d.RetryWait
	}
	if c.ContentAttempts <= 0 {
		c.ContentAttempts = d.ContentAttempts
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	return c
}
