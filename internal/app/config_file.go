package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Output struct {
		Dir      string `yaml:"dir" json:"dir"`
		Markdown bool   `yaml:"markdown" json:"markdown"`
		PDF      bool   `yaml:"pdf" json:"pdf"`
		PDFFont  string `yaml:"pdfFont" json:"pdfFont"`
	} `yaml:"output" json:"output"`

	Profiles string `yaml:"profiles" json:"profiles"`

	Fetch struct {
		UserAgent       string   `yaml:"userAgent" json:"userAgent"`
		AcceptLanguage  string   `yaml:"acceptLanguage" json:"acceptLanguage"`
		Timeout         Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts     int      `yaml:"maxAttempts" json:"maxAttempts"`
		RetryWait       Duration `yaml:"retryWait" json:"retryWait"`
		ContentAttempts int      `yaml:"contentAttempts" json:"contentAttempts"`
		Concurrency     int      `yaml:"concurrency" json:"concurrency"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string   `yaml:"dir" json:"dir"`
		MaxAge      Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool     `yaml:"clear" json:"clear"`
		StrictPerms bool     `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64    `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int      `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration accepts Go duration strings such as "30s" in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.parse(n.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. Call it on the
// defaults before env and flags are applied.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v Duration) {
		if v > 0 {
			*dst = time.Duration(v)
		}
	}
	str(&cfg.OutputDir, fc.Output.Dir)
	cfg.Markdown = cfg.Markdown || fc.Output.Markdown
	cfg.PDF = cfg.PDF || fc.Output.PDF
	str(&cfg.PDFFont, fc.Output.PDFFont)
	str(&cfg.Profiles, fc.Profiles)

	str(&cfg.UserAgent, fc.Fetch.UserAgent)
	str(&cfg.AcceptLanguage, fc.Fetch.AcceptLanguage)
	dur(&cfg.Timeout, fc.Fetch.Timeout)
	num(&cfg.MaxAttempts, fc.Fetch.MaxAttempts)
	dur(&cfg.RetryWait, fc.Fetch.RetryWait)
	num(&cfg.ContentAttempts, fc.Fetch.ContentAttempts)
	num(&cfg.Concurrency, fc.Fetch.Concurrency)

	str(&cfg.CacheDir, fc.Cache.Dir)
	dur(&cfg.CacheMaxAge, fc.Cache.MaxAge)
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	if fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	num(&cfg.CacheMaxEntries, fc.Cache.MaxEntries)

	cfg.Verbose = cfg.Verbose || fc.Verbose
}
