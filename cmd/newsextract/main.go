package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/newsextract/internal/aggregate"
	"github.com/hyperifyio/newsextract/internal/app"
	"github.com/hyperifyio/newsextract/internal/profile"
)

// options holds the CLI-only settings that are not part of app.Config.
type options struct {
	configPath string
	envFile    string
	list       bool
	version    bool
	file       string
	stdin      bool
	platform   string
	pageURL    string
	input      string
	urls       []string
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid arguments")
		os.Exit(2)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// parseArgs layers configuration as defaults < config file < env < flags.
func parseArgs(args []string) (app.Config, options, error) {
	var opts options
	fs := flag.NewFlagSet("newsextract", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: newsextract [flags] URL...\n\n")
		fs.PrintDefaults()
	}

	d := app.Defaults()
	var (
		outputDir       = fs.String("o", d.OutputDir, "Output directory for <platform>/<id>.json")
		markdown        = fs.Bool("markdown", false, "Also write a Markdown rendering next to the JSON")
		pdf             = fs.Bool("pdf", false, "Also write a PDF rendering next to the JSON")
		pdfFont         = fs.String("pdf.font", "", "UTF-8 TrueType font for PDF output (needed for CJK text)")
		profiles        = fs.String("profiles", "", "YAML file adding or overriding site profiles")
		userAgent       = fs.String("ua", "", "User-Agent header (default desktop Chrome)")
		acceptLanguage  = fs.String("lang", "", "Accept-Language header")
		timeout         = fs.Duration("timeout", d.Timeout, "Per-request timeout")
		maxAttempts     = fs.Int("attempts", d.MaxAttempts, "Fetch attempts per request")
		retryWait       = fs.Duration("retry.wait", d.RetryWait, "Pause between attempts")
		contentAttempts = fs.Int("content.attempts", d.ContentAttempts, "Refetch attempts while a page parses to no content")
		concurrency     = fs.Int("concurrency", d.Concurrency, "Articles processed in parallel")
		cacheDir        = fs.String("cache.dir", d.CacheDir, "HTTP cache directory; empty disables caching")
		cacheMaxAge     = fs.Duration("cache.maxAge", 0, "Purge cache entries older than this; 0 disables")
		cacheClear      = fs.Bool("cache.clear", false, "Clear cache directory before run")
		cacheStrict     = fs.Bool("cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
		cacheMaxBytes   = fs.Int64("cache.maxBytes", 0, "Evict least recently used pages beyond this many bytes; 0 disables")
		cacheMaxEntries = fs.Int("cache.maxEntries", 0, "Evict least recently used pages beyond this count; 0 disables")
		verbose         = fs.Bool("v", false, "Verbose logging")
	)
	fs.StringVar(&opts.configPath, "config", "", "YAML or JSON config file")
	fs.StringVar(&opts.envFile, "env", ".env", "Dotenv file loaded before reading NEWSEXTRACT_* variables")
	fs.BoolVar(&opts.list, "list", false, "List supported platforms and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.StringVar(&opts.file, "file", "", "Extract from a saved HTML file instead of fetching")
	fs.BoolVar(&opts.stdin, "stdin", false, "Extract from HTML read on stdin instead of fetching")
	fs.StringVar(&opts.platform, "platform", "", "Platform id for -file/-stdin (detected from -url when empty)")
	fs.StringVar(&opts.pageURL, "url", "", "Original page URL for -file/-stdin")
	fs.StringVar(&opts.input, "input", "", "File with one article URL per line, merged with the arguments")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, opts, err
	}
	var listed []string
	if opts.input != "" {
		f, err := os.Open(opts.input)
		if err != nil {
			return app.Config{}, opts, fmt.Errorf("input: %w", err)
		}
		listed, err = aggregate.ReadList(f)
		_ = f.Close()
		if err != nil {
			return app.Config{}, opts, fmt.Errorf("input: %w", err)
		}
	}
	opts.urls = aggregate.MergeAndNormalize(fs.Args(), listed)

	if err := app.LoadEnvFiles(opts.envFile); err != nil {
		return app.Config{}, opts, fmt.Errorf("load %s: %w", opts.envFile, err)
	}
	cfg := app.Defaults()
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return app.Config{}, opts, fmt.Errorf("config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	// Only flags given on the command line override file and env values.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			cfg.OutputDir = *outputDir
		case "markdown":
			cfg.Markdown = *markdown
		case "pdf":
			cfg.PDF = *pdf
		case "pdf.font":
			cfg.PDFFont = *pdfFont
		case "profiles":
			cfg.Profiles = *profiles
		case "ua":
			cfg.UserAgent = *userAgent
		case "lang":
			cfg.AcceptLanguage = *acceptLanguage
		case "timeout":
			cfg.Timeout = *timeout
		case "attempts":
			cfg.MaxAttempts = *maxAttempts
		case "retry.wait":
			cfg.RetryWait = *retryWait
		case "content.attempts":
			cfg.ContentAttempts = *contentAttempts
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "cache.dir":
			cfg.CacheDir = *cacheDir
		case "cache.maxAge":
			cfg.CacheMaxAge = *cacheMaxAge
		case "cache.clear":
			cfg.CacheClear = *cacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = *cacheStrict
		case "cache.maxBytes":
			cfg.CacheMaxBytes = *cacheMaxBytes
		case "cache.maxEntries":
			cfg.CacheMaxEntries = *cacheMaxEntries
		case "v":
			cfg.Verbose = *verbose
		}
	})
	return cfg, opts, nil
}

func run(ctx context.Context, cfg app.Config, opts options, stdin io.Reader, stdout io.Writer) error {
	if opts.version {
		fmt.Fprintf(stdout, "newsextract %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return nil
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if opts.list {
		listPlatforms(stdout, a.Registry().List())
		return nil
	}
	if opts.file != "" || opts.stdin {
		return runOffline(a, opts, stdin, stdout)
	}
	if len(opts.urls) == 0 {
		return errors.New("no URLs given")
	}
	results, err := a.Run(ctx, opts.urls)
	for _, r := range results {
		if r.Err == nil && len(r.Files) > 0 {
			fmt.Fprintln(stdout, r.Files[0])
		}
	}
	return err
}

func runOffline(a *app.App, opts options, stdin io.Reader, stdout io.Writer) error {
	if opts.platform == "" && opts.pageURL == "" {
		return errors.New("-file/-stdin need -platform or -url")
	}
	var (
		body []byte
		err  error
	)
	if opts.stdin {
		body, err = io.ReadAll(stdin)
	} else {
		body, err = os.ReadFile(opts.file)
	}
	if err != nil {
		return fmt.Errorf("read html: %w", err)
	}
	art, err := a.ExtractHTML(opts.pageURL, opts.platform, body)
	if err != nil {
		return err
	}
	files, err := a.Save(art)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, files[0])
	return nil
}

// listPlatforms prints an aligned table of profiles. Widths use display
// cells so CJK names line up.
func listPlatforms(w io.Writer, ps []*profile.Profile) {
	rows := [][]string{{"ID", "NAME", "URL"}}
	for _, p := range ps {
		rows = append(rows, []string{p.ID, p.Name, p.BaseURL})
	}
	widths := make([]int, 3)
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}
