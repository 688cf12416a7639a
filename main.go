package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"f95-crawler/config"
	"f95-crawler/crawler"
	"f95-crawler/scraper/f95"
	"f95-crawler/services"
	"f95-crawler/storage"
	"f95-crawler/utils"
)

const usage = `Usage: f95-crawler [command] [flags]

Commands:
  crawl-list     [-delay s] [-retry-delay s]   crawl every listing page
  crawl-thread   -id N                         fetch one thread's details
  crawl-missing  [-delay ms] [-retry-delay ms] fetch details for threads without one
  export         [-format json|csv] [-out path]
  verify                                       check stored games against tags and prefixes
  create-db                                    create the PostgreSQL database if missing

Run without a command for the interactive menu.
`

// app carries the loaded configuration into each command.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	out    io.Writer

	mem *storage.MemoryStore // kept across menu actions
}

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	ctx := context.Background()

	var err error
	if len(os.Args) < 2 {
		err = a.menu(ctx, os.Stdin, os.Stdout)
	} else {
		err = a.run(ctx, os.Args[1], os.Args[2:])
	}
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "crawl-list":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		delay := fs.Float64("delay", a.cfg.Delay().Seconds(), "seconds between page requests")
		retry := fs.Float64("retry-delay", a.cfg.RateLimitDelay().Seconds(), "seconds to wait after a 429")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.crawlList(ctx, seconds(*delay), seconds(*retry))

	case "crawl-thread":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		id := fs.Int64("id", 0, "thread id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id <= 0 {
			return errors.New("crawl-thread: -id must be a positive integer")
		}
		return a.crawlThread(ctx, *id)

	case "crawl-missing":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		delay := fs.Int("delay", a.cfg.DelayMs, "milliseconds between thread requests")
		retry := fs.Int("retry-delay", a.cfg.RateLimitDelayMs, "milliseconds to wait after a 429")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *delay < 0 || *retry < 0 {
			return errors.New("crawl-missing: delays must be non-negative")
		}
		return a.crawlMissing(ctx, millis(*delay), millis(*retry))

	case "export":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		out := fs.String("out", a.cfg.ExportPath, "output file")
		format := fs.String("format", "", "json or csv (default: from the file extension)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.export(ctx, *out, *format)

	case "verify":
		return a.verify(ctx)

	case "create-db":
		return a.createDB(ctx)

	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil

	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) openStore() (storage.Store, error) {
	switch a.cfg.StoreDriver {
	case config.DriverSQLite:
		a.logger.Info("Using SQLite store at %s", a.cfg.SQLitePath)
		return storage.NewSQLiteStore(a.cfg.SQLitePath)
	case config.DriverMemory:
		if a.mem == nil {
			a.logger.Warn("Using in-memory store: nothing survives this process")
			a.mem = storage.NewMemoryStore()
		}
		return a.mem, nil
	default:
		store, err := storage.NewPostgresStore(a.cfg.DSN(), a.logger)
		if err != nil {
			a.logger.Error("Make sure PostgreSQL is running and the database exists (f95-crawler create-db)")
			return nil, err
		}
		return store, nil
	}
}

// threadSource returns the configured detail fetcher and its cleanup.
func (a *app) threadSource() (crawler.ThreadSource, func(), error) {
	if a.cfg.DetailFetcher == config.FetcherBrowser {
		b, err := f95.NewBrowserThreadClient(a.cfg.ThreadURL, a.cfg.UserAgent, a.cfg.ChromeBin, a.cfg.HTTPTimeout(), a.logger)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	}
	return f95.NewThreadClient(a.cfg.ThreadURL, a.cfg.UserAgent, a.cfg.HTTPTimeout()), func() {}, nil
}

func (a *app) crawlList(ctx context.Context, delay, rateLimitDelay time.Duration) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	a.logger.Info("=== F95Zone listing crawl starting ===")
	c := &crawler.ListingCrawler{
		Source:   f95.NewListingClient(a.cfg.ListingURL, a.cfg.UserAgent, a.cfg.HTTPTimeout()),
		Store:    store,
		Delay:    delay,
		Policy:   crawler.ListingPolicy(rateLimitDelay, a.cfg.ErrorDelay()),
		Reporter: utils.NewProgressBar("Pages"),
		Logger:   a.logger,
	}
	sum := c.Run(ctx)

	fmt.Printf("\n  Done. %d pages, %d games upserted in %v\n\n",
		sum.Completed, sum.Upserts, sum.Finished.Sub(sum.Started).Round(time.Second))
	return nil
}

func (a *app) threadCrawler(store storage.Store, src crawler.ThreadSource, delay, rateLimitDelay time.Duration) *crawler.ThreadCrawler {
	return &crawler.ThreadCrawler{
		Source:   src,
		Games:    store,
		Details:  store,
		Delay:    delay,
		Policy:   crawler.DetailPolicy(rateLimitDelay, a.cfg.ErrorDelay()),
		Reporter: utils.NewProgressBar("Threads"),
		Logger:   a.logger,
	}
}

func (a *app) crawlThread(ctx context.Context, id int64) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	src, cleanup, err := a.threadSource()
	if err != nil {
		return err
	}
	defer cleanup()

	sum := a.threadCrawler(store, src, a.cfg.Delay(), a.cfg.RateLimitDelay()).CrawlThread(ctx, id)
	if len(sum.Skipped) > 0 {
		return fmt.Errorf("thread %d was not saved", id)
	}
	a.logger.Info("Saved details for thread %d", id)
	return nil
}

func (a *app) crawlMissing(ctx context.Context, delay, rateLimitDelay time.Duration) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	src, cleanup, err := a.threadSource()
	if err != nil {
		return err
	}
	defer cleanup()

	a.logger.Info("=== F95Zone thread crawl starting ===")
	sum, err := a.threadCrawler(store, src, delay, rateLimitDelay).CrawlMissing(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n  Done. %d saved, %d skipped", sum.Completed, len(sum.Skipped))
	if len(sum.Skipped) > 0 {
		fmt.Printf(" (rerun crawl-missing to retry them)")
	}
	fmt.Printf("\n\n")
	return nil
}

func (a *app) export(ctx context.Context, out, format string) error {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if format != "json" && format != "csv" {
		return fmt.Errorf("export: unsupported format %q", format)
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var w storage.ExportWriter
	if format == "csv" {
		w, err = storage.NewCSVWriter(out)
	} else {
		w, err = storage.NewJSONWriter(out)
	}
	if err != nil {
		return err
	}

	n, err := services.NewExporter(a.logger).Export(ctx, store, w)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("export failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	a.logger.Info("Exported %d games to %s", n, out)
	return nil
}

func (a *app) verify(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	v := services.NewVerifierTo(a.logger, a.out)
	report, err := v.Generate(ctx, store)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}
	v.Print(report)
	return nil
}

func (a *app) createDB(ctx context.Context) error {
	if a.cfg.StoreDriver != config.DriverPostgres {
		a.logger.Info("STORE_DRIVER=%s creates its storage on first use", a.cfg.StoreDriver)
		return nil
	}
	created, err := storage.EnsureDatabase(ctx, a.cfg.AdminDSN(), a.cfg.PostgresDB)
	if err != nil {
		return err
	}
	if created {
		a.logger.Info("Database %q created", a.cfg.PostgresDB)
	} else {
		a.logger.Info("Database %q already exists", a.cfg.PostgresDB)
	}

	store, err := storage.NewPostgresStore(a.cfg.DSN(), a.logger)
	if err != nil {
		return err
	}
	return store.Close()
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
func millis(ms int) time.Duration     { return time.Duration(ms) * time.Millisecond }
