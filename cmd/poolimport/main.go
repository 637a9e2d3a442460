// Command poolimport loads reservation exports from disk into the pool store,
// or uploads them to a running server with -server.
//
//	poolimport -config configs/config.yaml -actor ana MULTISELECCION.xlsx
//	AFORO_API_KEY=... poolimport -server http://aforo:8080 -actor ana MULTISELECCION.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aforo/internal/client"
	"aforo/internal/config"
	"aforo/internal/database"
	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/export"
	"aforo/internal/logging"
	"aforo/internal/notify"
	"aforo/internal/repository"
	"aforo/internal/service"
	"aforo/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", config.PathFromEnv(), "path to config.yaml")
		actor      = flag.String("actor", "cli", "name recorded in the upload log")
		dryRun     = flag.Bool("dry-run", false, "parse and print the summary without storing")
		asJSON     = flag.Bool("json", false, "print summaries as JSON")
		server     = flag.String("server", "", "upload to this aforo server instead of the local database")
		apiKey     = flag.String("api-key", os.Getenv("AFORO_API_KEY"), "API key for -server")
		apiExtra   = flag.String("api-extra", os.Getenv("AFORO_API_EXTRA"), "API extra secret for -server")
		exportDays = flag.Bool("export", false, "save the day workbook of each imported date under export.path")
		show       = flag.Bool("show", false, "with -server, print the resulting occupancy of each imported date")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FILE...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("no files given")
	}

	if *server != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := client.New(*server, *apiKey, *apiExtra).WithActor(*actor)
		return eachFile(flag.Args(), func(path string, f *os.File) (*service.ImportSummary, error) {
			summary, err := c.Import(ctx, path, f, *dryRun)
			if err == nil && *show && !summary.DryRun {
				printOccupancy(ctx, c, summary)
			}
			return summary, err
		}, *asJSON)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		svc := service.NewImportService(nil, nil, nil, cfg.Pool, logging.Component(logger, "import"))
		return eachFile(flag.Args(), func(path string, f *os.File) (*service.ImportSummary, error) {
			return svc.Preview(path, f)
		}, *asJSON)
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	bus := events.NewEventBus()
	bus.OnError = func(event *events.Event, err error) {
		logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
	}
	svc := newImportService(ctx, cfg, db, bus, logger)

	var saveDays func(*service.ImportSummary)
	if *exportDays {
		saveDays, err = dayExporter(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
	}

	return eachFile(flag.Args(), func(path string, f *os.File) (*service.ImportSummary, error) {
		summary, err := svc.Import(ctx, path, f, *actor)
		if err == nil && saveDays != nil {
			saveDays(summary)
		}
		return summary, err
	}, *asJSON)
}

// newImportService wires the same lock and follow-ups as the server: the
// publish tasks are persisted for the server's Sheets worker to pick up.
func newImportService(ctx context.Context, cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) *service.ImportService {
	locker := repository.NewMemoryImportLock()
	var importLock domain.ImportLocker = locker

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, using a process-local import lock")
		}
		importLock = repository.NewFailoverImportLock(repository.NewRedisImportLock(redisClient), locker, logger)
	}

	if cfg.Google.OccupancySpreadsheetID != "" {
		queue := worker.NewSheetsWorker(db, nil, nil, redisClient, worker.RetryPolicy{}, logging.Component(logger, "sheets-queue"))
		queue.Subscribe(bus)
	}

	if bot, err := notify.NewBot(cfg.Telegram); err != nil {
		logger.Warn().Err(err).Msg("telegram init failed")
	} else if bot != nil {
		notify.NewTelegramNotifier(bot, cfg.Telegram.ChatIDs, logging.Component(logger, "telegram")).Subscribe(bus)
	}

	return service.NewImportService(db, importLock, bus, cfg.Pool, logging.Component(logger, "import"))
}

// dayExporter saves the workbook of every date an import touched.
func dayExporter(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) (func(*service.ImportSummary), error) {
	occ, err := service.NewOccupancyService(db, db, cfg.Pool, logging.Component(logger, "occupancy"))
	if err != nil {
		return nil, err
	}
	exporter := export.NewExporter(cfg.Export.Path, logging.Component(logger, "export"))

	return func(s *service.ImportSummary) {
		for _, d := range s.Dates {
			if err := saveDay(ctx, occ, db, exporter, d.Date); err != nil {
				fmt.Fprintf(os.Stderr, "%s: export: %v\n", d.Date, err)
			}
		}
	}, nil
}

func saveDay(ctx context.Context, occ *service.OccupancyService, db *database.DB, exporter *export.Exporter, date string) error {
	day, err := occ.GetDay(ctx, date)
	if err != nil {
		return err
	}
	manual, err := db.GetManualReservationsByDate(ctx, date)
	if err != nil {
		return err
	}
	pool, err := db.GetPoolReservationsByDate(ctx, date)
	if err != nil {
		return err
	}
	path, err := exporter.SaveDay(day, manual, pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  saved %s\n", path)
	return nil
}

func eachFile(paths []string, do func(path string, f *os.File) (*service.ImportSummary, error), asJSON bool) error {
	failed := 0
	for _, path := range paths {
		summary, err := importFile(path, do)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		if err := printSummary(os.Stdout, summary, asJSON); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func importFile(path string, do func(path string, f *os.File) (*service.ImportSummary, error)) (*service.ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return do(path, f)
}

func printSummary(w io.Writer, s *service.ImportSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	mode := "imported"
	if s.DryRun {
		mode = "parsed (dry run)"
	}
	fmt.Fprintf(w, "%s: %s %d reservations, %d people, %s export\n", s.File, mode, s.Total, s.People, s.Shape)
	for _, d := range s.Dates {
		fmt.Fprintf(w, "  %s  %4d reservations  %4d people  %s\n", d.Date, d.Count, d.People, d.BatchID)
	}
	if s.Stats.Skipped > 0 {
		fmt.Fprintf(w, "  skipped %d rows: %v\n", s.Stats.Skipped, s.Stats.SkipReasons)
	}
	fmt.Fprintf(w, "  finished %s\n", time.Now().Format(time.RFC3339))
	return nil
}

func printOccupancy(ctx context.Context, c *client.Client, s *service.ImportSummary) {
	for _, d := range s.Dates {
		day, err := c.Occupancy(ctx, d.Date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: occupancy: %v\n", d.Date, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s  peak %s %d/%d  high demand slots %d\n",
			day.Date, day.Stats.PeakTime, day.Stats.PeakTotal, day.MaxCapacity, day.Stats.HighDemandSlots)
	}
}
