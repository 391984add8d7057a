// Command import-cards imports every printing of a set, or of an arbitrary
// Scryfall search, into the catalog and exits.
//
// Usage:
//
//	import-cards dsk
//	import-cards -query 'e:dsk r:mythic'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paramirez/deckzter-seed/internal/app"
	"github.com/paramirez/deckzter-seed/internal/config"
	"github.com/paramirez/deckzter-seed/internal/importer"
	"github.com/paramirez/deckzter-seed/internal/scryfall"
	"github.com/paramirez/deckzter-seed/pkg/logger"
	"github.com/paramirez/deckzter-seed/pkg/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	query := flag.String("query", "", "raw Scryfall search query (instead of a set code)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-query q] [set]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := importArgs{Query: *query, Set: flag.Arg(0)}
	req, err := args.request()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			log.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, cfg.ImportTimeout())
	defer cancelRun()

	report, importErr := application.Importer().Import(ctx, req)

	if cfg.PushgatewayURL != "" {
		if err := pushMetrics(ctx, cfg.PushgatewayURL); err != nil {
			log.Warn("pushing metrics failed", slog.String("error", err.Error()))
		}
	}

	if report != nil {
		log.Info("import report",
			slog.String("run_id", report.RunID),
			slog.String("query", report.Query),
			slog.Int("cards", report.Cards),
			slog.Int("variants_created", report.VariantsCreated),
			slog.Int("variants_skipped", report.VariantsSkipped),
			slog.Int("collections_created", report.Collections),
			slog.Duration("duration", report.Duration),
		)
	}
	if importErr != nil {
		log.Error("import failed", slog.String("error", importErr.Error()))
		return 1
	}
	return 0
}

var errNoSelection = errors.New("a set code or -query is required")

// importArgs holds the command line selection. Exactly one of Query or Set
// is given.
type importArgs struct {
	Query string `json:"query" validate:"required_without=Set,excluded_with=Set,max=1000"`
	Set   string `json:"set" validate:"omitempty,setcode"`
}

func (a importArgs) request() (importer.Request, error) {
	if a.Query == "" && a.Set == "" {
		return importer.Request{}, errNoSelection
	}
	if err := validator.Validate(a); err != nil {
		return importer.Request{}, err
	}
	if a.Set != "" {
		return importer.Request{Query: scryfall.BuildQuery(a.Set)}, nil
	}
	return importer.Request{Query: a.Query}, nil
}
