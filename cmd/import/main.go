// Command import loads a product spreadsheet into the store without going
// through the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/app"
	"github.com/GTDGit/storefront_api/internal/config"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func main() {
	file := flag.String("file", "", "path to an .xlsx or .csv product sheet")
	dryRun := flag.Bool("dry-run", false, "group the rows and print the result without writing")
	template := flag.String("template", "", "write the import template to this path and exit")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if *template != "" {
		if err := writeTemplate(*template); err != nil {
			log.Fatal().Err(err).Msg("failed to write template")
		}
		log.Info().Str("path", *template).Msg("template written")
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open sheet")
	}
	defer f.Close()

	report, err := run(ctx, cfg, f, *file, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("failed to print report")
	}
	if errors.Is(report.Err(), utils.ErrPartialImportFailure) {
		os.Exit(3)
	}
}

func run(ctx context.Context, cfg *config.Config, f *os.File, name string, dryRun bool) (*service.ImportReport, error) {
	if dryRun {
		return service.NewImportService(nil, service.NopImageEmbedder{}, events.NopPublisher{}, 1).Preview(f, name)
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if store.DB == nil {
		return nil, errors.New("no database configured, nothing would be persisted")
	}

	svc, err := app.NewServices(ctx, cfg, store, events.LogPublisher{})
	if err != nil {
		return nil, err
	}
	if svc.Catalog.IsDemo() {
		return nil, errors.New("store unreachable, refusing to import into the demo catalog")
	}

	report, err := svc.Imports.Import(ctx, f, name)
	if err != nil {
		return nil, err
	}

	res, err := svc.Outbox.Drain(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("outbox drain failed")
	} else if res.Retrying+res.Failed > 0 {
		log.Warn().Int("retrying", res.Retrying).Int("failed", res.Failed).Msg("some products are not synced to the store yet")
	}
	return report, nil
}

func writeTemplate(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := service.WriteTemplate(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
