package main

import (
	"context"
	"fmt"
	"log"

	"github.com/toothbrush/portal-migrate/migrate"
	"github.com/vbauerster/mpb/v8"
)

// withMigrator sets up config, API client and progress output, hands a Migrator to fn, and tears
// everything down again afterwards.
func withMigrator(ctx context.Context, opts []migrate.Option, fn func(m *migrate.Migrator) (migrate.Summary, error)) error {
	cfg, err := serviceConfig()
	if err != nil {
		return err
	}

	api, stop, err := newAPI(ctx, cfg)
	if err != nil {
		return fmt.Errorf("portal-migrate: couldn't set up management API: %w", err)
	}
	defer func() {
		if err := stop(); err != nil {
			log.Printf("couldn't save VCR cassette: %v\n", err)
		}
	}()

	p := mpb.New(mpb.WithWidth(64))
	opts = append([]migrate.Option{
		migrate.WithLogger(log.Default()),
		migrate.WithProgress(p),
		migrate.WithWorkers(Workers),
	}, opts...)

	m, err := migrate.New(cfg, api, opts...)
	if err != nil {
		return err
	}

	summary, err := fn(m)
	p.Wait()
	if err != nil {
		return err
	}

	debugLog("summary: %+v\n", summary)
	return nil
}
