/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/portal-migrate/migrate"
)

var importUsage = strings.TrimSpace(`
Replay <folder>/data.json against the developer portal, one PUT per content item in file order,
then upload everything under <folder>/media (except *.info files) into the media container.  Nothing
is deleted on the target, and a failure part-way leaves earlier writes in place.
`)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Write a local snapshot into a developer portal",
	Long:  importUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		debugLog("  SkipMedia: %v, DryRun: %v\n", ImportSkipMedia, DryRun)
		opts := []migrate.Option{
			migrate.WithSkipMedia(ImportSkipMedia),
			migrate.WithDryRun(DryRun),
		}
		return withMigrator(ctx, opts, func(m *migrate.Migrator) (migrate.Summary, error) {
			return m.Import(ctx)
		})
	},
}

var (
	ImportSkipMedia bool
	DryRun          bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&ImportSkipMedia, "skip-media", false, "don't upload local media")
	importCmd.Flags().BoolVar(&DryRun, "dry-run", false, "log the writes an import would make, without making them")
}
