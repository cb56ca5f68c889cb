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

var exportUsage = strings.TrimSpace(`
Capture every content item of the developer portal into <folder>/data.json, then download the
portal's media container into <folder>/media.  Existing files are overwritten.
`)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Snapshot a developer portal into a local folder",
	Long:  exportUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		debugLog("  SkipMedia: %v\n", ExportSkipMedia)
		opts := []migrate.Option{migrate.WithSkipMedia(ExportSkipMedia)}
		return withMigrator(ctx, opts, func(m *migrate.Migrator) (migrate.Summary, error) {
			return m.Export(ctx)
		})
	},
}

var ExportSkipMedia bool

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&ExportSkipMedia, "skip-media", false, "don't download the media container")
}
