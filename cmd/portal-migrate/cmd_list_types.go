/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var listTypesUsage = strings.TrimSpace(`
If you want to find out what content types a developer portal has, use this command.
`)

var listTypesCmd = &cobra.Command{
	Use:   "content-types",
	Short: "Print list of content types",
	Long:  listTypesUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, err := serviceConfig()
		if err != nil {
			return err
		}
		api, stop, err := newAPI(ctx, cfg)
		if err != nil {
			return fmt.Errorf("list: couldn't set up management API: %w", err)
		}
		defer stop()

		log.Printf("Listing content types in %s...\n", cfg.ServiceName)
		types, err := api.ListContentTypes(ctx)
		if err != nil {
			return fmt.Errorf("list: couldn't list content types: %w", err)
		}
		log.Printf("Found %d content types on '%s'.\n", len(types), cfg.ServiceName)

		sort.Strings(types)

		fmt.Printf("content-types:\n")
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}

		return nil
	},
}

func init() {
	listCmd.AddCommand(listTypesCmd)
}
