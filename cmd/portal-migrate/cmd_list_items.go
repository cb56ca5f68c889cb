/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/portal-migrate/snapshot"
)

var listItemsUsage = strings.TrimSpace(`
Print the identifier of every content item of one content type, in the order the service returns
them.  Use "list content-types" to see which types exist.
`)

var listItemsCmd = &cobra.Command{
	Use:   "items CONTENT-TYPE",
	Short: "Print list of content items of a type",
	Long:  listItemsUsage,
	Args:  cobra.ExactArgs(1),
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

		contentType := args[0]
		log.Printf("Listing %s items in %s...\n", contentType, cfg.ServiceName)
		items, err := api.ListContentItems(ctx, contentType)
		if err != nil {
			return fmt.Errorf("list: couldn't list content items: %w", err)
		}
		log.Printf("Found %d items.\n", len(items))

		fmt.Printf("%s:\n", contentType)
		for _, item := range items {
			id, _, err := snapshot.SplitID(item)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			fmt.Printf("  - %s\n", id)
		}

		return nil
	},
}

func init() {
	listCmd.AddCommand(listItemsCmd)
}
