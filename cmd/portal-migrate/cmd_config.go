/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect how portal-migrate is configured",
	Long: `
Settings come from command line flags, then the environment (SUBSCRIPTION_ID, RESOURCE_GROUP_NAME,
SERVICE_NAME), then --env-file, then the YAML config file.  These commands show the result.
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
