/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Commands to list portal content",
	Long: `
Commands in this namespace are to help you explore a developer portal before exporting it.
`,
}

func init() {
	rootCmd.AddCommand(listCmd)
}
