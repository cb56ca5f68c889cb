/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whichCmd represents the which command
var whichCmd = &cobra.Command{
	Use:   "which",
	Short: "Tell me the resolved config path",
	Long: `
Output the filename that's being used to store your config, and the env file, if any.
`,
	Run: func(cmd *cobra.Command, args []string) {
		if ConfigActual == "" {
			fmt.Printf("Config path: (none, %s not found)\n", Config)
		} else {
			fmt.Printf("Config path: %s\n", ConfigActual)
		}
		if EnvFile != "" {
			fmt.Printf("Env file: %s\n", EnvFile)
		}
	},
}

func init() {
	configCmd.AddCommand(whichCmd)
}
