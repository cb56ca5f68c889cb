/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.  The access
token, if any, is never printed.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Dump current config state:\n\n")

		fmt.Printf("  Config file: %s\n", Config)
		fmt.Printf("  Parsed YAML:\n%#v\n", ParsedConfig)
		fmt.Println()

		for _, line := range flagLines(cmd.Flags()) {
			fmt.Printf("  %s\n", line)
		}
	},
}

// flagLines renders every flag visible to a command, sorted by name.  Secrets are masked.
func flagLines(flags *pflag.FlagSet) []string {
	values := map[string]string{}
	flags.VisitAll(func(f *pflag.Flag) {
		v := f.Value.String()
		if f.Name == "access-token" && v != "" {
			v = "(set)"
		}
		values[f.Name] = v
	})

	names := maps.Keys(values)
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, values[name]))
	}
	return lines
}

func init() {
	configCmd.AddCommand(showCmd)
}
