/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/portal-migrate/apim"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `
Show the build version, and the management API version that requests are made against.
`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return fmt.Errorf("version: could not read build info")
		}

		fmt.Printf("portal-migrate version %s\n", buildVersion(info))
		fmt.Printf("management api-version %s\n", apim.APIVersion)
		return nil
	},
}

// Version is set with -ldflags "-X main.Version=...", otherwise the module version is used.
var Version = ""

// buildVersion is e.g. "v1.2.0", "rev-1a2b3c4-dirty" or "devel".
func buildVersion(info *debug.BuildInfo) string {
	parts := []string{}

	version := Version
	if version == "" {
		version = info.Main.Version
	}
	if version != "" && version != "(devel)" {
		parts = append(parts, version)
	}

	var revision string
	dirty := false
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			revision = kv.Value
		case "vcs.modified":
			dirty = kv.Value == "true"
		}
	}
	if revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		parts = append(parts, "rev", revision)
		if dirty {
			parts = append(parts, "dirty")
		}
	}

	if len(parts) == 0 {
		return "devel"
	}
	return strings.Join(parts, "-")
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
