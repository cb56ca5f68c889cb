/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"

	"github.com/fatih/structs"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const defaultConfig = "~/.config/portal-migrate.yaml"

var (
	// Store the result of binding cobra flags
	Config       string
	ConfigActual string
	Debug        bool
	EnvFile      string

	SubscriptionID    string
	ResourceGroupName string
	ServiceName       string
	Folder            string

	WithVCR      bool
	RefreshToken bool
	AccessToken  string
	Workers      int

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "portal-migrate",
	Short: "Copy an API Management developer portal between services",
	Long: `
Snapshot the developer portal of an Azure API Management service (content items plus the media
container) into a local folder, and replay such a snapshot into the same or another service.  Handy
for promoting a portal from dev to prod.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("portal-migrate: failed to initialise config: %w", err)
		}
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: "+defaultConfig+", respects PORTAL_MIGRATE_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringVar(&EnvFile, "env-file", "", "dotenv file providing SUBSCRIPTION_ID, RESOURCE_GROUP_NAME and SERVICE_NAME")
	rootCmd.PersistentFlags().StringVar(&SubscriptionID, "subscription-id", "", "Azure subscription of the API Management service")
	rootCmd.PersistentFlags().StringVar(&ResourceGroupName, "resource-group", "", "resource group of the API Management service")
	rootCmd.PersistentFlags().StringVar(&ServiceName, "service-name", "", "name of the API Management service")
	rootCmd.PersistentFlags().StringVar(&Folder, "folder", "./snapshot", "snapshot folder")
	rootCmd.PersistentFlags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to record and replay management API responses")
	rootCmd.PersistentFlags().BoolVar(&RefreshToken, "refresh-token", false, "refresh the access token when it nears expiry, instead of fetching it once")
	rootCmd.PersistentFlags().StringVar(&AccessToken, "access-token", "", "use this bearer token instead of the Azure default credential chain")
	rootCmd.PersistentFlags().IntVar(&Workers, "workers", 1, "concurrent media transfers")
}

func initializeConfig(cmd *cobra.Command) error {
	explicit := Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("PORTAL_MIGRATE_CONFIG")
		if envConfig != "" {
			Config = envConfig
			explicit = true
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = defaultConfig
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("portal-migrate: unable to expand homedir: %w", err)
	}
	Config = config

	if _, err := os.Stat(Config); errors.Is(err, os.ErrNotExist) {
		if explicit {
			fmt.Printf("Couldn't read config file %s, does it exist?  Override with --config.\n", Config)
			return fmt.Errorf("portal-migrate: specified config file does not exist: %w", err)
		}
		debugLog("no config file at %s, carrying on without\n", Config)
		return bindEnvFile(cmd)
	}
	ConfigActual = Config

	yamlFile, err := os.ReadFile(Config)
	if err != nil {
		return fmt.Errorf("portal-migrate: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("portal-migrate: issue parsing config file: %w", err)
	}

	// The env file beats the rest of the YAML config, so it has to be bound first.
	if !cmd.Flags().Changed("env-file") && ParsedConfig.EnvFile != "" {
		if err := cmd.Flags().Set("env-file", ParsedConfig.EnvFile); err != nil {
			return err
		}
	}
	if err := bindEnvFile(cmd); err != nil {
		return err
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("portal-migrate: failed to bind flags: %w", err)
	}

	return nil
}

// envBindings maps dotenv variables onto flags.
var envBindings = map[string]string{
	"SUBSCRIPTION_ID":     "subscription-id",
	"RESOURCE_GROUP_NAME": "resource-group",
	"SERVICE_NAME":        "service-name",
}

// bindEnvFile fills unset service flags from the process environment, then from --env-file.  Like
// dotenv, a variable already present in the environment wins over the file.
func bindEnvFile(cmd *cobra.Command) error {
	fileVars := map[string]string{}
	if EnvFile != "" {
		path, err := homedir.Expand(EnvFile)
		if err != nil {
			return fmt.Errorf("portal-migrate: unable to expand homedir: %w", err)
		}
		EnvFile = path

		fileVars, err = godotenv.Read(EnvFile)
		if err != nil {
			return fmt.Errorf("portal-migrate: couldn't read env file %s: %w", EnvFile, err)
		}
	}

	for envKey, flagKey := range envBindings {
		if cmd.Flags().Changed(flagKey) {
			continue
		}
		value := os.Getenv(envKey)
		if value == "" {
			value = fileVars[envKey]
		}
		if value == "" {
			continue
		}
		debugLog("%s from environment\n", flagKey)
		if err := cmd.Flags().Set(flagKey, value); err != nil {
			return fmt.Errorf("portal-migrate: couldn't set --%s: %w", flagKey, err)
		}
	}

	return nil
}

type YamlConfig struct {
	Debug        *bool `yaml:"debug"`
	WithVCR      *bool `yaml:"with-vcr"`
	RefreshToken *bool `yaml:"refresh-token"`
	SkipMedia    *bool `yaml:"skip-media"`
	Workers      int   `yaml:"workers"`

	EnvFile           string `yaml:"env-file"`
	SubscriptionID    string `yaml:"subscription-id"`
	ResourceGroupName string `yaml:"resource-group"`
	ServiceName       string `yaml:"service-name"`
	Folder            string `yaml:"folder"`
}

// Bind each YAML setting onto its cobra flag, unless the flag was given on the command line.
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("portal-migrate: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// the flag is unknown to this subcommand, e.g. skip-media while running `list`.
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		switch field.Kind() {
		case reflect.Ptr:
			// YamlConfig only uses pointers for bools
			b, ok := field.Value().(*bool)
			if !ok {
				return fmt.Errorf("portal-migrate: found unrecognised field: %+v", field)
			}
			if b != nil {
				if err := cmd.Flags().Set(key, fmt.Sprintf("%v", *b)); err != nil {
					return err
				}
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("portal-migrate: found unrecognised field: %+v", field)
			}
			if s != "" {
				if err := cmd.Flags().Set(key, s); err != nil {
					return err
				}
			}

		case reflect.Int:
			i, ok := field.Value().(int)
			if !ok {
				return fmt.Errorf("portal-migrate: found unrecognised field: %+v", field)
			}
			if i != 0 {
				if err := cmd.Flags().Set(key, fmt.Sprintf("%d", i)); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("portal-migrate: found unrecognised field: %+v", field)
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("portal-migrate: execution error: %w", err)
	}

	return nil
}
