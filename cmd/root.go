package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/apifetch/internal/config"
	"github.com/oshokin/apifetch/internal/logger"
)

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "apifetch",
		Short: "Send requests to a JSON HTTP API from the command line.",
		Long: `apifetch is a CLI for calling JSON HTTP APIs relative to a configured base URL.

Every request goes through the same pipeline:
- the URL is built from the base URL, the path and the query parameters
- default headers are merged with per-call headers
- structured bodies are sent as JSON, strings as is, forms as multipart
- JSON responses are pretty-printed, anything else is streamed out
- failures are reported with method, resource, timestamp, status and body

Examples:
  apifetch get posts -q userId=1 --limit 5
  apifetch post posts --json -d '{"title":"foo"}'
  apifetch patch users/1 -F name=Leanne -F avatar=@avatar.png`,
		SilenceUsage:      true,
		PersistentPreRun:  initConfig,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmdFlags := rootCmd.PersistentFlags()

	rootCmdFlags.StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootCmdFlags.String(
		"base-url",
		"",
		"base URL prepended to every path, overrides base_url from the configuration.")

	rootCmdFlags.String(
		"log-level",
		"",
		"logging verbosity: debug, info, warn, error.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	applyFlagOverrides(cmd.Flags(), appConfig)

	if level, ok := logger.ParseLogLevel(appConfig.LogLevel); ok {
		logger.SetLevel(level)
	}
}

// applyFlagOverrides copies the flags that were set explicitly into cfg.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flag := flags.Lookup("base-url"); flag != nil && flag.Changed {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}

	if flag := flags.Lookup("log-level"); flag != nil && flag.Changed {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
}

// bindFlagsToConfig applies flag overrides and validates the result.
func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	applyFlagOverrides(flags, cfg)

	return config.ValidateConfig(cfg)
}
