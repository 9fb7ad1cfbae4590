package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/apifetch/internal/app"
)

var (
	//nolint:gochecknoglobals // Cobra command requires a global definition.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the configuration file.",

		// The file may not exist yet, so it is not loaded up front.
		PersistentPreRun: func(*cobra.Command, []string) {},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	configSetCmd = &cobra.Command{
		Use:   "set {key} {value}",
		Short: "Set one key in the configuration file, keeping its order and comments.",
		Long: `Set one key in the configuration file, keeping its order and comments.
The file is created when it does not exist.

Keys: base_url, user_agent, timeout, log_level, max_log_length, max_error_body_size,
and default_headers.<Name> for a default header.

Examples:
  apifetch config set base_url https://jsonplaceholder.typicode.com/
  apifetch config set default_headers.Accept application/json`,
		Args: cobra.ExactArgs(2), //nolint:mnd // Key and value.
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteConfigSetCommand(cmd.Context(), configFilenameFromFlag, args[0], args[1])
		},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			initConfig(cmd, args)
			app.ExecuteConfigShowCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	configCmd.AddCommand(configSetCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
