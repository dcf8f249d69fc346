// Package cli implements the inboxflow command line.
package cli

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inboxflow",
		Short:         "Personalize and deploy AI email automation workflows",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	root.PersistentFlags().String("config", "inboxflow.yaml", "Path to the configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to an env file loaded before configuration")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in logs")

	root.AddCommand(
		InjectCmd(),
		ValidateCmd(),
		DeployCmd(),
		ServeCmd(),
	)
	return root
}
