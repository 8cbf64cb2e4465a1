package cmd

import (
	"github.com/spf13/cobra"

	"github.com/glats-richard/eigoonline/cmd/export"
	"github.com/glats-richard/eigoonline/cmd/importcsv"
	"github.com/glats-richard/eigoonline/cmd/serve"
	"github.com/glats-richard/eigoonline/cmd/validate"
	"github.com/glats-richard/eigoonline/internal/conf"
)

// RootCommand creates and returns the root command with all subcommands
// attached.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "eigoonline",
		Short: "Eigoonline school content and tracking backend",
	}

	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "Enable debug logging")

	rootCmd.AddCommand(
		serve.Command(settings),
		export.Command(settings),
		importcsv.Command(settings),
		validate.Command(settings),
	)

	return rootCmd
}
