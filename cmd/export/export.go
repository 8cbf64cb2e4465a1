// Package export implements the schools CSV export subcommand.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glats-richard/eigoonline/internal/conf"
	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/logging"
	"github.com/glats-richard/eigoonline/internal/merge"
	"github.com/glats-richard/eigoonline/internal/schoolcsv"
)

// Command creates the export subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export merged school records as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func run(settings *conf.Settings, output string) error {
	log := logging.ForService("export")

	store, err := content.NewStore(settings.Content.Dir)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	var source merge.Source
	ds := datastore.New(settings)
	if ds != nil {
		if err := ds.Open(); err != nil {
			log.Warn("database unavailable, exporting static content", "error", err)
		} else {
			defer func() { _ = ds.Close() }()
			source = datastore.PatchSource(ds)
		}
	}

	merger := merge.New(store, source)
	data, err := schoolcsv.Export(merger.MergedAll())
	if err != nil {
		return fmt.Errorf("building CSV: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	log.Info("exported", "file", output, "schools", store.Len())
	return nil
}
