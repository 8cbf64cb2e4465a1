// Package importcsv implements the schools CSV import subcommand.
package importcsv

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

// Command creates the import subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import an edited schools CSV into the override store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0])
		},
	}
	return cmd
}

func run(settings *conf.Settings, path string) error {
	log := logging.ForService("import")

	store, err := content.NewStore(settings.Content.Dir)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no database configured")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = ds.Close() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rows, err := schoolcsv.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing CSV: %w", err)
	}

	imported := 0
	failed := 0
	for i := range rows {
		row := &rows[i]
		if !store.Has(row.ID) {
			log.Warn("skipping unknown school id", "school_id", row.ID)
			failed++
			continue
		}
		raw, err := merge.EncodePatch(&row.Patch)
		if err != nil {
			log.Warn("skipping row", "school_id", row.ID, "error", err)
			failed++
			continue
		}
		if err := ds.UpsertOverride(row.ID, raw); err != nil {
			log.Warn("upsert failed", "school_id", row.ID, "error", err)
			failed++
			continue
		}
		imported++
	}

	log.Info("import finished", "imported", imported, "failed", failed)
	if imported == 0 && failed > 0 {
		return fmt.Errorf("no rows imported")
	}
	return nil
}
