// Package validate implements the content directory check subcommand.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glats-richard/eigoonline/internal/conf"
	"github.com/glats-richard/eigoonline/internal/content"
)

// Command creates the validate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the school content directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := content.NewStore(settings.Content.Dir)
			if err != nil {
				return err
			}
			fmt.Printf("OK: %d school records in %s\n", store.Len(), settings.Content.Dir)
			return nil
		},
	}
	return cmd
}
