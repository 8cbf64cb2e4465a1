// Package serve implements the HTTP server subcommand.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glats-richard/eigoonline/internal/api"
	"github.com/glats-richard/eigoonline/internal/conf"
	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/datastore"
	"github.com/glats-richard/eigoonline/internal/logging"
	"github.com/glats-richard/eigoonline/internal/observability"
	"github.com/glats-richard/eigoonline/internal/telemetry"
	"github.com/glats-richard/eigoonline/internal/webhook"
)

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	cmd.Flags().StringVar(&settings.Server.Host, "host", settings.Server.Host, "Listen address")
	cmd.Flags().IntVar(&settings.Server.Port, "port", settings.Server.Port, "Listen port")
	cmd.Flags().StringVar(&settings.Content.Dir, "content", settings.Content.Dir, "Directory of school JSON records")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(settings *conf.Settings) error {
	log := logging.ForService("serve")

	if err := telemetry.Init(settings); err != nil {
		log.Warn("telemetry disabled", "error", err)
	}
	defer telemetry.Flush(2 * time.Second)

	store, err := content.NewStore(settings.Content.Dir)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	log.Info("content loaded", "dir", settings.Content.Dir, "schools", store.Len())

	ds := datastore.New(settings)
	if ds != nil {
		if err := ds.Open(); err != nil {
			// Page rendering must survive a broken database. Submission
			// endpoints will answer 503 instead.
			log.Error("database unavailable, serving static content only", "error", err)
			telemetry.CaptureError(err, "datastore")
			ds = nil
		} else {
			defer func() {
				if err := ds.Close(); err != nil {
					log.Error("closing database", "error", err)
				}
			}()
		}
	} else {
		log.Warn("no database configured, overrides and submissions disabled")
	}

	var metrics *observability.Metrics
	if settings.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}
	notifier := webhook.New(settings.Webhook.ReviewURL)

	e := echo.New()
	e.HideBanner = true
	api.New(e, ds, settings, store, notifier, metrics)

	addr := settings.Server.Host + ":" + strconv.Itoa(settings.Server.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
