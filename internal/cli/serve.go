package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/aftershock-catalog/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/aftershock-catalog/internal/adapter/kafka"
	"github.com/couchcryptid/aftershock-catalog/internal/pipeline"
)

func (a *app) serveCommand() *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog submission HTTP service",
		Long: `serve accepts catalog uploads on POST /v1/catalogs/validate and exposes
/healthz, /readyz and /metrics. With --publish, accepted catalogs are
produced to Kafka.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, publish)
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "publish accepted catalogs to KAFKA_TOPIC")
	return cmd
}

func (a *app) serve(ctx context.Context, publish bool) error {
	var loaders []pipeline.Loader
	var publisher *kafkaadapter.Publisher
	if publish {
		publisher = kafkaadapter.NewPublisher(a.cfg, a.logger)
		loaders = append(loaders, publisher)
		a.logger.Info("kafka publishing enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}

	p := a.pipeline(a.geocoder(), loaders...)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, p, a.logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			a.logger.Error("kafka publisher close error", "error", err)
		}
	}

	a.logger.Info("shutdown complete")
	return runErr
}
