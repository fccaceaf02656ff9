package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/api"
	"github.com/sicko7947/walkflow/config"
	"github.com/sicko7947/walkflow/export"
	"github.com/sicko7947/walkflow/screens/walkmap"
	"github.com/sicko7947/walkflow/store"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.Logger = log.Logger.Level(cfg.Level())

	submissions, err := newSubmissionStore(ctx, cfg)
	if err != nil {
		return err
	}

	server := api.NewServer(submissions,
		api.WithLogger(log.Logger),
		api.WithExporter(export.NewFileExporter(afero.NewOsFs(), cfg.Export.Dir, export.WithLogger(log.Logger))),
		api.WithMapSource(walkmap.NewSimulatedSource(cfg.Map.FailureRate, time.Duration(cfg.Map.LatencyMs)*time.Millisecond)),
		api.WithLoaderConfig(cfg.LoaderPolicy()),
		api.WithHistoryCapacity(cfg.History.Capacity),
	)
	app := server.App()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Addr).Str("store", cfg.Store.Driver).Msg("Starting HTTP server")
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		server.Close()
		return fmt.Errorf("server stopped: %w", err)
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	server.Close()

	log.Info().Msg("Server stopped")
	return nil
}

// newSubmissionStore picks the submission outbox named by store.driver
func newSubmissionStore(ctx context.Context, cfg *config.Config) (walkflow.SubmissionStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		log.Info().Str("table", cfg.Store.Table).Str("region", awsCfg.Region).Msg("Using DynamoDB submission store")
		return store.NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.Store.Table), nil
	default:
		log.Info().Msg("Using in-memory submission store")
		return store.NewMemoryStore(), nil
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
