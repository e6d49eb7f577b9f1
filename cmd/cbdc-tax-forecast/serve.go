package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/server"
	"github.com/iwvelando/cbdc-tax-forecast/internal/storage"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				srvCfg.Address = address
			}

			logger, err := initializeLogger(srvCfg.Logging, a.logLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := server.Dependencies{}

			// The scenario config is optional here; it only contributes
			// indicator settings.
			indicatorCfg := config.IndicatorConfig{Enabled: true}
			if path, err := config.ResolvePath(a.configPath); err == nil {
				if conf, err := config.LoadConfiguration(path); err == nil {
					indicatorCfg = conf.Indicators
				} else {
					logger.Info("no scenario configuration loaded, using indicator defaults",
						zap.String("op", "main.serve"),
						zap.String("path", path),
					)
				}
			}
			client := indicator.NewClient(indicatorCfg, logger)
			deps.Indicators = client
			deps.IndicatorCodes = indicatorCodes(indicatorCfg.Codes)
			deps.IndicatorYear = client.Year()

			go func() {
				for readings := range client.Prefetch(ctx, deps.IndicatorCodes) {
					available := 0
					for _, r := range readings {
						if r.Available {
							available++
						}
					}
					logger.Info("indicators prefetched",
						zap.String("op", "main.serve"),
						zap.Int("available", available),
						zap.Int("total", len(readings)),
					)
				}
			}()

			if srvCfg.StorageDSN != "" {
				db, err := storage.Open(ctx, srvCfg.StorageDSN)
				if err != nil {
					logger.Error("failed to open snapshot store",
						zap.String("op", "main.serve"),
						zap.Error(err),
					)
					return err
				}
				defer db.Close()
				deps.Store = db
			}

			srv := &http.Server{
				Addr:              srvCfg.Address,
				Handler:           server.NewHandler(logger, srvCfg.UploadSizeBytes(), version, deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					zap.String("op", "main.serve"),
					zap.String("address", srvCfg.Address),
					zap.Int64("maxUploadSize", srvCfg.UploadSizeBytes()),
					zap.Bool("storage", deps.Store != nil),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("shutting down server", zap.String("op", "main.serve"))
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}
