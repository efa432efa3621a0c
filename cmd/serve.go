package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oneinch-swapper/pkg/api"
	"oneinch-swapper/pkg/devnet"
	"oneinch-swapper/pkg/logging"
	"oneinch-swapper/pkg/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the adapter over HTTP",
	Long: `Serve the devnet adapter over HTTP. Every successful swap, pause and
unpause is written back to the state file. Prometheus metrics are exposed on
/metrics.

Endpoints:
  GET  /status
  GET  /settlements
  GET  /balances/{token}/{account}
  POST /swap      {"caller": "0x...", "calldata": "0x..."}
  POST /pause     {"caller": "0x..."}
  POST /unpause   {"caller": "0x..."}
  GET  /metrics

Examples:
  swapper serve
  swapper serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default SWAPPER_LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogJSON)
	if err != nil {
		fail(cmd, err)
	}
	defer func() { _ = logger.Sync() }()

	rec := metrics.New()
	manager, err := devnet.NewManager(cfg.StatePath, devnet.WithLogger(logger), devnet.WithRecorder(rec))
	if err != nil {
		fail(cmd, err)
	}
	session, err := manager.Open()
	if err != nil {
		fail(cmd, err)
	}
	rec.SetPaused(session.Adapter.Paused())

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	srv := api.NewServer(addr, api.NewRouter(session, rec, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("state", manager.StatePath()),
			zap.String("adapter", session.World.Adapter.Hex()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if jsonOutput, _ := cmd.Flags().GetBool("json"); !jsonOutput {
		color.Green("\nServing adapter %s on http://%s", session.World.Adapter.Hex(), addr)
		color.HiBlack("Press Ctrl+C to stop.\n")
	}

	select {
	case err := <-errCh:
		if err != nil {
			fail(cmd, err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if err := session.Commit(); err != nil {
		logger.Error("failed to persist state on shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
