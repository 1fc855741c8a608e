package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph viewer and its data endpoints",
	Long: "Serve the graph viewer and its data endpoints.\n\n" +
		"SIGHUP re-reads the memory store's seed and report and drops cached event lookups.",
	Example: `  relgraph serve --addr :8080
  RELGRAPH_SEED=seed.json RELGRAPH_IMPORT=report.csv relgraph serve
  RELGRAPH_STORE=postgres RELGRAPH_DSN=postgres://localhost/relgraph relgraph serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(server.Config{
		Service:        relations.NewService(store, logger.Named("relations")),
		Logger:         logger.Named("http"),
		Viewport:       layout.Viewport{Width: cfg.View.Width, Height: cfg.View.Height},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EventCacheSize: cfg.Server.EventCacheSize,
		EventCacheTTL:  cfg.Server.EventCacheTTL.Duration,
		DisableLive:    cfg.Server.DisableLive,
	})
	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     srv,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watchReload(gctx, hangup, store.reload, srv.Purge, logger)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Driver))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// watchReload reloads the data and purges cached lookups on every signal
// until ctx is done. A failed reload keeps serving what was loaded before.
func watchReload(ctx context.Context, sig <-chan os.Signal, reload func(context.Context) error, purge func(), logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := reload(ctx); err != nil {
				logger.Error("reload failed", zap.Error(err))
				continue
			}
			purge()
			logger.Info("reloaded data")
		}
	}
}
