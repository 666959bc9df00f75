package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/seltzer-io/seltzerd/internal/browser"
	"github.com/seltzer-io/seltzerd/internal/config"
	"github.com/seltzer-io/seltzerd/internal/dispatch"
	"github.com/seltzer-io/seltzerd/internal/server"
	"github.com/seltzer-io/seltzerd/internal/session"
)

var (
	// Global flags
	cfgPath  string
	verbose  bool
	headless bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "seltzerd",
	Short: "seltzerd - networked browser automation server",
	Long: `seltzerd accepts JSON command descriptors over a TCP socket and executes
them against concurrently-open browser sessions, each backed by its own
Chromium instance.

Clients start a session, address it by id, drive it with navigation,
selector, cookie, wait and chain commands, and exit it. Idle and abandoned
sessions are evicted by a background reaper.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless.Enabled = headless
	}

	state := config.NewState()
	if cfg.Headless.Enabled {
		if err := state.SetHeadless(true, cfg.Headless.LockedOrDefault()); err != nil {
			return err
		}
	}

	store := session.NewStore()
	lifecycle := session.NewLifecycle(store, browser.NewFactory(), state, cfg, logger)
	reaper := session.NewReaper(store, lifecycle,
		cfg.Session.NeverUsed(), cfg.Session.Inactive(), cfg.Session.Reap(), logger)
	dispatcher := dispatch.NewDispatcher(store, lifecycle, logger)
	srv := server.New(cfg.ListenAddr, dispatcher, logger)

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("bind %s: %w", cfg.ListenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("seltzerd listening",
		zap.String("addr", srv.Addr().String()),
		zap.Bool("headless", cfg.Headless.Enabled))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reaper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})

	err = g.Wait()

	// Drain whatever sessions shutdown caught mid-life.
	for _, sess := range store.All() {
		_ = lifecycle.Close(sess)
	}
	logger.Info("seltzerd stopped")
	return err
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run browsers headless (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
