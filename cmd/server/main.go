package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"triage-assist/internal/config"
	"triage-assist/internal/core"
	"triage-assist/internal/db"
	httpserver "triage-assist/internal/http"
	"triage-assist/internal/llm"
	"triage-assist/internal/logging"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	protocol := core.DefaultProtocol()
	if cfg.ProtocolFile != "" {
		p, err := core.LoadProtocolFile(cfg.ProtocolFile)
		if err != nil {
			return err
		}
		protocol = p
	}
	logger.Info("protocol loaded", zap.String("name", protocol.Name), zap.Int("gates", len(protocol.Gates)))

	// Initialize the remote generator (nil when no provider is configured)
	generator, err := llm.NewGenerator(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	if generator != nil {
		logger.Info("remote generator configured", zap.String("provider", generator.Name()))
	} else {
		logger.Info("no remote generator configured; local mode only")
	}
	engine, err := core.NewEngine(protocol)
	if err != nil {
		return err
	}
	triage := core.NewTriageService(engine, generator, cfg.LLM.Timeout, logger)

	g, ctx := errgroup.WithContext(ctx)

	var (
		runs     httpserver.RunStore
		notifier httpserver.RunNotifier
	)
	if cfg.Database.Enabled() {
		dbConn, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer dbConn.Close()
		runs = db.NewRepository(dbConn)
		n := db.NewNotifier(dbConn, cfg.Database.URL, cfg.Database.NotifyChannel, logger)
		notifier = n
		g.Go(func() error { return watchRedRuns(ctx, n, logger) })
	} else {
		logger.Info("DATABASE_URL not set; run history disabled")
	}

	srv, err := httpserver.NewServer(triage, runs, notifier, logger)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	dbConn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

// watchRedRuns logs every red run announced on the notify channel.  A
// failed LISTEN only disables the watcher.
func watchRedRuns(ctx context.Context, n *db.Notifier, logger *zap.Logger) error {
	ids, err := n.Listen(ctx)
	if err != nil {
		logger.Warn("red run watcher disabled", zap.String("channel", n.Channel), zap.Error(err))
		return nil
	}
	for id := range ids {
		logger.Warn("red triage run recorded", zap.String("run_id", id))
	}
	return nil
}
