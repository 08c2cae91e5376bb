package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/answers"
	"github.com/ShayCichocki/anvil/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and serve the HTTP API",
	Long: `Start the engine and expose it over HTTP.

Endpoints:
  POST   /v1/jobs                start a job
  GET    /v1/jobs                list jobs
  GET    /v1/jobs/:id            job status with attempts
  DELETE /v1/jobs/:id            cancel a job
  POST   /v1/jobs/:id/answers    answer a pending question
  POST   /v1/jobs/:id/feedback   send reviewer feedback
  GET    /v1/events              websocket event stream
  GET    /metrics                Prometheus metrics
  GET    /healthz                liveness

Answers can also be dropped as files into <data-dir>/answers/ named
<job-id>_<question-id>.txt; the server watches the directory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	rt, err := buildRuntime(cfg, logger, true)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := answers.NewWatcher(answers.Dir(cfg.DataDir()), rt.engine, logger)
	if err != nil {
		logger.Warn("answers drop directory unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(); err != nil {
			logger.Warn("answers watcher failed to start", zap.Error(err))
		}
		defer watcher.Close()
	}

	go janitor(ctx, rt, logger)

	srv := server.New(rt.engine, rt.registry, logger)
	if err := srv.Run(ctx, cfg.Server.Listen); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.engine.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// janitor periodically reclaims engine memory: conversations idle past
// the gate's cleanup window, then terminal jobs past the retention
// window. Job rows stay in the database until anvil cleanup.
func janitor(ctx context.Context, rt *runtime, logger *zap.Logger) {
	retain := rt.cfg.Jobs.RetainTerminal
	idle := rt.cfg.Gate.IdleCleanupAfter
	if retain <= 0 && idle <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval(retain, idle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := rt.engine.CleanupIdleConversations(idle); dropped > 0 {
				logger.Debug("janitor dropped idle conversations", zap.Int("count", dropped))
			}
			if retain > 0 {
				if removed := rt.engine.CleanupTerminal(retain); removed > 0 {
					logger.Debug("janitor removed terminal jobs", zap.Int("count", removed))
				}
			}
		}
	}
}

// sweepInterval derives the tick from the shortest active window, with
// a floor so sweeps never run hot.
func sweepInterval(retain, idle time.Duration) time.Duration {
	window := retain
	if window <= 0 || (idle > 0 && idle < window) {
		window = idle
	}
	interval := window / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
