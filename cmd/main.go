package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/duel/internal/adapters/http/api"
	"github.com/okian/duel/internal/adapters/repository"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/config"
	"github.com/okian/duel/internal/simulate"
	"github.com/okian/duel/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		logger.Get().Error(ctx, "duel exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// options are the command-line flags layered over the loaded config.
type options struct {
	sim   simulate.Config
	serve bool
}

func parseFlags(args []string, out io.Writer) (options, error) {
	o := options{sim: simulate.DefaultConfig()}
	fs := flag.NewFlagSet("duel", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.sim.ContextID, "context", o.sim.ContextID, "Collection to seed and rank")
	fs.IntVar(&o.sim.Items, "items", o.sim.Items, "Established items to seed")
	fs.IntVar(&o.sim.Challengers, "challengers", o.sim.Challengers, "Catalog challengers to seed")
	fs.IntVar(&o.sim.Sessions, "sessions", o.sim.Sessions, "Simulated sessions to play, 0 skips the simulation")
	fs.IntVar(&o.sim.Rounds, "rounds", o.sim.Rounds, "Rounds per session, 0 plays until exhausted")
	fs.Float64Var(&o.sim.Noise, "noise", o.sim.Noise, "Voter noise, 0 always prefers the stronger item")
	fs.Float64Var(&o.sim.SkipRate, "skip", o.sim.SkipRate, "Probability of skipping a round")
	fs.IntVar(&o.sim.TopN, "top", o.sim.TopN, "Leaderboard entries to log")
	fs.BoolVar(&o.sim.Verbose, "verbose", o.sim.Verbose, "Log every round")
	fs.BoolVar(&o.serve, "serve", true, "Keep serving the ops API until interrupted")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	loggerInstance := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store := repository.NewMemoryStore(repository.WithLogger(loggerInstance.Named("repository")))
	svc := service.New(store,
		service.WithConfig(cfg),
		service.WithLogger(loggerInstance.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			loggerInstance.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = newServer(ctx, cfg.MetricsAddr, svc)
		go func() {
			loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
	}

	if opts.sim.Sessions > 0 {
		opts.sim.Seed = cfg.Seed
		if opts.sim.Seed == 0 {
			opts.sim.Seed = time.Now().UnixNano()
		}
		runner := simulate.NewRunner(svc, store, opts.sim,
			simulate.WithLogger(loggerInstance.Named("simulate")),
			simulate.WithSeedRating(cfg.DefaultRating),
		)
		if _, err := runner.Run(ctx); err != nil {
			shutdown(ctx, srv, loggerInstance)
			return fmt.Errorf("simulation failed: %w", err)
		}
	}

	if opts.serve && srv != nil {
		// Wait for shutdown signal
		<-ctx.Done()
		loggerInstance.Info(ctx, "shutting down server...")
	}
	shutdown(ctx, srv, loggerInstance)
	return nil
}

func newServer(ctx context.Context, addr string, svc *service.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// shutdown stops srv gracefully; a nil srv is a no-op.
func shutdown(ctx context.Context, srv *http.Server, log logger.Logger) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}
