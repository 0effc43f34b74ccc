// Command agentgraph serves the configured agents over HTTP and runs the
// queued-job workers in the same process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ordo-ai/agentgraph"
	"github.com/ordo-ai/agentgraph/agent"
	"github.com/ordo-ai/agentgraph/config"
	"github.com/ordo-ai/agentgraph/history"
	"github.com/ordo-ai/agentgraph/logging"
	"github.com/ordo-ai/agentgraph/queue"
	"github.com/ordo-ai/agentgraph/runlog"
	"github.com/ordo-ai/agentgraph/server"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before the environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "agentgraph:", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logger := logging.NewZerologLogger(logging.Config{Level: level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	rt, err := agent.New(catalog, func(o *agent.Options) {
		o.Config = cfg
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	opts, cleanup, err := backends(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return err
	}
	defer cleanup()

	ag, err := agentgraph.New(rt, func(o *agentgraph.Options) {
		*o = opts
		o.RunTimeout = cfg.RunTimeout
		o.Workers = cfg.QueueWorkers
		o.Logger = logger
	})
	if err != nil {
		rt.Close()
		return err
	}
	defer ag.Close()

	srv := server.New(ag, func(o *server.Options) {
		o.Addr = cfg.HTTPAddr
		o.Logger = logger
	})

	logger.Info("agentgraph.starting",
		"addr", cfg.HTTPAddr,
		"agents", len(catalog.Agents),
		"default", rt.Default(),
		"history", cfg.HistoryBackend,
		"runs", cfg.RunStore,
		"queue", cfg.QueueBackend,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return ag.Serve(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("agentgraph.stopped")

	return nil
}

// backends opens the history store, run store and queue selected by cfg.
func backends(ctx context.Context, cfg *config.Config, logger logging.Logger) (agentgraph.Options, func(), error) {
	var (
		opts    agentgraph.Options
		closers []func()
	)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.HistoryBackend {
	case "redis":
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return opts, cleanup, err
		}

		closers = append(closers, func() { _ = rdb.Close() })
		opts.History = history.NewRedisStore(rdb, func(o *history.RedisOptions) {
			o.TTL = cfg.HistoryTTL
			o.Limit = cfg.HistoryLimit
			o.Logger = logger
		})
	default:
		opts.History = history.NewMemoryStore(cfg.HistoryLimit)
	}

	switch cfg.RunStore {
	case "mysql":
		store, err := runlog.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}

		closers = append(closers, func() { _ = store.Close() })
		opts.Runs = store
	default:
		opts.Runs = runlog.NewMemoryStore()
	}

	switch cfg.QueueBackend {
	case "redis":
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}

		opts.Queue = queue.NewRedisQueue(rdb, cfg.QueueName)
	case "rabbitmq":
		q, err := queue.DialRabbitMQ(cfg.RabbitMQURL, func(o *queue.RabbitMQOptions) { o.Queue = cfg.QueueName })
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}

		opts.Queue = q
	default:
		opts.Queue = queue.NewMemoryQueue(0)
	}

	return opts, cleanup, nil
}
