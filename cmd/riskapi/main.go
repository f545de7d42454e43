package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/redisstore"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/snapshot"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/config"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/health"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/httpclient"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/router"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/server"
	"github.com/mohammed-shakir/climate-risk-cache/internal/envdata"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
	"github.com/mohammed-shakir/climate-risk-cache/internal/hotness"
	"github.com/mohammed-shakir/climate-risk-cache/internal/intervention"
	"github.com/mohammed-shakir/climate-risk-cache/internal/logger"
	h3mapper "github.com/mohammed-shakir/climate-risk-cache/internal/mapper/h3"
	"github.com/mohammed-shakir/climate-risk-cache/internal/metrics"
	"github.com/mohammed-shakir/climate-risk-cache/internal/nasa"
	"github.com/mohammed-shakir/climate-risk-cache/internal/risk"
	"github.com/mohammed-shakir/climate-risk-cache/internal/riskevents"
	"github.com/mohammed-shakir/climate-risk-cache/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	restore := flag.Bool("restore", false, "restore the cache snapshot from redis before serving")
	flag.Parse()

	cfg := config.FromEnv()
	if cfg.Version == "dev" {
		cfg.Version = Version
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "climate-risk-cache",
		Component: "riskapi",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
		Path:    "/metrics",
		Build: metrics.BuildInfo{
			Version:   cfg.Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(p.Registerer())

	appLog.Info("starting risk api",
		"addr", cfg.Addr,
		"version", cfg.Version,
		"nasa_enabled", cfg.NASAEnabled,
		"redis", cfg.Redis.Addr != "",
		"invalidation", cfg.Invalidation.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := p.Serve(ctx, appLog); err != nil {
			appLog.Error("metrics listener exited", "err", err)
		}
	}()

	cache := manager.New(cfg.CachePartitions(), manager.WithLogger(appLog))
	cache.StartJanitors(ctx, cfg.CacheJanitor)
	hot := hotness.New(cfg.HotnessHalfLife)
	hot.StartPruner(cfg.CacheJanitor, ctx.Done())

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rnd := estimate.NewRand(seed)

	var pub risk.Publisher
	if cfg.Events.Enabled {
		ep, err := riskevents.NewPublisher(kafka.SplitCSV(cfg.Events.Brokers), cfg.Events.Topic, cfg.Events.QueueSize, appLog)
		if err != nil {
			// assessments still work without the event stream
			appLog.Warn("assessment events disabled", "err", err)
		} else {
			pub = ep
			defer func() {
				if err := ep.Close(); err != nil {
					appLog.Warn("close assessment publisher", "err", err)
				}
			}()
		}
	}

	engine := risk.NewEngine(estimate.New(rnd),
		risk.WithMapper(h3mapper.New(cfg.H3Res)),
		risk.WithLogger(appLog))
	riskSvc := risk.NewService(engine, cache, pub, appLog)

	var upstream envdata.Fetcher
	if cfg.NASAEnabled {
		nc, err := nasa.New(appLog, httpclient.NewOutbound(cfg.NASATimeout), cfg.NASABaseURL)
		if err != nil {
			appLog.Error("failed to initialize nasa power client", "err", err)
			return 1
		}
		upstream = nc
	}
	dataSvc := envdata.New(upstream, cache,
		envdata.WithRand(rnd),
		envdata.WithLogger(appLog),
		envdata.WithTimeout(cfg.NASATimeout))

	snap := openSnapshots(ctx, cfg, appLog)
	if snap != nil {
		defer snap.close()
		if cfg.Redis.RestoreOnStart || *restore {
			n, err := snap.Restore(ctx, cache)
			if err != nil {
				appLog.Warn("snapshot restore failed", "err", err)
			} else {
				appLog.Info("snapshot restored", "entries", n)
			}
		}
	}

	ready := map[string]health.ReadinessReporter{}
	invCfg := invalidationConfig(cfg)
	if invCfg.Enabled {
		runner := kafka.New(invCfg, cache, kafka.Options{Logger: appLog, Register: p.Registerer()})
		if err := runner.Start(ctx); err != nil {
			appLog.Error("invalidation runner failed to start", "err", err)
			return 1
		}
		defer runner.Stop()
		ready["invalidation"] = runner
	}

	deps := server.Deps{
		Handlers: &router.Handlers{
			Risk:          riskSvc,
			Data:          dataSvc,
			Interventions: intervention.NewService(cache, appLog),
			Cache:         cache,
			Hotness:       hot,
			Log:           appLog,
		},
		Metrics: p.Handler(),
		Ready:   ready,
	}
	err := server.Run(ctx, cfg, appLog, deps)

	if snap != nil && cfg.Redis.SnapshotOnShutdown {
		dumpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		n, derr := snap.Dump(dumpCtx, cache)
		cancel()
		if derr != nil {
			appLog.Warn("snapshot dump failed", "err", derr)
		} else {
			appLog.Info("snapshot written", "entries", n)
		}
	}

	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

type snapshots struct {
	*snapshot.Snapshotter
	client *redisstore.Client
	log    *slog.Logger
}

func (s *snapshots) close() {
	if err := s.client.Close(); err != nil {
		s.log.Warn("close redis", "err", err)
	}
}

// openSnapshots connects to Redis when an address is configured. Failure to
// connect is logged and snapshots are skipped.
func openSnapshots(ctx context.Context, cfg config.Config, log *slog.Logger) *snapshots {
	if cfg.Redis.Addr == "" {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := redisstore.New(dialCtx, cfg.Redis.Addr,
		redisstore.WithPassword(cfg.Redis.Password),
		redisstore.WithDB(cfg.Redis.DB))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("redis unavailable, snapshots disabled", "addr", cfg.Redis.Addr, "err", err)
		}
		return nil
	}
	return &snapshots{
		Snapshotter: snapshot.New(client,
			snapshot.WithPrefix(cfg.Redis.SnapshotPrefix),
			snapshot.WithTTL(cfg.Redis.SnapshotTTL),
			snapshot.WithLogger(log)),
		client: client,
		log:    log,
	}
}

func invalidationConfig(cfg config.Config) kafka.InvalidationConfig {
	ic := kafka.DefaultConfig()
	ic.Enabled = cfg.Invalidation.Enabled
	ic.Driver = kafka.Driver(strings.ToLower(strings.TrimSpace(cfg.Invalidation.Driver)))
	if b := kafka.SplitCSV(cfg.Invalidation.Brokers); len(b) > 0 {
		ic.Brokers = b
	}
	if cfg.Invalidation.Topic != "" {
		ic.Topic = cfg.Invalidation.Topic
	}
	if cfg.Invalidation.GroupID != "" {
		ic.GroupID = cfg.Invalidation.GroupID
	}
	return ic
}
