package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	attendancehandler "shiftgate/internal/attendance/handler"
	"shiftgate/internal/attendance/metrics"
	"shiftgate/internal/attendance/ports"
	"shiftgate/internal/attendance/service"
	"shiftgate/internal/attendance/session"
	memstore "shiftgate/internal/attendance/store/memory"
	pgstore "shiftgate/internal/attendance/store/postgres"
	geofenceconfig "shiftgate/internal/geofence/config"
	"shiftgate/internal/journal"
	"shiftgate/internal/location"
	"shiftgate/internal/notify"
	notifykafka "shiftgate/internal/notify/kafka"
	"shiftgate/internal/platform/config"
	"shiftgate/internal/platform/httpserver"
	"shiftgate/internal/platform/logger"
	platformredis "shiftgate/internal/platform/redis"
	httptransport "shiftgate/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	loc, err := time.LoadLocation(cfg.BusinessTimeZone)
	if err != nil {
		return err
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var configProvider ports.ConfigProvider
	if redisClient != nil {
		configProvider = geofenceconfig.NewRedisProvider(redisClient.Client)
		log.Info("geofence config from redis")
	} else {
		configProvider = geofenceconfig.NewEnvProvider()
		log.Info("geofence config from environment")
	}

	var (
		shiftStore   ports.ShiftRecordStore
		journalStore journal.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, pgstore.Schema); err != nil {
			return err
		}
		shiftStore = pgstore.New(pool)

		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if _, err := db.ExecContext(ctx, journal.Schema); err != nil {
			return err
		}
		journalStore = journal.NewPostgresStore(db)
		log.Info("stores backed by postgres")
	} else {
		shiftStore = memstore.New()
		journalStore = journal.NewMemoryStore()
		log.Warn("no DATABASE_URL set, stores are in-memory")
	}

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kn, err := notifykafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaNotifyTopic)
		if err != nil {
			return err
		}
		defer kn.Close()
		notifier = kn
		log.Info("notifications to kafka", "topic", cfg.KafkaNotifyTopic)
	} else {
		notifier = notify.NewSlogNotifier(log)
	}

	sink := journal.NewSink(cfg.JournalBuffer, log)
	worker := journal.NewWorker(journalStore, sink, log)

	feed := location.NewDeviceFeed()
	sessions := session.NewManager(feed.ForEmployee, configProvider, session.WithLogger(log))
	defer sessions.Deactivate()

	svc, err := service.New(shiftStore, configProvider, sessions,
		service.WithLogger(log),
		service.WithNotifier(notifier),
		service.WithJournal(sink),
		service.WithMetrics(metrics.New()),
		service.WithTimeZone(loc),
	)
	if err != nil {
		return err
	}

	h := attendancehandler.New(svc, sessions, feed, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(h, log))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting shiftgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
