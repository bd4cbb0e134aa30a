// bookingd supervises the shared booking database: it creates the schema,
// seeds the catalog, serves health and metrics endpoints and runs the backup
// loop. Chat front ends attach to the same sqlite file.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/catalog"
	"github.com/Mahbub143625/telegram-booking-bot/internal/config"
	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
	"github.com/Mahbub143625/telegram-booking-bot/internal/ledger"
	"github.com/Mahbub143625/telegram-booking-bot/internal/metrics"
	"github.com/Mahbub143625/telegram-booking-bot/internal/notify"
)

func main() {
	_ = godotenv.Load(".env")

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BOOKING_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.New(db, &logger)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		cat.UseRedisCache(rdb, cfg.CacheTTL())
	}

	if err := cat.Seed(ctx, catalog.SeedDefaults{
		ServiceName:     cfg.Seed.ServiceName,
		DurationMinutes: cfg.Seed.DurationMinutes,
		Price:           cfg.Seed.Price,
		StepMinutes:     cfg.Seed.StepMinutes,
		Resources:       seedResources(cfg),
	}); err != nil {
		logger.Fatal().Err(err).Msg("seed catalog error")
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Database.Path, database.BackupConfig{
			Enabled:       true,
			IntervalHours: cfg.Backup.IntervalHours,
			Path:          cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backup.Start(ctx)
	}

	// Booking transitions made through this process land in the journal;
	// chat front ends swap in their own Sender the same way.
	bus := notify.NewBus()
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
		QueueSize:     cfg.Notify.QueueSize,
	}, logSender{logger: &logger}, &logger)
	dispatcher.Attach(bus)
	go dispatcher.Run(ctx)

	led := ledger.New(db, &logger)
	led.UseBus(bus)
	paid, err := led.CountPaid(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("read ledger error")
	}

	logger.Info().Str("db", cfg.Database.Path).Int("paid_bookings", paid).Msg("bookingd started")
	<-ctx.Done()
	logger.Info().Msg("bookingd stopped")
}

func seedResources(cfg *config.Config) []catalog.SeedResource {
	out := make([]catalog.SeedResource, 0, len(cfg.Seed.Resources))
	for _, r := range cfg.Seed.Resources {
		out = append(out, catalog.SeedResource{
			Name:      r.Name,
			Capacity:  r.Capacity,
			OpenTime:  r.OpenTime,
			CloseTime: r.CloseTime,
		})
	}
	return out
}

// logSender writes rendered notifications to the journal.
type logSender struct {
	logger *zerolog.Logger
}

func (s logSender) Send(_ context.Context, msg notify.Message) error {
	s.logger.Info().Str("type", msg.Event.Type).Msg(msg.Text)
	return nil
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
