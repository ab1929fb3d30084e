package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aletabank-assistant/internal/common/config"
	"aletabank-assistant/internal/common/database"
	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"

	"aletabank-assistant/internal/bankdata"
	"aletabank-assistant/internal/catalog"
	"aletabank-assistant/internal/fallback"
	"aletabank-assistant/internal/formatter"
	"aletabank-assistant/internal/nlu/embedmatch"
	"aletabank-assistant/internal/nlu/encoder"
	"aletabank-assistant/internal/nlu/patternmatch"
	"aletabank-assistant/internal/nlu/slots"
	"aletabank-assistant/internal/resolver"
	"aletabank-assistant/internal/session"
	"aletabank-assistant/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zl.Sync()
	log := logger.NewZapAdapter(zl)

	log.Info("Starting assistant", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	// The catalog and encoder are the only shared NLU state. A catalog
	// failure is fatal: without it no utterance can be resolved.
	enc := encoder.Shared(cfg.NLU.EncoderDims)
	cat, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.SchemaPath, enc)
	if err != nil {
		log.WithError(err).Error("Intent catalog failed to load", map[string]interface{}{
			"path":  cfg.Catalog.Path,
			"fatal": apperrors.IsFatal(err),
		})
		os.Exit(1)
	}
	log.Info("Intent catalog loaded", map[string]interface{}{
		"intents": cat.Len(),
		"dims":    enc.Dims(),
	})

	pg, err := connectPostgres(cfg, log)
	if err != nil {
		log.WithError(err).Error("Postgres unavailable", nil)
		os.Exit(1)
	}
	defer pg.Close()

	rd, err := connectRedis(cfg, log)
	if err != nil {
		log.WithError(err).Error("Redis unavailable", nil)
		os.Exit(1)
	}
	defer rd.Close()

	orch := resolver.New(resolver.Deps{
		Catalog:  cat,
		Embed:    embedmatch.New(cat, enc, cfg.NLU.EmbeddingThreshold),
		Pattern:  patternmatch.New(cat),
		Slots:    slots.NewExtractor(),
		Data:     bankdata.NewPostgresStore(pg.DB, log),
		External: fallback.NewHTTPClient(cfg.Fallback.BaseURL, time.Duration(cfg.Fallback.Timeout)*time.Millisecond, log),
		Sessions: session.NewRedisStore(rd.Client, time.Duration(cfg.Session.TTL)*time.Second, log),
		Format:   formatter.New(),
		Log:      log,
	})

	conn, err := transport.Connect(cfg.NATS, log)
	if err != nil {
		log.WithError(err).Error("NATS unavailable", nil)
		os.Exit(1)
	}
	server := transport.NewNATSServer(conn, cfg.NATS.ResolveSubject, time.Duration(cfg.NATS.Timeout)*time.Millisecond, orch, log)
	if err := server.Start(); err != nil {
		log.WithError(err).Error("Failed to start transport", nil)
		os.Exit(1)
	}
	defer server.Close()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, log)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Shutting down", map[string]interface{}{"signal": sig.String()})
}

// connectPostgres dials the bank database, retrying with backoff so a slow
// database start does not kill the service.
func connectPostgres(cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := retryWithBackoff(5, 2*time.Second, log, "postgres", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	}); err != nil {
		return nil, err
	}
	return pg, nil
}

func connectRedis(cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	rd, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	if err := retryWithBackoff(5, 2*time.Second, log, "redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return rd.Ping(ctx)
	}); err != nil {
		return nil, err
	}
	return rd, nil
}

func retryWithBackoff(attempts int, wait time.Duration, log logger.Logger, name string, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		log.WithError(err).Warn("Connection attempt failed", map[string]interface{}{
			"target":  name,
			"attempt": i,
			"retryIn": wait.String(),
		})
		if i < attempts {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return err
}

func serveMetrics(address string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	log.Info("Metrics endpoint up", map[string]interface{}{"address": address})
	if err := http.ListenAndServe(address, mux); err != nil {
		log.WithError(err).Error("Metrics server stopped", nil)
	}
}
