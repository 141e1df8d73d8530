package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/guilda/internal/config"
	"github.com/example/guilda/internal/geo"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/observability"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total profile location messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

var errInvalidMessage = errors.New("invalid location message")

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	radapter := &redisAdapter{c: rc}

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.LocationTopic, GroupID: cfg.GroupID, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.LocationTopic, "brokers", cfg.KafkaBrokers, "group", cfg.GroupID)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff.String())
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()
		err = handleMessage(ctx, radapter, cfg.RedisGeoKey, m.Value, cfg.MaxAttempts, cfg.RetryDelay)
		switch {
		case errors.Is(err, errInvalidMessage):
			msgsInvalid.Inc()
			logger.Warn("invalid message", "offset", m.Offset, "error", err)
		case err != nil:
			redisErrors.Inc()
			observability.LocationUpdatesTotal.WithLabelValues("error").Inc()
			logger.Error("redis update failed", "key", string(m.Key), "error", err)
		default:
			redisUpdates.Inc()
			observability.LocationUpdatesTotal.WithLabelValues("ok").Inc()
		}
	}
}

// decodeLocation accepts profile_location events with a coordinate on Earth.
func decodeLocation(value []byte) (ingest.LocationUpdate, error) {
	var ev ingest.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return ingest.LocationUpdate{}, fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	if ev.Kind != ingest.EventProfileLocation {
		return ingest.LocationUpdate{}, fmt.Errorf("%w: unexpected kind %q", errInvalidMessage, ev.Kind)
	}
	var u ingest.LocationUpdate
	if err := json.Unmarshal(ev.Payload, &u); err != nil {
		return ingest.LocationUpdate{}, fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	if u.ProfileID == "" || u.Location.Lat < -85.05112878 || u.Location.Lat > 85.05112878 || u.Location.Lon < -180 || u.Location.Lon > 180 {
		return ingest.LocationUpdate{}, fmt.Errorf("%w: bad profile id or coordinate", errInvalidMessage)
	}
	return u, nil
}

func handleMessage(ctx context.Context, rc RedisUpdater, geoKey string, value []byte, attempts int, delay time.Duration) error {
	u, err := decodeLocation(value)
	if err != nil {
		return err
	}
	return updateRedisWithRetry(ctx, rc, geoKey, u, attempts, delay)
}

// RedisUpdater defines the small subset of redis operations we need for tests and production.
type RedisUpdater interface {
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	_, err := r.c.GeoAdd(ctx, key, loc).Result()
	return err
}

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

// updateRedisWithRetry writes the same GEO member and metadata hash as
// geo.RedisGeo, retrying each step with doubling delay.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, geoKey string, u ingest.LocationUpdate, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := rc.GeoAdd(ctx, geoKey, &redis.GeoLocation{Longitude: u.Location.Lon, Latitude: u.Location.Lat, Name: u.ProfileID}); err != nil {
			if i == attempts-1 || !sleep(ctx, delay) {
				return err
			}
			delay *= 2
			continue
		}
		if err := rc.HSet(ctx, geo.MetaKey(u.ProfileID), map[string]interface{}{"updated": time.Now().UTC().Format(time.RFC3339)}); err != nil {
			if i == attempts-1 || !sleep(ctx, delay) {
				return err
			}
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
