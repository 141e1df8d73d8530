package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/example/guilda/internal/auth"
	"github.com/example/guilda/internal/chat"
	"github.com/example/guilda/internal/completion"
	"github.com/example/guilda/internal/config"
	"github.com/example/guilda/internal/dispatch"
	"github.com/example/guilda/internal/geo"
	httpapi "github.com/example/guilda/internal/http"
	"github.com/example/guilda/internal/ingest"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/matching"
	"github.com/example/guilda/internal/media"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/payments"
	"github.com/example/guilda/internal/session"
	"github.com/example/guilda/internal/storage"
	"github.com/example/guilda/internal/vendor"
	"github.com/example/guilda/internal/verification"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var rc *redis.Client
	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
	}

	var locator geo.Locator = geo.NewIndex()
	var sessionStore auth.SessionStore = auth.NewMemorySessionStore()
	if rc != nil {
		locator = geo.NewRedisGeo(rc, cfg.RedisGeoKey)
		sessionStore = auth.NewRedisSessionStore(rc)
	}
	if err := indexProfiles(ctx, store, locator); err != nil {
		logger.Warn("initial geo index failed", "error", err)
	}

	var publisher ingest.Publisher = ingest.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaLocationTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	llm, err := completionClient(ctx, cfg)
	if err != nil {
		return err
	}
	if llm == nil {
		logger.Warn("no completion API key configured; merchant replies use the fallback text")
	}

	ws := dispatch.NewWSRegistry(logger)
	var pusher dispatch.Pusher = ws
	if cfg.PushWebhookURL != "" {
		pusher = dispatch.NewPushDispatcher(cfg.PushWebhookURL, ws, logger)
	}

	var mailer verification.Mailer = verification.LogMailer{Logger: logger}
	if cfg.ResendAPIKey != "" {
		mailer = verification.NewResendMailer(cfg.ResendAPIKey, "")
	}
	verify := verification.NewService(store, mailer, cfg.EmailFrom, cfg.PublicOrigin, logger)
	authSvc := auth.NewService(store, store, sessionStore, auth.WithVerifier(verify), auth.WithLogger(logger))

	var responder chat.Responder = chat.NewTemplateResponder(cfg.Chat.TemplateDelay, nil)
	if cfg.Chat.Responder == "completion" {
		if llm == nil {
			return errors.New("CHAT_RESPONDER=completion needs LLM_API_KEY or GENAI_API_KEY")
		}
		responder = &chat.CompletionResponder{Client: llm}
	}
	chatSvc := &chat.Service{
		Store:     store,
		Profiles:  store,
		Responder: responder,
		Pusher:    pusher,
		Timeout:   cfg.Chat.CompletionTimeout,
		Logger:    logger,
	}

	matcher := &matching.Service{
		Profiles: store,
		Locator:  locator,
		Filter:   matching.NewFilter(matching.DefaultsFromConfig(cfg.Match)),
		Limit:    cfg.Match.CandidateLimit,
		Logger:   logger,
	}
	sessions := &session.Registry{
		Decks:         matcher,
		Decisions:     store,
		Conversations: chatSvc,
		Publisher:     publisher,
		Pusher:        pusher,
		RequireMutual: cfg.Match.RequireMutual,
		Logger:        logger,
	}

	var processor payments.Processor = payments.SimulatedProcessor{Delay: cfg.PaymentProcessingDelay}
	if cfg.StripeTestKey != "" {
		sp, err := payments.NewStripeTestProcessor(cfg.StripeTestKey, "")
		if err != nil {
			return fmt.Errorf("stripe processor: %w", err)
		}
		processor = sp
	}
	freight := models.Cents(cfg.FreightCents)
	paySvc := payments.NewService(store, processor, publisher, freight, logger)
	vendorSvc := &vendor.Service{
		Store:   store,
		Client:  llm,
		Pusher:  pusher,
		Freight: freight,
		Timeout: cfg.Chat.CompletionTimeout,
		Logger:  logger,
	}

	var presigner *media.S3Presigner
	if cfg.S3Bucket != "" {
		presigner, err = media.NewS3Presigner(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			return fmt.Errorf("s3 presigner: %w", err)
		}
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Store:        store,
		Auth:         authSvc,
		Sessions:     sessions,
		Chat:         chatSvc,
		Vendor:       vendorSvc,
		Payments:     paySvc,
		Verification: verify,
		Completion:   llm,
		Media:        presigner,
		Locator:      locator,
		Publisher:    publisher,
		WS:           ws,
	}, httpapi.Options{CORSOrigins: cfg.CORSOrigins, ServeMetrics: cfg.MetricsAddr == "", Logger: logger})

	servers := []*http.Server{{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadTimeout: cfg.ReadTimeout})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, hs := range servers {
		hs := hs
		g.Go(func() error {
			logger.Info("guilda listening", "addr", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", hs.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		var errs []error
		for _, hs := range servers {
			if err := hs.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (storage.Store, error) {
	if cfg.PGDSN == "" {
		logger.Info("using in-memory store")
		return storage.NewSeededMemoryStore(), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ps, err := storage.NewPostgresStore(connectCtx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.RunMigrations {
		b, err := os.ReadFile(filepath.Join("migrations", "001_init.sql"))
		if err != nil {
			ps.Close()
			return nil, fmt.Errorf("read migration: %w", err)
		}
		if err := ps.Migrate(ctx, string(b)); err != nil {
			ps.Close()
			return nil, fmt.Errorf("apply migration: %w", err)
		}
		logger.Info("migration applied", "file", "001_init.sql")
		if err := storage.Seed(ctx, ps); err != nil {
			ps.Close()
			return nil, err
		}
	}
	return ps, nil
}

// indexProfiles loads every onboarded profile with a location into the geo
// prefilter.
func indexProfiles(ctx context.Context, store storage.Store, locator geo.Locator) error {
	profiles, err := store.Candidates(ctx, "", 0)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.Location == nil {
			continue
		}
		if err := locator.Upsert(ctx, p.ID, *p.Location); err != nil {
			return err
		}
	}
	return nil
}

func completionClient(ctx context.Context, cfg config.ServerConfig) (completion.Client, error) {
	switch cfg.LLM.Provider {
	case "genai":
		if cfg.LLM.GenAIAPIKey == "" {
			return nil, nil
		}
		c, err := completion.NewGenAIClient(ctx, completion.GenAIConfig{APIKey: cfg.LLM.GenAIAPIKey, Model: cfg.LLM.GenAIModel})
		if err != nil {
			return nil, fmt.Errorf("genai client: %w", err)
		}
		return c, nil
	default:
		if cfg.LLM.APIKey == "" {
			return nil, nil
		}
		return completion.NewGatewayClient(completion.GatewayConfig{
			BaseURL: cfg.LLM.GatewayURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.Chat.CompletionTimeout,
		}), nil
	}
}
