package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"

	"github.com/solacewell/gatekeeper/classifier"
	"github.com/solacewell/gatekeeper/countstore"
	"github.com/solacewell/gatekeeper/enforce"
	"github.com/solacewell/gatekeeper/engine"
	"github.com/solacewell/gatekeeper/gaming"
	"github.com/solacewell/gatekeeper/modqueue"
	"github.com/solacewell/gatekeeper/quota"
	"github.com/solacewell/gatekeeper/ratelimit"
	"github.com/solacewell/gatekeeper/util/cliutil"
)

// tier changes also invalidate eagerly via the admin endpoint
const tierCacheTTL = 30 * time.Minute

type Server struct {
	logger    *slog.Logger
	engine    *engine.Engine
	directory *DBDirectory
	rulesFile string
}

type Config struct {
	DatabaseURL      string
	MaxDBConnections int
	RedisURL         string
	RulesFile        string
	WebhookURL       string
	Logger           *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	directory, err := NewDBDirectory(db)
	if err != nil {
		return nil, fmt.Errorf("migrating directory tables: %w", err)
	}

	var counters countstore.CountStore
	var tierCache quota.TierCache
	var limits ratelimit.LimitStore
	if config.RedisURL != "" {
		// check the connection up front, the stores share it lazily
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		if _, err := redis.NewClient(opt).Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		tch, err := quota.NewRedisTierCache(config.RedisURL, tierCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis tier cache: %v", err)
		}
		tierCache = tch

		lim, err := ratelimit.NewRedisLimitStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis limitstore: %v", err)
		}
		limits = lim
	} else {
		counters = countstore.NewMemCountStore()
		tierCache = quota.NewMemTierCache(5_000, tierCacheTTL)
		limits = ratelimit.NewMemLimitStore()
	}

	catalog := classifier.DefaultCatalog()
	if config.RulesFile != "" {
		catalog, err = classifier.LoadCatalogJSON(config.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading rule catalog: %w", err)
		}
		logger.Info("loaded rule catalog from JSON", "path", config.RulesFile)
	}

	// subject activation is owned by the host application, which reacts to
	// queue resolutions via its own polling; no direct side channel here
	queue, err := modqueue.NewStore(db, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing moderation queue: %w", err)
	}
	violations, err := enforce.NewStore(db, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing violations store: %w", err)
	}

	tracker := quota.NewTracker(counters, directory, tierCache, logger)
	limiter := ratelimit.NewLimiter(limits)
	analyzer := gaming.NewAnalyzer(directory)

	eng := engine.New(logger, classifier.New(catalog, logger), tracker, limiter, analyzer, queue, violations)
	if config.WebhookURL != "" {
		eng.Notifier = engine.NewWebhookNotifier(config.WebhookURL)
	}

	return &Server{
		logger:    logger,
		engine:    eng,
		directory: directory,
		rulesFile: config.RulesFile,
	}, nil
}

// ReloadRules re-reads the rule catalog file and swaps the classifier
// without dropping in-flight requests.
func (s *Server) ReloadRules() error {
	if s.rulesFile == "" {
		return nil
	}
	catalog, err := classifier.LoadCatalogJSON(s.rulesFile)
	if err != nil {
		return err
	}
	s.engine.SetClassifier(classifier.New(catalog, s.logger))
	s.logger.Info("rule catalog reloaded", "path", s.rulesFile)
	return nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) RunAPI(ctx context.Context, bind string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/_health", s.handleHealthCheck)

	e.POST("/content/check", s.handleCheckContent)
	e.POST("/content/moderate", s.handleAutoModerate)
	e.POST("/content/submit", s.handleSubmitContent)

	e.GET("/queue", s.handlePendingQueue)
	e.POST("/queue/:id/resolve", s.handleResolveQueueItem)
	e.GET("/queue/:id/log", s.handleQueueLog)

	e.POST("/usage/check", s.handleCheckUsage)
	e.POST("/usage/record", s.handleRecordUsage)
	e.POST("/ratelimit/check", s.handleCheckRateLimit)

	e.GET("/users/:id/violations", s.handleUserViolations)
	e.GET("/users/:id/queue", s.handleUserQueueHistory)
	e.PUT("/users/:id/tier", s.handleSetUserTier)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP shutdown failed", "err", err)
		}
	}()

	s.logger.Info("starting API server", "bind", bind)
	if err := e.Start(bind); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
