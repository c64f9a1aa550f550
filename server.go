package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"talklink/controllers"
	"talklink/middleware"
	"talklink/models"
	"talklink/pkg/bridge"
	"talklink/pkg/cache"
	"talklink/pkg/compose"
	"talklink/pkg/config"
	"talklink/pkg/hub"
	"talklink/pkg/relay"
	"talklink/pkg/store"
	"talklink/pkg/translate"
	"talklink/routes"
)

const (
	cacheSweepInterval = 5 * time.Minute
	shutdownTimeout    = 15 * time.Second
)

// buildApp wires every service. The returned cleanup releases them in reverse order.
func buildApp(cfg *config.Config, logger *logrus.Logger) (*controllers.App, func(), error) {
	st, err := store.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	engineType, err := translate.ParseEngineType(cfg.TranslationEngine)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	translator, err := translate.NewTranslator(translate.Config{
		Engine:            engineType,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		OpenRouterModel:   cfg.OpenRouterModel,
		GeminiAPIKey:      cfg.GeminiAPIKey,
		GeminiModel:       cfg.GeminiModel,
		Timeout:           cfg.OracleTimeout,
		Breaker: translate.BreakerSettings{
			MaxFailures: cfg.BreakerMaxFailures,
			OpenTimeout: cfg.BreakerOpenTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	tc := cache.NewTranslationCache(cfg.CacheMaxItems, cfg.CacheTTL)
	tc.StartJanitor(cacheSweepInterval)

	registry := hub.New(st, cfg.HistoryLimit, logger)
	bridges := bridge.NewManager(cfg.BridgeQueueSize, logger)
	bridges.Register(models.BridgeKindDiscord, bridge.NewDiscordGateway(logger))

	engine := relay.New(translator, tc, st, registry, bridges, logger)
	bridges.OnInbound(func(conversationID uint, author, text string) {
		engine.Submit(context.Background(), relay.Inbound{
			ConversationID: conversationID,
			Origin:         models.OriginBridge,
			Nickname:       author,
			Text:           text,
		})
	})

	app := &controllers.App{
		Config:  cfg,
		Store:   st,
		Engine:  engine,
		Hub:     registry,
		Bridges: bridges,
		Compose: compose.New(translator, st, logger),
		Limiter: middleware.NewLimiter(time.Duration(cfg.RateLimitWindowSeconds)*time.Second, cfg.RateLimitCapacity),
		Logger:  logger,
	}
	cleanup := func() {
		bridges.Close()
		engine.Wait()
		tc.Stop()
		_ = st.Close()
	}
	return app, cleanup, nil
}

func newRouter(app *controllers.App) *gin.Engine {
	if app.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if !app.Config.IsProduction() {
		r.Use(gin.Logger())
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, app)
	return r
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	cfg.LogSummary(logger)

	app, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	restoreCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	n, err := app.Bridges.Restore(restoreCtx, app.Store)
	cancel()
	if err != nil {
		logger.WithError(err).Warn("[bridge] restore failed")
	} else {
		logger.WithField("attached", n).Info("[bridge] restored integrations")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(app),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("[server] listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("[server] shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(ctx)
}
