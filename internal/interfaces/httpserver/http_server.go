package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	keysapidocs "skim-server/keys-api/docs/swagger"
	"skim-server/keys-api/internal/config"
	"skim-server/keys-api/internal/domain/apikey"
	"skim-server/keys-api/internal/domain/summary"
	"skim-server/keys-api/internal/domain/user"
	"skim-server/keys-api/internal/infrastructure/auth"
	"skim-server/keys-api/internal/interfaces/httpserver/handlers"
	"skim-server/keys-api/internal/interfaces/httpserver/middlewares"
	v1 "skim-server/keys-api/internal/interfaces/httpserver/routes/v1"
)

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
	auth   *auth.Validator
	db     *gorm.DB
}

// New constructs the HTTP server with default middleware and routes.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	db *gorm.DB,
	keyService *apikey.Service,
	summaryService *summary.Service,
	userService *user.Service,
	authValidator *auth.Validator,
) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	keysapidocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.LoggingMiddleware(log),
		middlewares.CORSMiddleware(),
		middlewares.MetricsMiddleware(),
	)

	srv := &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
		auth:   authValidator,
		db:     db,
	}

	srv.registerCoreRoutes()

	api := engine.Group("/")
	api.Use(
		middlewares.AuthMiddleware(authValidator, userService, log),
		middlewares.RateLimitMiddleware(cfg.RateLimitPerMinute),
	)
	handlerProvider := handlers.NewProvider(keyService, summaryService, log)
	v1.NewRoutes(handlerProvider).Register(api)

	return srv
}

// Run starts the HTTP and metrics listeners and handles graceful shutdown
// via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}
	metricsServer := &http.Server{
		Addr:    s.cfg.MetricsAddr(),
		Handler: promhttp.Handler(),
	}

	var eg errgroup.Group
	eg.Go(func() error {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("keys-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		s.log.Info().Str("addr", s.cfg.MetricsAddr()).Msg("metrics listener up")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.log.Info().Msg("context cancelled, shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("metrics server shutdown")
		}
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *HttpServer) registerCoreRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": s.cfg.ServiceName, "version": config.Version, "status": "ok"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/readyz", func(c *gin.Context) {
		if !s.auth.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing", "reason": "jwks"})
			return
		}
		sqlDB, err := s.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing", "reason": "database"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if s.cfg.EnableSwagger {
		s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
