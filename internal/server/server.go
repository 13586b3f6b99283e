package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/motorbook/internal/booking"
	bookingdomain "github.com/smallbiznis/motorbook/internal/booking/domain"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/document"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/maintenance"
	"github.com/smallbiznis/motorbook/internal/observability"
	obsmiddleware "github.com/smallbiznis/motorbook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/motorbook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/motorbook/internal/observability/tracing"
	"github.com/smallbiznis/motorbook/internal/sequence"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	sequence.Module,
	document.Module,
	booking.Module,
	maintenance.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	documentSvc documentdomain.Service
	bookingSvc  bookingdomain.Service
	sequenceSvc sequencedomain.Service
	maintenance *maintenance.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	DocumentSvc documentdomain.Service
	BookingSvc  bookingdomain.Service
	SequenceSvc sequencedomain.Service
	Maintenance *maintenance.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		documentSvc: p.DocumentSvc,
		bookingSvc:  p.BookingSvc,
		sequenceSvc: p.SequenceSvc,
		maintenance: p.Maintenance,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/bookings/:id/confirm", s.ConfirmBooking)

	api.GET("/documents", s.ListDocuments)
	api.GET("/documents/export", s.ExportDocuments)
	api.GET("/documents/:id", s.GetDocumentByID)
	api.PATCH("/documents/:id/status", s.UpdateDocumentStatus)
	api.DELETE("/documents", s.AdminRequired(), s.DeleteDocuments)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AdminRequired())

	admin.GET("/sequences/:year", s.ListSequences)
	admin.GET("/sequences/:year/:key", s.PeekSequence)
	admin.POST("/sequences/:year/:key/reset", s.ResetSequence)
	admin.POST("/cleanup", s.Cleanup)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
