package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tallybridge/internal/auth"
	"github.com/smallbiznis/tallybridge/internal/authorization"
	"github.com/smallbiznis/tallybridge/internal/config"
	dashboarddomain "github.com/smallbiznis/tallybridge/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/tallybridge/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/tallybridge/internal/ledger/domain"
	"github.com/smallbiznis/tallybridge/internal/observability"
	obsmiddleware "github.com/smallbiznis/tallybridge/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tallybridge/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tallybridge/internal/observability/tracing"
	synclogdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"github.com/smallbiznis/tallybridge/internal/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   obsCfg.ServiceName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.DefaultConfig()
	switch {
	case len(cfg.CORSOrigins) > 0:
		c.AllowOrigins = cfg.CORSOrigins
		c.AllowCredentials = true
	case cfg.IsProduction():
		// cors.New rejects an empty allowlist.
		c.AllowOrigins = []string{"http://localhost:3000"}
	default:
		c.AllowAllOrigins = true
	}
	c.AddAllowMethods(http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions)
	c.AddAllowHeaders("Authorization", "Content-Type", "X-Request-Id")
	c.AddExposeHeaders("Content-Length", "X-Request-Id")
	return c
}

type engineParams struct {
	fx.In

	Cfg         config.Config
	ObsCfg      observability.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.Cfg, p.ObsCfg, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":5000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	tokens       *auth.Tokens
	authzSvc     authorization.Service
	gateway      *tally.Gateway
	ledgerSvc    ledgerdomain.Service
	invoiceSvc   invoicedomain.Service
	syncLogSvc   synclogdomain.Service
	dashboardSvc dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Tokens       *auth.Tokens
	AuthzSvc     authorization.Service
	Gateway      *tally.Gateway
	LedgerSvc    ledgerdomain.Service
	InvoiceSvc   invoicedomain.Service
	SyncLogSvc   synclogdomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		tokens:       p.Tokens,
		authzSvc:     p.AuthzSvc,
		gateway:      p.Gateway,
		ledgerSvc:    p.LedgerSvc,
		invoiceSvc:   p.InvoiceSvc,
		syncLogSvc:   p.SyncLogSvc,
		dashboardSvc: p.DashboardSvc,
	}

	svc.registerAuthRoutes()
	svc.registerTallyRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	if s.cfg.IsProduction() {
		return
	}
	s.engine.POST("/api/auth/token", s.IssueToken)
}

func (s *Server) registerTallyRoutes() {
	api := s.engine.Group("/api/tally")
	api.Use(s.Authenticate())

	// -------- Ledgers --------
	api.GET("/ledgers", s.authorize(authorization.ObjectLedger, authorization.ActionView), s.ListLedgers)
	api.GET("/ledgers/:id", s.authorize(authorization.ObjectLedger, authorization.ActionView), s.GetLedger)
	api.POST("/ledgers", s.authorize(authorization.ObjectLedger, authorization.ActionCreate), s.CreateLedger)
	api.DELETE("/ledgers/:id", s.authorize(authorization.ObjectLedger, authorization.ActionDelete), s.DeleteLedger)
	api.POST("/sync/ledgers", s.authorize(authorization.ObjectLedger, authorization.ActionSync), s.SyncLedgers)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoice)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionDelete), s.DeleteInvoice)

	// -------- Sync logs / dashboard --------
	api.GET("/sync-logs", s.authorize(authorization.ObjectSyncLog, authorization.ActionView), s.ListSyncLogs)
	api.GET("/dashboard-stats", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboardStats)

	// -------- Tally --------
	api.GET("/status", s.authorize(authorization.ObjectTally, authorization.ActionView), s.GetTallyStatus)
	api.POST("/sales-ledger", s.authorize(authorization.ObjectTally, authorization.ActionManage), s.EnsureSalesLedger)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})
}

func respond(c *gin.Context, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}
