package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/openhaul/tripbook/internal/agent"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"github.com/openhaul/tripbook/internal/audit"
	auditdomain "github.com/openhaul/tripbook/internal/audit/domain"
	"github.com/openhaul/tripbook/internal/config"
	"github.com/openhaul/tripbook/internal/dispute"
	disputedomain "github.com/openhaul/tripbook/internal/dispute/domain"
	"github.com/openhaul/tripbook/internal/ledger"
	ledgerdomain "github.com/openhaul/tripbook/internal/ledger/domain"
	"github.com/openhaul/tripbook/internal/metrics"
	"github.com/openhaul/tripbook/internal/trip"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	metrics.Module,
	fx.Provide(registerGin),
	audit.Module,
	agent.Module,
	ledger.Module,
	trip.Module,
	dispute.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(m.Middleware())
	r.Use(AuditContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	return NewEngine(log, m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	agentSvc   agentdomain.Service
	tripSvc    tripdomain.Service
	ledgerSvc  ledgerdomain.Service
	disputeSvc disputedomain.Service
	auditSvc   auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	AgentSvc   agentdomain.Service
	TripSvc    tripdomain.Service
	LedgerSvc  ledgerdomain.Service
	DisputeSvc disputedomain.Service
	AuditSvc   auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		agentSvc:   p.AgentSvc,
		tripSvc:    p.TripSvc,
		ledgerSvc:  p.LedgerSvc,
		disputeSvc: p.DisputeSvc,
		auditSvc:   p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/agents", s.CreateAgent)
	v1.GET("/agents", s.ListAgents)
	v1.GET("/agents/:id", s.GetAgent)
	v1.GET("/agents/:id/ledger", s.GetAgentLedger)
	v1.GET("/agents/:id/balance", s.GetAgentBalance)

	v1.POST("/trips", s.CreateTrip)
	v1.GET("/trips", s.ListTrips)
	v1.GET("/trips/:id", s.GetTrip)
	v1.DELETE("/trips/:id", s.DeleteTrip)
	v1.POST("/trips/:id/payments", s.AddPayment)
	v1.PATCH("/trips/:id/deductions", s.UpdateDeductions)
	v1.POST("/trips/:id/close", s.CloseTrip)
	v1.POST("/trips/:id/attachments", s.AddAttachment)
	v1.GET("/trips/:id/disputes", s.ListTripDisputes)
	v1.POST("/trips/:id/disputes", s.OpenDispute)

	v1.POST("/disputes/:id/resolve", s.ResolveDispute)

	v1.GET("/audit-logs", s.ListAuditLogs)
	v1.GET("/dashboard/summary", s.DashboardSummary)
}
