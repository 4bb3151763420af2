package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/comiso/internal/audit/domain"
	"github.com/smallbiznis/comiso/internal/config"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestContext())
	r.Use(RequestLogger(log, metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type EngineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *telemetry.Metrics `optional:"true"`
}

func registerGin(p EngineParams) *gin.Engine {
	return NewEngine(p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	policySvc      policydomain.Service
	transactionSvc transactiondomain.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	PolicySvc      policydomain.Service
	TransactionSvc transactiondomain.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		policySvc:      p.PolicySvc,
		transactionSvc: p.TransactionSvc,
		auditSvc:       p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	policies := v1.Group("/commission/policies")
	{
		policies.POST("", s.CreatePolicy)
		policies.GET("", s.ListPolicies)
		policies.GET("/:id", s.GetPolicyByID)
		policies.PATCH("/:id", s.UpdatePolicy)
		policies.DELETE("/:id", s.DeletePolicy)
	}

	transactions := v1.Group("/commission/transactions")
	{
		transactions.POST("", s.CreateTransaction)
		transactions.GET("", s.ListTransactions)
		transactions.GET("/:id", s.GetTransactionByID)
	}

	auditLogs := v1.Group("/audit-logs")
	{
		auditLogs.GET("", s.ListAuditLogs)
	}
}
