package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	"github.com/slotworks/bookpay/internal/clock"
	"github.com/slotworks/bookpay/internal/config"
	obsmetrics "github.com/slotworks/bookpay/internal/observability/metrics"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"github.com/slotworks/bookpay/internal/reconciler"
	slotdomain "github.com/slotworks/bookpay/internal/slot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, m *obsmetrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(cfg config.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	paymentSvc  paymentdomain.Service
	paymentRepo paymentdomain.Repository
	bookingRepo bookingdomain.Repository
	slotRepo    slotdomain.Repository
	reconciler  *reconciler.Reconciler
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	PaymentSvc  paymentdomain.Service
	PaymentRepo paymentdomain.Repository
	BookingRepo bookingdomain.Repository
	SlotRepo    slotdomain.Repository
	Reconciler  *reconciler.Reconciler
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("server"),
		clock:       p.Clock,
		paymentSvc:  p.PaymentSvc,
		paymentRepo: p.PaymentRepo,
		bookingRepo: p.BookingRepo,
		slotRepo:    p.SlotRepo,
		reconciler:  p.Reconciler,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Payments --------
	v1.POST("/payments", s.CreatePayment)
	v1.GET("/payments/:reference", s.GetPayment)
	v1.POST("/payments/:reference/verify", s.VerifyPayment)

	// -------- Slots --------
	v1.GET("/slots", s.ListSlots)

	// -------- Reconciliation --------
	v1.POST("/reconcile", s.TriggerReconcile)
}
