package api

import (
	"errors"
	"net/http"

	"blockify-backend/config"
	adminOrder "blockify-backend/internal/api/v1/admin/order"
	adminUser "blockify-backend/internal/api/v1/admin/user"
	"blockify-backend/internal/api/v1/auth"
	"blockify-backend/internal/api/v1/order"
	jwtauth "blockify-backend/internal/auth"
	"blockify-backend/internal/events"
	"blockify-backend/internal/middleware"
	"blockify-backend/internal/payment"
	"blockify-backend/internal/payment/vietqr"
	"blockify-backend/internal/port"
	"blockify-backend/internal/repository"
	"blockify-backend/internal/services"
	"blockify-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server is the wired HTTP engine plus whatever must be closed on shutdown.
type Server struct {
	Engine    *gin.Engine
	Identity  *services.IdentityService
	publisher port.EventPublisher
}

// Close flushes the event publisher.
func (s *Server) Close() error {
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func NewRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	account, err := bankAccount(cfg)
	if err != nil {
		return nil, err
	}

	var publisher port.EventPublisher = events.NoopPublisher{}
	kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderEventsTopic)
	switch {
	case err == nil:
		publisher = kafkaPublisher
	case errors.Is(err, events.ErrDisabled):
		logger.Log.Info("kafka brokers not configured, order events are dropped")
	default:
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewServerMetrics(registry)
	orderMetrics := services.NewMetrics(registry)

	identity := services.NewIdentityService(db, redisClient, jwtauth.NewTokenManager(cfg.JWTSecret))
	repo := repository.NewOrderRepository(db)
	qr := services.NewPaymentQRService(vietqr.New(), account)

	adminOrders := services.NewAdminOrderService(services.AdminOrderServiceConfig{
		Repo:      repo,
		Publisher: publisher,
		QR:        qr,
		Metrics:   orderMetrics,
	})
	customerOrders := services.NewCustomerOrderService(services.CustomerOrderServiceConfig{
		Repo:      repo,
		Publisher: publisher,
		QR:        qr,
		Metrics:   orderMetrics,
	})

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(), middleware.Metrics(httpMetrics))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1, auth.NewHandler(identity), identity)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware(identity))
		{
			order.RegisterRoutes(authorized, order.NewHandler(customerOrders))
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(identity))
		{
			adminOrder.RegisterRoutes(admin, adminOrder.NewHandler(adminOrders))
			adminUser.RegisterRoutes(admin, adminUser.NewHandler(identity))
		}
	}

	return &Server{Engine: router, Identity: identity, publisher: publisher}, nil
}

// bankAccount leaves the account unset when no BIN is configured; QR requests then fail validation.
func bankAccount(cfg *config.Config) (payment.BankAccount, error) {
	if cfg.BankBIN == "" {
		logger.Log.Warn("receiving bank account not configured, payment QR is disabled")
		return payment.BankAccount{}, nil
	}
	account, err := payment.NewBankAccount(cfg.BankID, cfg.BankBIN, cfg.BankAccountNo, cfg.BankAccountName)
	if err != nil {
		logger.Log.Error("invalid receiving bank account", zap.Error(err))
		return payment.BankAccount{}, err
	}
	return account, nil
}
