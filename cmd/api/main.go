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

	_ "salesdesk/api/swagger" // swagger docs
	"salesdesk/internal/config"
	"salesdesk/internal/database"
	"salesdesk/internal/handler"
	"salesdesk/internal/middleware"
	"salesdesk/internal/repository"
	"salesdesk/internal/service"
	"salesdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Sales Desk API
// @version         1.0
// @description     Food-product sales desk: agents record sales, controllers validate them, admins follow the figures.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN(), !cfg.IsRelease())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connection failed")
	}
	if err := database.Seed(db, cfg.SeedAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("database seed failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	wsHub := websocket.NewHub(cfg.AllowedOrigins())
	go wsHub.Run()
	defer wsHub.Stop()

	// Repository -> Service -> Handler
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL(), cfg.SecureCookies)

	saleService := service.NewSaleService(saleRepo, productRepo, auditRepo, txManager,
		service.NewReceiptGenerator(loc),
		service.WithLinePolicy(service.LinePolicy{MaxQuantityPerProduct: cfg.MaxQuantityPerProduct}),
		service.WithReceiptAttempts(cfg.ReceiptRetryAttempts),
		service.WithNotifier(wsHub),
	)

	handlers := handler.Handlers{
		User:       handler.NewUserHandler(service.NewUserService(userRepo, auditRepo, txManager, auth), auth),
		Product:    handler.NewProductHandler(service.NewProductService(productRepo), auth),
		Sale:       handler.NewSaleHandler(saleService, auth, loc),
		Statistics: handler.NewStatisticsHandler(service.NewStatisticsService(statsRepo, loc), auth),
		Audit:      handler.NewAuditHandler(service.NewAuditService(auditRepo), auth),
	}

	router := gin.New()
	// Without explicit proxies ClientIP() is the socket peer, so X-Forwarded-For cannot dodge the login limiter.
	if err := router.SetTrustedProxies(cfg.TrustedProxies()); err != nil {
		log.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	handlers.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
