package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"steam-giveaway-backend/internal/common/config"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/common/middleware"
	claimhttp "steam-giveaway-backend/internal/features/claim/delivery/http"
	claimredis "steam-giveaway-backend/internal/features/claim/repository/redis"
	claimservice "steam-giveaway-backend/internal/features/claim/service"
	giveawayhttp "steam-giveaway-backend/internal/features/giveaway/delivery/http"
	giveawayredis "steam-giveaway-backend/internal/features/giveaway/repository/redis"
	giveawayservice "steam-giveaway-backend/internal/features/giveaway/service"
	userhttp "steam-giveaway-backend/internal/features/user/delivery/http"
	userredis "steam-giveaway-backend/internal/features/user/repository/redis"
	userservice "steam-giveaway-backend/internal/features/user/service"
	walletredis "steam-giveaway-backend/internal/features/wallet/repository/redis"
	walletservice "steam-giveaway-backend/internal/features/wallet/service"
	"steam-giveaway-backend/internal/platform/lock"
	redisplatform "steam-giveaway-backend/internal/platform/redis"
	"steam-giveaway-backend/internal/service/notifications"
	"steam-giveaway-backend/internal/workers"
)

func main() {
	cfg := config.Load()
	logger.Init("steam-giveaway-backend", cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := redisplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis connection established")

	claimWindow := time.Duration(cfg.Draw.ClaimWindowHours) * time.Hour

	// Repositories.
	giveawayRepo := giveawayredis.NewRedisGiveawayRepository(redisClient)
	claimRepo := claimredis.NewRedisClaimRepository(redisClient)
	walletRepo := walletredis.NewRedisWalletRepository(redisClient)
	settingsRepo := userredis.NewRedisSettingsRepository(redisClient)

	// Services.
	notifier := notifications.NewService(redisClient, cfg.Claims.ManualClaimWebhookURL)
	walletSvc := walletservice.NewWalletService(walletRepo)
	giveawaySvc := giveawayservice.NewGiveawayService(giveawayRepo, walletSvc, notifier)
	claimSvc := claimservice.NewClaimService(claimRepo, giveawayRepo, notifier, notifier)
	userSvc := userservice.NewUserService(settingsRepo)

	drawer := giveawayservice.NewDrawer()
	lockManager := lock.NewManager(redisClient, "giveaway:drawlock:", time.Duration(cfg.Draw.LockTTLMin)*time.Minute)
	locker := giveawayservice.NewLeaseLocker(lockManager)
	scheduler := giveawayservice.NewDrawScheduler(giveawayRepo, drawer, locker, notifier, userSvc, int64(cfg.Draw.BatchLimit), claimWindow)
	reroll := giveawayservice.NewRerollEngine(giveawayRepo, drawer, notifier, userSvc, claimWindow)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.SteamSession(cfg))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, redisClient,
		giveawayhttp.NewGiveawayHandler(giveawaySvc),
		giveawayhttp.NewAdminHandler(giveawaySvc, scheduler, reroll, walletSvc),
		giveawayhttp.NewCronHandler(scheduler, claimSvc),
		claimhttp.NewClaimHandler(claimSvc),
		userhttp.NewUserHandler(userSvc, walletSvc, notifier),
	)

	// Optional in-process scheduler, for deployments without an
	// external cron runner.
	if cfg.Draw.WorkerIntervalSec > 0 {
		worker := workers.NewDrawWorker(scheduler, claimSvc, time.Duration(cfg.Draw.WorkerIntervalSec)*time.Second)
		go worker.Start(ctx)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exited")
}

func setupRoutes(router *gin.Engine, cfg *config.Config, redisClient *redisplatform.Client,
	giveaways *giveawayhttp.GiveawayHandler,
	admin *giveawayhttp.AdminHandler,
	cron *giveawayhttp.CronHandler,
	claims *claimhttp.ClaimHandler,
	users *userhttp.UserHandler,
) {
	health := router.Group("/health")
	{
		health.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		health.GET("/live", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		health.GET("/ready", func(c *gin.Context) {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	v1 := router.Group("/api/v1")
	{
		giveaways.RegisterRoutes(v1)
		claims.RegisterRoutes(v1)
		users.RegisterRoutes(v1)

		adminGroup := v1.Group("/admin", middleware.RequireOwner(cfg))
		{
			admin.RegisterRoutes(adminGroup)
			claims.RegisterAdminRoutes(adminGroup)
		}

		cronGroup := v1.Group("/cron", middleware.RequireCronSecret(cfg))
		{
			cron.RegisterRoutes(cronGroup)
		}
	}
}
