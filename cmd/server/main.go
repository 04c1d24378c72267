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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/api"
	"github.com/wetty/chat-backend/internal/config"
	"github.com/wetty/chat-backend/internal/db"
	"github.com/wetty/chat-backend/internal/events"
	"github.com/wetty/chat-backend/internal/ids"
	"github.com/wetty/chat-backend/internal/middleware"
	"github.com/wetty/chat-backend/internal/migrate"
	"github.com/wetty/chat-backend/internal/observ"
	"github.com/wetty/chat-backend/internal/repository/postgres"
	"github.com/wetty/chat-backend/internal/service"
	"github.com/wetty/chat-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// Storage
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool := database.Pool()
	chatRepo := postgres.NewChatStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	userRepo := postgres.NewUserStore(pool)

	idGen, err := ids.NewSnowflake(cfg.MachineID)
	if err != nil {
		return fmt.Errorf("create id generator: %w", err)
	}

	// ---------------------------------------------------------------
	// Live delivery
	// ---------------------------------------------------------------
	registry := ws.NewRegistry(logger)
	go registry.RunSweeper(ctx, cfg.SweepInterval, cfg.PingTimeout)

	// Without Redis every event stays on this instance's registry. With
	// it, events reach connections held by other instances too.
	var broadcaster events.Broadcaster = registry
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bridge := events.NewBridge(rdb, registry, logger)
		go bridge.Run(ctx)
		broadcaster = bridge
	}

	// ---------------------------------------------------------------
	// Services and handlers
	// ---------------------------------------------------------------
	messageSvc := service.NewMessageService(messageRepo, membershipRepo, idGen, broadcaster, logger)
	chatSvc := service.NewChatService(chatRepo, membershipRepo, idGen, logger)
	memberSvc := service.NewMemberService(membershipRepo, userRepo)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	chatHandler := api.NewChatHandler(chatSvc, memberSvc, logger)
	messageHandler := api.NewMessageHandler(messageSvc, memberSvc, logger)
	memberHandler := api.NewMemberHandler(memberSvc, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(middleware.RequestID(), gin.Recovery())

	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	// The websocket endpoint authenticates itself (token via query param
	// or header) so browsers can connect without custom headers.
	srv.GET("/v1/ws", ws.Handler(registry, cfg.JWTSecret, logger))

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		v1.GET("/chats", chatHandler.List)
		v1.POST("/chats", chatHandler.Create)
		v1.GET("/chats/:chat_id", chatHandler.Get)
		v1.PATCH("/chats/:chat_id", chatHandler.Update)

		v1.GET("/chats/:chat_id/messages", messageHandler.List)
		v1.POST("/chats/:chat_id/messages", messageHandler.Create)
		v1.PATCH("/chats/:chat_id/messages/:message_id", messageHandler.Update)
		v1.DELETE("/chats/:chat_id/messages/:message_id", messageHandler.Delete)

		v1.GET("/chats/:chat_id/members", memberHandler.List)
		v1.POST("/chats/:chat_id/members", memberHandler.Add)
		v1.PATCH("/chats/:chat_id/members/:uid", memberHandler.UpdateRole)
		v1.DELETE("/chats/:chat_id/members/:uid", memberHandler.Remove)
	}

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
