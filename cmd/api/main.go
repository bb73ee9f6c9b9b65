package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"roamly-chat/config"
	"roamly-chat/internal/domain/chat"
	"roamly-chat/internal/domain/trip"
	"roamly-chat/internal/domain/user"
	"roamly-chat/internal/events"
	"roamly-chat/internal/handler"
	"roamly-chat/internal/middleware"
	roamlyredis "roamly-chat/internal/redis"
	"roamly-chat/internal/repository"
	"roamly-chat/internal/services"
	"roamly-chat/internal/storage"
	"roamly-chat/internal/websocket"
	"roamly-chat/pkg/database"
	"roamly-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)

	// Connect to Database
	database.Connect(cfg)

	// Run GORM AutoMigrate for Tables
	if err := database.DB.AutoMigrate(
		&user.Profile{},
		&trip.Trip{},
		&trip.TripParticipant{},
		&chat.Chat{},
		&chat.Participant{},
		&chat.Message{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	// Run Raw Migrations (Partial Unique Indexes AutoMigrate cannot express)
	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Redis is optional. Without it the process still serves messages and
	// pushes frames to locally connected sockets only.
	var publisher events.Publisher = events.NewLocalPublisher(hub)
	var limiter *roamlyredis.RateLimiter
	if cfg.RedisAddr != "" {
		roamlyredis.Initialize(roamlyredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		client := roamlyredis.GetClient()
		if err := roamlyredis.Ping(client); err != nil {
			l.Warnf("redis unreachable, falling back to local fan-out: %v", err)
		} else {
			publisher = events.NewRedisPublisher(client)
			bridge := events.NewRedisBridge(client, hub, l)
			bridge.Start()
			defer bridge.Stop()

			limiter = roamlyredis.NewRateLimiter(client, roamlyredis.RateLimitConfig{
				MessageLimit:  cfg.MsgRateLimit,
				MessageWindow: time.Duration(cfg.MsgRateWindow) * time.Second,
			})
		}
	}

	var media storage.URLResolver
	if cfg.MediaBucket != "" {
		resolver, err := storage.NewS3Resolver(ctx, storage.S3Config{
			Region:     cfg.MediaRegion,
			Bucket:     cfg.MediaBucket,
			AccessKey:  cfg.MediaAccess,
			SecretKey:  cfg.MediaSecret,
			Endpoint:   cfg.MediaEndpoint,
			PublicBase: cfg.MediaBaseURL,
			PresignTTL: time.Duration(cfg.MediaTTLMin) * time.Minute,
		})
		if err != nil {
			l.Warnf("media resolver disabled: %v", err)
		} else {
			media = resolver
		}
	}

	chatRepo := repository.NewChatRepository(database.DB)
	tripRepo := repository.NewTripRepository(database.DB)
	userDir := repository.NewUserDirectory(database.DB)

	cursors := services.NewCursorService(chatRepo)
	inbox := services.NewInboxService(chatRepo, userDir, tripRepo, media, l)
	notifier := services.NewNotifier(inbox, cursors, publisher, l)
	messages := services.NewMessageService(database.DB, chatRepo, cursors, notifier, l)
	requests := services.NewRequestService(database.DB, chatRepo, tripRepo, userDir, cursors, notifier, l)
	auth := services.NewAuthService(cfg)

	chatHandler := handler.NewChatHandler(messages, inbox, cursors, notifier)
	requestHandler := handler.NewRequestHandler(requests)
	wsHandler := websocket.NewHandler(auth, hub)

	if cfg.AppMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api/v1")
	api.GET("/ws", wsHandler.Connect)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(auth))
	{
		authed.POST("/messages", middleware.MessageRateLimit(limiter), chatHandler.SendMessage)
		authed.GET("/chats/:id/messages", chatHandler.ListMessages)
		authed.POST("/chats/:id/read", chatHandler.MarkRead)
		authed.GET("/conversations", chatHandler.ListConversations)
		authed.GET("/conversations/unread", chatHandler.UnreadTotal)
		authed.POST("/trips/:id/requests/:userId/accept", requestHandler.Accept)
		authed.POST("/trips/:id/requests/:userId/reject", requestHandler.Reject)
	}

	log.Printf("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
