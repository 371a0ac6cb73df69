package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
	"storyboard-server/internal/gemini"
	"storyboard-server/internal/handler"
	"storyboard-server/internal/logger"
	"storyboard-server/internal/middleware"
	"storyboard-server/internal/model"
	"storyboard-server/internal/prompts"
	"storyboard-server/internal/session"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	log.Info("Starting storyboard server", zap.String("env", cfg.AppEnv))

	client := gemini.NewClient(log, cfg.Gemini, model.StoryboardOptions{
		VisualStyle: cfg.Storyboard.VisualStyle,
		TotalLength: cfg.Storyboard.TotalLength,
		AspectRatio: cfg.Storyboard.AspectRatio,
		SceneRange:  cfg.Storyboard.SceneRange,
	})

	hub := handler.NewHub(log)
	manager := session.NewManager(
		log,
		client,
		prompts.NewPatternDeriver(),
		handler.NewGateFactory(hub, cfg.Gemini.APIKey != ""),
		hub.SendState,
	)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.AppEnv == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLogging(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.CORSOrigins) == 1 && cfg.HTTP.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	apiHandler := handler.New(log, manager, hub)
	apiHandler.RegisterRoutes(router)

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	manager.Shutdown()
	log.Info("Server exiting")
}
