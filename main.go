package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/adcanvas/adcanvas/common/client"
	"github.com/adcanvas/adcanvas/common/config"
	"github.com/adcanvas/adcanvas/common/graceful"
	"github.com/adcanvas/adcanvas/common/logger"
	"github.com/adcanvas/adcanvas/common/storage"
	"github.com/adcanvas/adcanvas/controller"
	"github.com/adcanvas/adcanvas/middleware"
	"github.com/adcanvas/adcanvas/relay/adaptor/fal"
	"github.com/adcanvas/adcanvas/relay/adaptor/openai"
	"github.com/adcanvas/adcanvas/relay/adaptor/vertexai"
	"github.com/adcanvas/adcanvas/relay/pipeline"
	"github.com/adcanvas/adcanvas/relay/synthesizer"
	"github.com/adcanvas/adcanvas/router"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.SetupLogger()
	logger.Logger.Info("adcanvas started")

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("invalid configuration", zap.Error(err))
	}
	if config.GinMode != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	client.Init()

	store, err := storage.New(ctx)
	if err != nil {
		logger.Logger.Fatal("failed to initialize object storage", zap.Error(err))
	}

	vertexClient, err := vertexai.NewClient(ctx)
	if err != nil {
		logger.Logger.Fatal("failed to initialize the primary image generator", zap.Error(err))
	}
	falClient := fal.NewClient()
	if !falClient.Configured() {
		logger.Logger.Warn("fallback image generator is not configured, quota exhaustion will fail requests")
	}
	synth := synthesizer.New(vertexClient, falClient, config.FalGeminiAspectRatio)

	prompts := openai.NewClient()
	flowPipeline := pipeline.New(store, prompts, synth, config.ImageOutputFormat)

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	server.Use(middleware.PanicRecover())
	server.Use(middleware.RequestId())
	server.Use(middleware.CORS())
	server.Use(func(c *gin.Context) {
		done := graceful.BeginRequest()
		defer done()
		c.Next()
	})

	router.SetRouter(server,
		controller.NewFlow(flowPipeline),
		controller.NewProxy(store.BaseURL(), client.UserContentRequestHTTPClient))

	port := config.ServerPort
	if port == "" {
		port = "4000"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server,
	}

	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutdown signal received",
		zap.Int64("in_flight", graceful.InFlight()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := graceful.Drain(shutdownCtx); err != nil {
		logger.Logger.Warn("timed out waiting for in-flight requests", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("server shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Logger.Info("server stopped")
}
