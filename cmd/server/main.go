package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"audio-proxy/internal/api"
	"audio-proxy/internal/cache"
	"audio-proxy/internal/captions"
	"audio-proxy/internal/config"
	"audio-proxy/internal/events"
	"audio-proxy/internal/imageproc"
	"audio-proxy/internal/lookup"
	"audio-proxy/internal/service"
	"audio-proxy/pkg/ffmpeg"
)

func main() {
	log.Info("Starting audio proxy...")

	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	// Load configuration
	cfg := config.New()

	if err := ffmpeg.CheckInstallation(cfg.FFmpegBinary); err != nil {
		log.Fatal("ffmpeg check failed", "error", err)
	}

	// Caches and the sweeper that reaps them
	resolutionCache := cache.NewResolutionCache(cfg.CacheExpire)
	sessionStore := cache.NewSessionStore(cfg.CacheExpire)
	sweeper := service.NewSweeper(sessionStore, resolutionCache, cfg.CleanupInterval)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Start(sweepCtx)

	// External collaborators
	lookupClient := lookup.NewYTDLP(cfg.YTDLPBinary, cfg.LookupTimeout, cfg.CaptionLanguages)
	captionFetcher := captions.NewFetcher(cfg.CaptionTimeout)
	resolver := service.NewResolver(resolutionCache, lookupClient, captionFetcher)

	transcoder := &ffmpeg.Transcoder{
		Binary:     cfg.FFmpegBinary,
		Bitrate:    cfg.AudioBitrate,
		SampleRate: cfg.AudioSampleRate,
		Channels:   cfg.AudioChannels,
		Timeout:    cfg.TranscodeTimeout,
	}
	imageProcessor := imageproc.NewProcessor(cfg.ImageFetchTimeout, cfg.ImageSize, cfg.ImageJPEGQuality)

	publisher := events.NewPublisher(events.Config{
		URL:        cfg.RabbitMQURL,
		Exchange:   cfg.RabbitMQExchange,
		RoutingKey: cfg.RabbitMQRoutingKey,
		Enabled:    cfg.RabbitMQEnabled,
	})

	// Setup HTTP server
	handler := api.NewHandler(cfg, resolver, sessionStore, transcoder, imageProcessor, publisher)
	router := api.SetupRoutes(handler, cfg)
	server := api.NewHTTPServer(cfg, router)

	// Start server in goroutine
	go func() {
		log.Info("Server starting", "address", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopSweeper()
	publisher.Close()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited gracefully")
}
