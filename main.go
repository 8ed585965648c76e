package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/acroforms/fillserver/config"
	"github.com/acroforms/fillserver/handler"
	"github.com/acroforms/fillserver/middleware"
	"github.com/acroforms/fillserver/pkg/logger"
	"github.com/acroforms/fillserver/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromFlags()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	slog.Info("configuration loaded",
		"template_root", cfg.TemplateRoot,
		"engine", cfg.Engine,
	)

	if info, err := os.Stat(cfg.TemplateRoot); err != nil || !info.IsDir() {
		slog.Error("template root is not a directory", "path", cfg.TemplateRoot, "error", err)
		os.Exit(1)
	}

	// Optional: mirror templates from object storage before serving
	if cfg.SyncEnabled() {
		templateSync, err := service.NewTemplateSync(&cfg.Minio, cfg.TemplateRoot)
		if err != nil {
			slog.Error("failed to initialize template sync", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if n, err := templateSync.Sync(ctx); err != nil {
			slog.Warn("template sync incomplete, serving local templates", "synced", n, "error", err)
		} else {
			slog.Info("templates synced from object storage", "count", n)
		}
		cancel()
	}

	// Initialize services
	resolver, err := service.NewResolver(cfg.TemplateRoot)
	if err != nil {
		slog.Error("failed to initialize path resolver", "error", err)
		os.Exit(1)
	}

	var extractor service.FieldExtractor
	if cfg.Engine == config.EnginePdfcpu {
		extractor = service.NewPdfcpuExtractor()
	} else {
		extractor = service.NewPdftkExtractor(cfg.PdftkPath)
	}

	filler := service.NewFiller(cfg.PdftkPath, cfg.FillTimeout)
	docs := service.LoadDocMap(cfg.DocMapFile)

	// Initialize handlers
	templateHandler := handler.NewTemplateHandler(resolver, extractor, filler)
	docHandler := handler.NewDocHandler(docs)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                // Request ID for tracing
	router.Use(middleware.Recovery())                 // Panic recovery
	router.Use(middleware.RequestLogger())            // Access logging
	router.Use(cacheMiddleware())                     // Cache control
	router.Use(middleware.RateLimit(60, time.Minute)) // Every fill costs a subprocess

	// Serve the form UI
	router.StaticFile("/", filepath.Join(cfg.WebDir, "index.html"))
	router.StaticFile("/index.html", filepath.Join(cfg.WebDir, "index.html"))
	router.StaticFile("/app.js", filepath.Join(cfg.WebDir, "app.js"))
	router.StaticFile("/styles.css", filepath.Join(cfg.WebDir, "styles.css"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	api := router.Group("/api")
	{
		api.GET("/fields", templateHandler.Fields)
		api.POST("/fill", templateHandler.Fill)
	}

	// Document-management entry point
	router.GET("/doc/:id", docHandler.Redirect)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// cacheMiddleware sets cache control headers for static files
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Never cache API responses or filled PDFs
		if strings.HasPrefix(path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
			return
		}

		// Set cache headers for static files (1 hour)
		if strings.HasSuffix(path, ".js") ||
			strings.HasSuffix(path, ".css") ||
			strings.HasSuffix(path, ".html") ||
			path == "/" {
			c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
		}

		c.Next()
	}
}
