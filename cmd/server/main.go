package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zafaroo/postcraft/internal/api"
	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/config"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/internal/session"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to postcraft.yaml")
	addr := flag.String("addr", "", "Listen address (overrides config and SERVER_PORT)")
	exportDir := flag.String("export-dir", "", "Export directory (overrides config and POSTCRAFT_EXPORT_DIR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *exportDir != "" {
		cfg.Export.Dir = *exportDir
	}

	fonts, err := renderer.LoadFonts(cfg.Fonts.Bold, cfg.Fonts.Regular)
	if err != nil {
		log.Fatalf("Failed to load fonts: %v", err)
	}
	r, err := renderer.New(fonts)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}

	registry := session.NewRegistry(
		composer.WithRenderer(r),
		composer.WithStyle(cfg.Style.PostStyle()),
	)
	defer registry.CloseAll()

	sink, err := export.NewFileSink(cfg.Export.Dir)
	if err != nil {
		log.Fatalf("Failed to prepare export directory: %v", err)
	}

	// Background exports share the retry settings of direct ones
	queue := export.NewQueue(sink, cfg.Export.Retries, cfg.Export.RetryDelay)
	defer queue.Stop()

	executor := command.NewExecutor(command.Options{
		ExportDir:  cfg.Export.Dir,
		Retries:    cfg.Export.Retries,
		RetryDelay: cfg.Export.RetryDelay,
		Queue:      queue,

		AssetDir:      cfg.Server.AssetDir,
		AllowURLs:     cfg.Server.AllowURLs,
		LockExportDir: true,
	})

	server := api.NewServer(registry, executor, queue)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("🚀 Postcraft %s listening on %s (exports to %s)", Version, cfg.Server.Addr, cfg.Export.Dir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Fatalf("Server error: %v", err)
	case <-sigChan:
		log.Println("🛑 Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Printf("👋 Closing %d session(s)", registry.Len())
}
