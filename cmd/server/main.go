package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gwi.com/ai-chat-relay/internal/api"
	"gwi.com/ai-chat-relay/internal/config"
	"gwi.com/ai-chat-relay/internal/core"
	"gwi.com/ai-chat-relay/internal/logger"
	"gwi.com/ai-chat-relay/internal/store"
)

func main() {
	// Command line flag for schema creation
	migrateOnly := flag.Bool("migrate", false, "Create the database tables and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Initialize database store; the schema is created on open
	dbStore, err := store.NewSQLStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer dbStore.Close()

	if *migrateOnly {
		log.Info("Database schema is up to date. Exiting.", "driver", cfg.DatabaseDriver)
		return
	}

	// Initialize chat directory
	directory, err := core.NewStreamDirectory(cfg.StreamAPIKey, cfg.StreamAPISecret, log)
	if err != nil {
		log.Fatal("Failed to initialize Stream directory", "error", err)
	}
	if err := directory.EnsureBotUser(ctx); err != nil {
		log.Warn("Could not register bot user in directory", "error", err)
	}

	// Initialize completion provider
	completer, err := core.NewCompleter(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize completion provider", "provider", cfg.LLMProvider, "error", err)
	}
	defer func() {
		if err := completer.Close(); err != nil {
			log.Warn("Error closing completion provider", "error", err)
		}
	}()

	chatService := core.NewChatService(dbStore, directory, completer, log)

	apiHandler := api.NewAPIHandler(chatService, dbStore, log)
	router := api.NewRouter(apiHandler, log)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // completions can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Server running", "addr", serverAddr, "provider", cfg.LLMProvider, "driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Could not listen", "addr", serverAddr, "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	log.Info("Server exiting gracefully")
}
