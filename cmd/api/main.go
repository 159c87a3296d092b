// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "tradesim-ledger/internal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		if application.Logger != nil {
			application.Logger.Error("failed to initialize application", "error", err)
		} else {
			fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		}
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + application.Config.ServerPort,
		Handler:      application.HTTPHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		application.Logger.Info("starting HTTP server", "port", application.Config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Error("HTTP server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	application.Logger.Info("shutting down HTTP server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("HTTP server shutdown failed", "error", err)
		os.Exit(1)
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("application shutdown failed", "error", err)
		os.Exit(1)
	}

	application.Logger.Info("application stopped")
}
