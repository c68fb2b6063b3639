package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunobiangulo/conceptgraph"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := conceptgraph.LoadConfig(*configPath)
	if err != nil {
		slog.Error("server: loading config", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("CONCEPTGRAPH_API_KEY")
	corsOrigins := os.Getenv("CONCEPTGRAPH_CORS_ORIGINS")

	engine, err := conceptgraph.New(cfg)
	if err != nil {
		slog.Error("server: creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newServer(engine, apiKey, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // builds can run for minutes
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server: starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server: listen", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("server: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server: shutdown", "error", err)
	}
	slog.Info("server: stopped")
}

// newServer registers the routes and wraps them in the middleware chain:
// recovery -> cors -> auth -> logging -> mux.
func newServer(engine conceptgraph.Engine, apiKey, corsOrigins string) http.Handler {
	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /build", h.handleBuild)
	mux.HandleFunc("GET /concepts", h.handleListConcepts)
	mux.HandleFunc("GET /concepts/{name}/neighbors", h.handleNeighbors)
	mux.HandleFunc("GET /concepts/{name}/references", h.handleReferences)
	mux.HandleFunc("GET /concepts/{name}/images", h.handleImages)
	mux.HandleFunc("GET /builds", h.handleListBuilds)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
