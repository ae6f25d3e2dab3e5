package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DevGruGold/xmrt-voice-agent/internal/api"
	"github.com/DevGruGold/xmrt-voice-agent/internal/config"
	"github.com/DevGruGold/xmrt-voice-agent/internal/events"
	"github.com/DevGruGold/xmrt-voice-agent/internal/gateway"
	"github.com/DevGruGold/xmrt-voice-agent/internal/sessions"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Client.TokenSecret == "" {
		log.Printf("warning: CLIENT_TOKEN_SECRET not set; session creation will fail")
	}

	ss := sessions.NewStore()
	es := events.NewStore(cfg.Events.Limit)

	h := api.NewHandlers(cfg, ss, es)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.Handle("/metrics", promhttp.Handler())

	// WS client route
	reg := gateway.NewRegistry()
	gw := gateway.NewServer(cfg, ss, es, reg)
	mux.HandleFunc("/ws/client", gw.HandleClientWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
