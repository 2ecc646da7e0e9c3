package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/kumarharshit0413/Nexus/internal/config"
	"github.com/kumarharshit0413/Nexus/internal/logging"
	"github.com/kumarharshit0413/Nexus/internal/server"
	"github.com/kumarharshit0413/Nexus/internal/signaling"
	"github.com/kumarharshit0413/Nexus/internal/summarize"
	"github.com/kumarharshit0413/Nexus/internal/upload"
)

func main() {
	logging.Init()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	hub := signaling.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.Health)
	mux.HandleFunc("/ws", server.ServeWs(hub))

	if cfg.SummarizerURL != "" {
		mux.HandleFunc("/api/summarize", server.Summarize(summarize.NewClient(cfg.SummarizerURL)))
	}
	if cfg.UploadURL != "" {
		mux.HandleFunc("/api/upload", server.Upload(upload.NewClient(cfg.UploadURL)))
	}

	slog.Info("starting signaling server", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
