package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocket-notes/internal/config"
	"pocket-notes/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger()

	port := flag.String("port", cfg.Server.Port, "Server port")
	dataDir := flag.String("data", cfg.Server.DataDir, "Data directory")
	flag.Parse()

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			log.Fatal().Err(err).Msg("Failed to generate JWT secret")
		}
		jwtSecret = hex.EncodeToString(secretBytes)
		log.Warn().Msg("Generated a throwaway JWT secret; set JWT_SECRET to keep sessions across restarts")
	}

	srv, err := server.Open(server.Config{
		DataDir:    *dataDir,
		JWTSecret:  jwtSecret,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              ":" + *port,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("Shutting down")
		httpServer.Close()
	}()

	log.Info().Str("addr", httpServer.Addr).Str("data", *dataDir).Msg("Starting notes server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
