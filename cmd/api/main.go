package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clarify/api/internal/app"
	"clarify/api/internal/artifact"
	"clarify/api/internal/config"
	"clarify/api/internal/docflow"
	"clarify/api/internal/email"
	"clarify/api/internal/extract"
	"clarify/api/internal/ratelimit"
	"clarify/api/internal/render"
	"clarify/api/internal/search"
	"clarify/api/internal/session"
	"clarify/api/internal/simplify"
	"clarify/api/internal/store"
	"clarify/api/internal/verify"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	sessions, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessions.Close()

	artifacts, err := artifact.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("artifact storage failed: %v", err)
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		log.Printf("WARNING: SMTP not configured, verification codes will be logged instead of emailed")
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	limiter := ratelimit.NewPerKey(30*time.Second, 3)
	verifySvc := verify.NewService(dataStore, sessions, mailer, limiter, cfg.ResetCodeTTL)
	docflowSvc := docflow.NewService(dataStore, sessions, artifacts, searchService)

	engine := simplify.NewHTTPEngine(cfg.EngineURL, cfg.EngineTimeout)
	pipeline := simplify.NewPipeline(engine, cfg.ChunkBudget)

	service := app.NewService(
		dataStore,
		sessions,
		verifySvc,
		docflowSvc,
		pipeline,
		extract.NewPDFToText(),
		render.NewChromePDF(),
		artifacts,
		searchService,
	)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Clarify API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
