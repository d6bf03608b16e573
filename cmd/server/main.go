package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/trykaro/wardrobe-service/internal/auth"
	"github.com/trykaro/wardrobe-service/internal/blobstore"
	"github.com/trykaro/wardrobe-service/internal/config"
	"github.com/trykaro/wardrobe-service/internal/httpapi"
	"github.com/trykaro/wardrobe-service/internal/imageref"
	"github.com/trykaro/wardrobe-service/internal/logging"
	"github.com/trykaro/wardrobe-service/internal/server"
	"github.com/trykaro/wardrobe-service/internal/synthesis"
	"github.com/trykaro/wardrobe-service/internal/wardrobe"
)

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger("wardrobe-service")

	// Local image bytes live beside the process; if the directory cannot be
	// opened the reference codec degrades to passing inline data through.
	blobs, err := blobstore.NewFSStore(cfg.BlobDir)
	if err != nil {
		logger.Warn("blob store unavailable, images pass through untouched", "dir", cfg.BlobDir, "error", err)
		blobs = blobstore.NewDisabledStore()
	}
	codec := imageref.NewCodec(blobs, cfg.MaxStoredRef, logger)

	var repo wardrobe.Repository
	switch cfg.DataStore {
	case "memory":
		repo = wardrobe.NewMemoryRepository()
	default:
		if cfg.Firestore.EmulatorHost != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost)
		}
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID)
		if err != nil {
			panic(fmt.Errorf("firestore client: %w", err))
		}
		defer client.Close()
		repo = wardrobe.NewFirestoreRepository(client)
	}

	wardrobeService := wardrobe.NewService(repo, codec, logger,
		wardrobe.WithRemoteTimeout(cfg.RemoteTimeout))

	var synth synthesis.Service
	if cfg.GeminiAPIKey != "" {
		synth, err = synthesis.NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			panic(fmt.Errorf("gemini client: %w", err))
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, generation endpoints disabled")
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := server.NewRouter("wardrobe-service", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			httpapi.RegisterRoutes(r, wardrobeService, synth, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
