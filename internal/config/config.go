package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/trykaro/wardrobe-service/internal/envconfig"
)

type Config struct {
	Port          string `validate:"required"`
	GCPProjectID  string `validate:"required"`
	DataStore     string `validate:"required,oneof=firestore memory"`
	BlobDir       string `validate:"required"`
	MaxStoredRef  int
	RemoteTimeout time.Duration
	GeminiAPIKey  string
	Auth          AuthConfig
	Firestore     FirestoreConfig
}

type AuthConfig struct {
	Mode     string `validate:"required"`
	JWKSURL  string
	Audience string
	Issuer   string
}

type FirestoreConfig struct {
	EmulatorHost string
}

func Load() (Config, error) {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	maxRef, err := strconv.Atoi(envconfig.Get("MAX_STORED_REF_LEN", "2000"))
	if err != nil {
		return Config{}, fmt.Errorf("MAX_STORED_REF_LEN: %w", err)
	}
	remoteTimeout, err := time.ParseDuration(envconfig.Get("REMOTE_TIMEOUT", "8s"))
	if err != nil {
		return Config{}, fmt.Errorf("REMOTE_TIMEOUT: %w", err)
	}

	cfg := Config{
		Port:          envconfig.Get("PORT", "8080"),
		GCPProjectID:  envconfig.Get("GCP_PROJECT_ID", "trykaro-dev"),
		DataStore:     envconfig.Get("DATASTORE", "firestore"),
		BlobDir:       envconfig.Get("BLOB_DIR", "./data/blobs"),
		MaxStoredRef:  maxRef,
		RemoteTimeout: remoteTimeout,
		GeminiAPIKey:  envconfig.Get("GEMINI_API_KEY", ""),
		Auth: AuthConfig{
			Mode:     envconfig.Get("AUTH_MODE", "firebase"),
			JWKSURL:  envconfig.Get("AUTH_JWKS_URL", ""),
			Audience: envconfig.Get("AUTH_AUDIENCE", ""),
			Issuer:   envconfig.Get("AUTH_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
	}
	return cfg, envconfig.Validate(cfg)
}
