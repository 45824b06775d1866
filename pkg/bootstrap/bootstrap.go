package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/reference"
	"github.com/vitalsync/server/pkg/infrastructure/database"
	"github.com/vitalsync/server/pkg/infrastructure/notifications"
	infrapubsub "github.com/vitalsync/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/vitalsync/server/pkg/infrastructure/sentry"
	infrastorage "github.com/vitalsync/server/pkg/infrastructure/storage"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID           string
	EnablePublish       bool
	GCSArtifactBucket   string
	ReferenceTablesPath string
	SentryDSN           string
	Environment         string
	CredentialsFile     string
	Port                string
	// DefaultLocation resolves "today" when a request carries no as_of.
	DefaultLocation *time.Location
	// WindowDays overrides the default PMC window when set.
	WindowDays int
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Store  shared.BlobStore
	Pub    shared.Publisher
	Notify shared.NotificationService
	Auth   *auth.Client
	Tables *reference.Tables
	Config *Config
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	loc := time.UTC
	if tz := os.Getenv("TZ_DEFAULT"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TZ_DEFAULT: %w", err)
		}
		loc = l
	}

	var window int
	if v := os.Getenv("PMC_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > load.MaxWindowDays {
			return nil, fmt.Errorf("PMC_WINDOW_DAYS must be between 1 and %d, got %q", load.MaxWindowDays, v)
		}
		window = n
	}

	return &Config{
		ProjectID:           projectID,
		EnablePublish:       os.Getenv("ENABLE_PUBLISH") == "true",
		GCSArtifactBucket:   os.Getenv("GCS_ARTIFACT_BUCKET"),
		ReferenceTablesPath: os.Getenv("REFERENCE_TABLES_PATH"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		Environment:         env,
		CredentialsFile:     os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Port:                port,
		DefaultLocation:     loc,
		WindowDays:          window,
	}, nil
}

// ClientOptions are shared by every Google client.
func (c *Config) ClientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}

// LoadTables returns the embedded reference tables unless a file path is
// configured.
func (c *Config) LoadTables() (*reference.Tables, error) {
	if c.ReferenceTablesPath == "" {
		return reference.Default(), nil
	}
	return reference.Load(c.ReferenceTablesPath)
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	slog.Info("Initializing service", "project_id", cfg.ProjectID, "environment", cfg.Environment)

	if err := infrasentry.Init(infrasentry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          os.Getenv("K_REVISION"),
		ServerName:       os.Getenv("K_SERVICE"),
		TracesSampleRate: 0.1,
	}, slog.Default()); err != nil {
		// Error tracking is optional.
		slog.Warn("Continuing without Sentry", "error", err)
	}

	tables, err := cfg.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("reference tables: %w", err)
	}
	slog.Info("Reference tables loaded", "version", tables.Version)

	opts := cfg.ClientOptions()

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	// Firebase (auth + messaging)
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init: %w", err)
	}
	fcm, err := notifications.NewFCMAdapter(ctx, app, fsClient, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("fcm init: %w", err)
	}

	return &Service{
		DB:     database.NewFirestoreAdapter(fsClient, cfg.DefaultLocation),
		Pub:    pubAdapter,
		Store:  &infrastorage.StorageAdapter{Client: gcsClient},
		Notify: fcm,
		Auth:   authClient,
		Tables: tables,
		Config: cfg,
	}, nil
}
