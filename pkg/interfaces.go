package shared

import (
	"context"
	"errors"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/types"
)

// ErrNotFound is returned by Database getters when the document does not exist.
var ErrNotFound = errors.New("not found")

// --- Persistence Interfaces ---

type Database interface {
	SetExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, userID, id string, data map[string]interface{}) error

	// Activities
	ListActivities(ctx context.Context, userID string) ([]types.ActivityRecord, error)
	GetActivity(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error)
	SetActivity(ctx context.Context, userID string, activity *types.ActivityRecord) error

	// Settings
	GetUserSettings(ctx context.Context, userID string) (*types.UserSettings, error)

	// Derived views
	SetLoadSeries(ctx context.Context, userID string, series *load.Series) error
	GetLoadSeries(ctx context.Context, userID string) (*load.Series, error)
	SetPeriodStats(ctx context.Context, userID string, stats []period.Stat) error
	SetPowerProfile(ctx context.Context, userID string, profile *power.Profile) error
	GetPowerProfile(ctx context.Context, userID string) (*power.Profile, error)

	// DeleteUserData erases every document stored for the user and returns
	// how many were removed.
	DeleteUserData(ctx context.Context, userID string) (int, error)
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) (int, error)
}

// --- Notification Interfaces ---

type NotificationService interface {
	SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error
}
