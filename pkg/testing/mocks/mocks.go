package mocks

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	SetExecutionFunc    func(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecutionFunc func(ctx context.Context, userID, id string, data map[string]interface{}) error
	ListActivitiesFunc  func(ctx context.Context, userID string) ([]types.ActivityRecord, error)
	GetActivityFunc     func(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error)
	SetActivityFunc     func(ctx context.Context, userID string, activity *types.ActivityRecord) error
	GetUserSettingsFunc func(ctx context.Context, userID string) (*types.UserSettings, error)
	SetLoadSeriesFunc   func(ctx context.Context, userID string, series *load.Series) error
	GetLoadSeriesFunc   func(ctx context.Context, userID string) (*load.Series, error)
	SetPeriodStatsFunc  func(ctx context.Context, userID string, stats []period.Stat) error
	SetPowerProfileFunc func(ctx context.Context, userID string, profile *power.Profile) error
	GetPowerProfileFunc func(ctx context.Context, userID string) (*power.Profile, error)
	DeleteUserDataFunc  func(ctx context.Context, userID string) (int, error)
}

var _ shared.Database = (*MockDatabase)(nil)

func (m *MockDatabase) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, userID, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, userID, id, data)
	}
	return nil
}
func (m *MockDatabase) ListActivities(ctx context.Context, userID string) ([]types.ActivityRecord, error) {
	if m.ListActivitiesFunc != nil {
		return m.ListActivitiesFunc(ctx, userID)
	}
	return nil, nil
}
func (m *MockDatabase) GetActivity(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error) {
	if m.GetActivityFunc != nil {
		return m.GetActivityFunc(ctx, userID, activityID)
	}
	return nil, shared.ErrNotFound
}
func (m *MockDatabase) SetActivity(ctx context.Context, userID string, activity *types.ActivityRecord) error {
	if m.SetActivityFunc != nil {
		return m.SetActivityFunc(ctx, userID, activity)
	}
	return nil
}
func (m *MockDatabase) GetUserSettings(ctx context.Context, userID string) (*types.UserSettings, error) {
	if m.GetUserSettingsFunc != nil {
		return m.GetUserSettingsFunc(ctx, userID)
	}
	return nil, shared.ErrNotFound
}
func (m *MockDatabase) SetLoadSeries(ctx context.Context, userID string, series *load.Series) error {
	if m.SetLoadSeriesFunc != nil {
		return m.SetLoadSeriesFunc(ctx, userID, series)
	}
	return nil
}
func (m *MockDatabase) GetLoadSeries(ctx context.Context, userID string) (*load.Series, error) {
	if m.GetLoadSeriesFunc != nil {
		return m.GetLoadSeriesFunc(ctx, userID)
	}
	return nil, shared.ErrNotFound
}
func (m *MockDatabase) SetPeriodStats(ctx context.Context, userID string, stats []period.Stat) error {
	if m.SetPeriodStatsFunc != nil {
		return m.SetPeriodStatsFunc(ctx, userID, stats)
	}
	return nil
}
func (m *MockDatabase) SetPowerProfile(ctx context.Context, userID string, profile *power.Profile) error {
	if m.SetPowerProfileFunc != nil {
		return m.SetPowerProfileFunc(ctx, userID, profile)
	}
	return nil
}
func (m *MockDatabase) GetPowerProfile(ctx context.Context, userID string) (*power.Profile, error) {
	if m.GetPowerProfileFunc != nil {
		return m.GetPowerProfileFunc(ctx, userID)
	}
	return nil, shared.ErrNotFound
}

func (m *MockDatabase) DeleteUserData(ctx context.Context, userID string) (int, error) {
	if m.DeleteUserDataFunc != nil {
		return m.DeleteUserDataFunc(ctx, userID)
	}
	return 0, nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc        func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc         func(ctx context.Context, bucket, object string) ([]byte, error)
	DeletePrefixFunc func(ctx context.Context, bucket, prefix string) (int, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}

func (m *MockBlobStore) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	if m.DeletePrefixFunc != nil {
		return m.DeletePrefixFunc(ctx, bucket, prefix)
	}
	return 0, nil
}

// --- Mock Notifications ---
type MockNotificationService struct {
	SendPushNotificationFunc func(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error
}

func (m *MockNotificationService) SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
	if m.SendPushNotificationFunc != nil {
		return m.SendPushNotificationFunc(ctx, userID, title, body, tokens, data)
	}
	return nil
}
