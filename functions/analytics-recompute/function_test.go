package analyticsrecompute

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/analytics"
	"github.com/vitalsync/server/pkg/bootstrap"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/framework"
	infrapubsub "github.com/vitalsync/server/pkg/infrastructure/pubsub"
	"github.com/vitalsync/server/pkg/testing/mocks"
	"github.com/vitalsync/server/pkg/types"
)

var fixedNow = func() time.Time { return time.Date(2025, time.March, 12, 20, 0, 0, 0, time.UTC) }

func activities() []types.ActivityRecord {
	ride := func(id string, day int, tss float64) types.ActivityRecord {
		return types.ActivityRecord{
			ID:                  id,
			SportTypeRaw:        "road_biking",
			StartTime:           time.Date(2025, time.March, day, 8, 0, 0, 0, time.UTC),
			DurationSeconds:     types.Float(3600),
			TrainingStressScore: types.Float(tss),
			BestEffortPower:     map[types.EffortDuration]float64{types.Effort20m: 300},
		}
	}
	return []types.ActivityRecord{ride("a", 3, 90), ride("b", 6, 70), ride("c", 10, 110)}
}

type recorder struct {
	series   *load.Series
	stats    []period.Stat
	profile  *power.Profile
	topic    string
	event    event.Event
	pushes   int
	pushBody string
	writes   []string
}

func newService(rec *recorder, previousFTP *int) *bootstrap.Service {
	db := &mocks.MockDatabase{
		ListActivitiesFunc: func(ctx context.Context, userID string) ([]types.ActivityRecord, error) {
			return activities(), nil
		},
		GetUserSettingsFunc: func(ctx context.Context, userID string) (*types.UserSettings, error) {
			return &types.UserSettings{
				Athlete:   types.AthleteProfile{WeightKg: types.Float(75)},
				FCMTokens: []string{"tok-1"},
			}, nil
		},
		GetPowerProfileFunc: func(ctx context.Context, userID string) (*power.Profile, error) {
			if previousFTP == nil {
				return nil, shared.ErrNotFound
			}
			return &power.Profile{FTPWatts: previousFTP}, nil
		},
		SetLoadSeriesFunc: func(ctx context.Context, userID string, series *load.Series) error {
			rec.series = series
			return nil
		},
		SetPeriodStatsFunc: func(ctx context.Context, userID string, stats []period.Stat) error {
			rec.stats = stats
			return nil
		},
		SetPowerProfileFunc: func(ctx context.Context, userID string, profile *power.Profile) error {
			rec.profile = profile
			return nil
		},
	}
	return &bootstrap.Service{
		DB: db,
		Pub: &mocks.MockPublisher{
			PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
				rec.topic = topic
				rec.event = e
				return "msg-1", nil
			},
		},
		Store: &mocks.MockBlobStore{
			WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
				rec.writes = append(rec.writes, bucket+"/"+object)
				return nil
			},
		},
		Notify: &mocks.MockNotificationService{
			SendPushNotificationFunc: func(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
				rec.pushes++
				rec.pushBody = body
				return nil
			},
		},
		Config: &bootstrap.Config{DefaultLocation: time.UTC, GCSArtifactBucket: "artifacts"},
	}
}

func changedEvent(t *testing.T, payload types.ActivityChangedEvent) event.Event {
	t.Helper()
	e, err := infrapubsub.NewCloudEvent(infrapubsub.SourceFitParser, infrapubsub.TypeActivityChanged, payload)
	require.NoError(t, err)
	return e
}

func fwCtx(s *bootstrap.Service) *framework.FrameworkContext {
	return &framework.FrameworkContext{
		Service:     s,
		Logger:      bootstrap.NewLogger("analytics-recompute-test"),
		ExecutionID: "exec-1",
		UserID:      "user-1",
	}
}

func newRecomputer() *analytics.Recomputer {
	return analytics.NewRecomputer(analytics.NewEngine(nil))
}

func TestRecompute_PersistsViewsAndPublishes(t *testing.T) {
	rec := &recorder{}
	s := newService(rec, types.Int(270))

	out, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
		changedEvent(t, types.ActivityChangedEvent{UserID: "user-1", ActivityID: "c"}), fwCtx(s))
	require.NoError(t, err)

	outputs := out.(map[string]interface{})
	assert.Equal(t, "success", outputs["status"])
	assert.Equal(t, "2025-03-12", outputs["as_of"])
	assert.Equal(t, true, outputs["pmc_ready"])
	assert.Equal(t, true, outputs["notified"])

	require.NotNil(t, rec.series)
	assert.Equal(t, 3, rec.series.TSSDays)
	assert.Len(t, rec.stats, 54+13+2)
	require.NotNil(t, rec.profile)
	require.NotNil(t, rec.profile.FTPWatts)
	assert.Equal(t, 285, *rec.profile.FTPWatts)

	assert.Equal(t, shared.TopicAnalyticsUpdated, rec.topic)
	assert.Equal(t, infrapubsub.TypeAnalyticsUpdated, rec.event.Type())
	var published types.AnalyticsUpdatedEvent
	require.NoError(t, rec.event.DataAs(&published))
	assert.Equal(t, "user-1", published.UserID)
	assert.Equal(t, 285, *published.FTPWatts)
	assert.Contains(t, published.Views, "exports")

	assert.Equal(t, 1, rec.pushes)
	assert.Contains(t, rec.pushBody, "285 W")
	assert.ElementsMatch(t, []string{
		"artifacts/exports/user-1/2025-03-12/pmc.parquet",
		"artifacts/exports/user-1/2025-03-12/periods.parquet",
	}, rec.writes)
}

func TestRecompute_AsOfOverride(t *testing.T) {
	rec := &recorder{}
	s := newService(rec, nil)

	out, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
		changedEvent(t, types.ActivityChangedEvent{UserID: "user-1", AsOf: "2025-03-05"}), fwCtx(s))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-05", out.(map[string]interface{})["as_of"])
	assert.Equal(t, 1, rec.series.TSSDays)
	assert.Equal(t, false, out.(map[string]interface{})["pmc_ready"])
}

func TestRecompute_NoNotificationWithoutIncrease(t *testing.T) {
	tests := []struct {
		name        string
		previousFTP *int
	}{
		{"first estimate", nil},
		{"unchanged", types.Int(285)},
		{"decrease", types.Int(300)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			s := newService(rec, tt.previousFTP)

			_, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
				changedEvent(t, types.ActivityChangedEvent{UserID: "user-1"}), fwCtx(s))
			require.NoError(t, err)
			assert.Zero(t, rec.pushes)
		})
	}
}

func TestRecompute_MissingUserSkips(t *testing.T) {
	rec := &recorder{}
	s := newService(rec, nil)

	out, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
		changedEvent(t, types.ActivityChangedEvent{}), fwCtx(s))
	require.NoError(t, err)
	assert.Equal(t, "skipped", out.(map[string]interface{})["status"])
	assert.Nil(t, rec.series)
	assert.Empty(t, rec.topic)
}

func TestRecompute_MissingSettingsStillComputes(t *testing.T) {
	rec := &recorder{}
	s := newService(rec, nil)
	s.DB.(*mocks.MockDatabase).GetUserSettingsFunc = nil

	_, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
		changedEvent(t, types.ActivityChangedEvent{UserID: "user-1"}), fwCtx(s))
	require.NoError(t, err)
	require.NotNil(t, rec.profile)
	assert.Nil(t, rec.profile.WattsPerKg)
	assert.NotNil(t, rec.profile.FTPWatts)
}

func TestRecompute_Errors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		s := newService(&recorder{}, nil)
		s.DB.(*mocks.MockDatabase).ListActivitiesFunc = func(ctx context.Context, userID string) ([]types.ActivityRecord, error) {
			return nil, errors.New("unavailable")
		}
		_, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
			changedEvent(t, types.ActivityChangedEvent{UserID: "user-1"}), fwCtx(s))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list activities")
	})

	t.Run("bad as_of", func(t *testing.T) {
		s := newService(&recorder{}, nil)
		_, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
			changedEvent(t, types.ActivityChangedEvent{UserID: "user-1", AsOf: "12/03/2025"}), fwCtx(s))
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "as_of"))
	})

	t.Run("export failure is not fatal", func(t *testing.T) {
		rec := &recorder{}
		s := newService(rec, nil)
		s.Store = &mocks.MockBlobStore{WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
			return errors.New("denied")
		}}
		_, err := recomputeHandler(newRecomputer(), fixedNow)(context.Background(),
			changedEvent(t, types.ActivityChangedEvent{UserID: "user-1"}), fwCtx(s))
		require.NoError(t, err)
		var published types.AnalyticsUpdatedEvent
		require.NoError(t, rec.event.DataAs(&published))
		assert.NotContains(t, published.Views, "exports")
	})
}

func TestResolveAsOf_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	d, err := resolveAsOf("", time.Date(2025, time.March, 12, 20, 0, 0, 0, time.UTC), tokyo)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-13", d.String())
}
