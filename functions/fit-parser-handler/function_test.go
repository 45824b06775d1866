package fitparserhandler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/bootstrap"
	"github.com/vitalsync/server/pkg/domain/file_generators"
	infrapubsub "github.com/vitalsync/server/pkg/infrastructure/pubsub"
	"github.com/vitalsync/server/pkg/testing/mocks"
	"github.com/vitalsync/server/pkg/types"
)

type staticVerifier struct{}

func (staticVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken != "valid-token" {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: "user-1"}, nil
}

func fitFixture(t *testing.T) []byte {
	t.Helper()
	data, err := file_generators.GenerateFitFile(&file_generators.Workout{
		Sport:     typedef.SportCycling,
		SubSport:  typedef.SubSportRoad,
		StartTime: time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC),
		Power:     file_generators.ConstantPower(1500, 250),
	})
	require.NoError(t, err)
	return data
}

type captured struct {
	activity  *types.ActivityRecord
	topic     string
	event     event.Event
	published int
}

func newTestService(c *captured, blobs map[string][]byte) *bootstrap.Service {
	return &bootstrap.Service{
		DB: &mocks.MockDatabase{
			GetActivityFunc: func(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error) {
				if c.activity != nil && c.activity.ID == activityID {
					return c.activity, nil
				}
				return nil, shared.ErrNotFound
			},
			SetActivityFunc: func(ctx context.Context, userID string, activity *types.ActivityRecord) error {
				c.activity = activity
				return nil
			},
		},
		Pub: &mocks.MockPublisher{
			PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
				c.topic = topic
				c.event = e
				c.published++
				return "msg-1", nil
			},
		},
		Store: &mocks.MockBlobStore{
			ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
				data, ok := blobs[bucket+"/"+object]
				if !ok {
					return nil, errors.New("object not found")
				}
				return data, nil
			},
		},
	}
}

func post(t *testing.T, h http.Handler, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParseFitFile_Base64(t *testing.T) {
	c := &captured{}
	h := newHandler(newTestService(c, nil), staticVerifier{})

	rec := post(t, h, "valid-token", ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString(fitFixture(t))})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ParseFitFileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ActivityID)
	assert.Equal(t, "road_biking", resp.SportType)

	require.NotNil(t, c.activity)
	assert.Equal(t, resp.ActivityID, c.activity.ID)
	assert.InDelta(t, 250, c.activity.BestEffortPower[types.Effort20m], 0.001)

	assert.Equal(t, shared.TopicActivityChanged, c.topic)
	assert.Equal(t, infrapubsub.TypeActivityChanged, c.event.Type())
	var published types.ActivityChangedEvent
	require.NoError(t, c.event.DataAs(&published))
	assert.Equal(t, "user-1", published.UserID)
	assert.Equal(t, resp.ActivityID, published.ActivityID)
}

func TestParseFitFile_URI(t *testing.T) {
	c := &captured{}
	h := newHandler(newTestService(c, map[string][]byte{"uploads/user-1/ride.fit": fitFixture(t)}), staticVerifier{})

	rec := post(t, h, "valid-token", ParseFitFileRequest{FitFileURI: "gs://uploads/user-1/ride.fit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, c.activity)
}

func TestParseFitFile_ReuploadIsDeduplicated(t *testing.T) {
	c := &captured{}
	h := newHandler(newTestService(c, nil), staticVerifier{})
	body := ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString(fitFixture(t))}

	var first, second ParseFitFileResponse
	rec := post(t, h, "valid-token", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.False(t, first.Duplicate)

	rec = post(t, h, "valid-token", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ActivityID, second.ActivityID)
	assert.Equal(t, first.StartTime, second.StartTime)
	assert.Equal(t, 1, c.published, "a re-upload does not trigger a recompute")
}

func TestParseFitFile_LookupFailure(t *testing.T) {
	c := &captured{}
	s := newTestService(c, nil)
	s.DB.(*mocks.MockDatabase).GetActivityFunc = func(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error) {
		return nil, errors.New("unavailable")
	}
	h := newHandler(s, staticVerifier{})

	rec := post(t, h, "valid-token", ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString(fitFixture(t))})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, c.activity)
}

func TestParseFitFile_StartTimeUsesDefaultZone(t *testing.T) {
	c := &captured{}
	s := newTestService(c, nil)
	s.Config = &bootstrap.Config{DefaultLocation: time.FixedZone("AKST", -9*3600)}
	h := newHandler(s, staticVerifier{})

	rec := post(t, h, "valid-token", ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString(fitFixture(t))})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 08:00 UTC on Monday is 23:00 Sunday at UTC-9.
	require.NotNil(t, c.activity)
	assert.Equal(t, types.NewDate(2025, time.March, 2), c.activity.Date())
	assert.Equal(t, 23, c.activity.StartTime.Hour())
}

func TestParseFitFile_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{"no token", "", ParseFitFileRequest{FitFileBase64: "AAAA"}, http.StatusUnauthorized},
		{"bad token", "forged", ParseFitFileRequest{FitFileBase64: "AAAA"}, http.StatusUnauthorized},
		{"no source", "valid-token", ParseFitFileRequest{}, http.StatusBadRequest},
		{"both sources", "valid-token", ParseFitFileRequest{FitFileBase64: "AAAA", FitFileURI: "gs://b/o"}, http.StatusBadRequest},
		{"bad base64", "valid-token", ParseFitFileRequest{FitFileBase64: "%%%"}, http.StatusBadRequest},
		{"bad uri", "valid-token", ParseFitFileRequest{FitFileURI: "https://example.com/a.fit"}, http.StatusBadRequest},
		{"missing object", "valid-token", ParseFitFileRequest{FitFileURI: "gs://uploads/nope.fit"}, http.StatusNotFound},
		{"not a fit file", "valid-token", ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString([]byte("hello"))}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			h := newHandler(newTestService(c, nil), staticVerifier{})

			rec := post(t, h, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Nil(t, c.activity)
			assert.Empty(t, c.topic)
		})
	}
}

func TestParseFitFile_MethodNotAllowed(t *testing.T) {
	h := newHandler(newTestService(&captured{}, nil), staticVerifier{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParseFitFile_StoreFailure(t *testing.T) {
	c := &captured{}
	s := newTestService(c, nil)
	s.DB.(*mocks.MockDatabase).SetActivityFunc = func(ctx context.Context, userID string, activity *types.ActivityRecord) error {
		return errors.New("unavailable")
	}
	h := newHandler(s, staticVerifier{})

	rec := post(t, h, "valid-token", ParseFitFileRequest{FitFileBase64: base64.StdEncoding.EncodeToString(fitFixture(t))})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, c.topic)
}
