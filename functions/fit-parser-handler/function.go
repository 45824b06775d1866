package fitparserhandler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/bootstrap"
	"github.com/vitalsync/server/pkg/domain/fit_parser"
	httputil "github.com/vitalsync/server/pkg/infrastructure/http"
	infrapubsub "github.com/vitalsync/server/pkg/infrastructure/pubsub"
	infrastorage "github.com/vitalsync/server/pkg/infrastructure/storage"
	"github.com/vitalsync/server/pkg/types"
)

// maxUploadBytes bounds the request body. FIT files from day-long
// activities stay well under this after base64.
const maxUploadBytes = 32 << 20

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("ParseFitFile", ParseFitFile)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// ParseFitFileRequest is the expected request body. Exactly one of the two
// sources must be set.
type ParseFitFileRequest struct {
	// Base64-encoded FIT file data
	FitFileBase64 string `json:"fitFileBase64,omitempty"`
	// gs://bucket/object of an already uploaded FIT file
	FitFileURI string `json:"fitFileUri,omitempty"`
}

// ParseFitFileResponse is the response body
type ParseFitFileResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
	SportType  string `json:"sportType,omitempty"`
	StartTime  string `json:"startTime,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// ParseFitFile is the HTTP entry point for FIT file parsing
func ParseFitFile(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		slog.Error("Service init failed", "error", err)
		httputil.WriteError(w, slog.Default(), err)
		return
	}
	var verifier httputil.TokenVerifier
	if svc.Auth != nil {
		verifier = svc.Auth
	}
	newHandler(svc, verifier).ServeHTTP(w, r)
}

func newHandler(s *bootstrap.Service, verifier httputil.TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := bootstrap.NewLogger("fit-parser-handler")
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		resp, err := handle(r, s, verifier, logger)
		if err != nil {
			httputil.WriteError(w, logger, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func handle(r *http.Request, s *bootstrap.Service, verifier httputil.TokenVerifier, logger *slog.Logger) (*ParseFitFileResponse, error) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		return nil, httputil.NewError(http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
	if verifier == nil {
		return nil, errors.New("token verifier not configured")
	}

	userID, err := httputil.VerifyRequest(ctx, verifier, r)
	if err != nil {
		return nil, err
	}
	logger = logger.With("user_id", userID)

	var req ParseFitFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, httputil.BadRequest("Invalid request body", err)
	}

	fitData, err := loadFitData(ctx, s.Store, &req)
	if err != nil {
		return nil, err
	}

	logger.Info("Processing FIT file upload", "bytes", len(fitData))

	activity, err := fit_parser.ParseFitFile(fitData, defaultLocation(s))
	if err != nil {
		return nil, httputil.BadRequest(fmt.Sprintf("Failed to parse FIT file: %s", err.Error()), err)
	}
	// Same bytes, same ID: a re-upload resolves to the stored activity.
	activity.ID = uuid.NewSHA1(uuid.NameSpaceOID, fitData).String()

	existing, err := s.DB.GetActivity(ctx, userID, activity.ID)
	switch {
	case err == nil:
		logger.Info("FIT file already stored", "activity_id", existing.ID)
		return &ParseFitFileResponse{
			Success:    true,
			Message:    "Activity already stored",
			ActivityID: existing.ID,
			SportType:  existing.SportTypeRaw,
			StartTime:  existing.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
			Duplicate:  true,
		}, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("check activity: %w", err)
	}

	if err := s.DB.SetActivity(ctx, userID, activity); err != nil {
		return nil, fmt.Errorf("store activity: %w", err)
	}

	event, err := infrapubsub.NewCloudEvent(infrapubsub.SourceFitParser, infrapubsub.TypeActivityChanged, types.ActivityChangedEvent{
		UserID:     userID,
		ActivityID: activity.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("build event: %w", err)
	}

	msgID, err := s.Pub.PublishCloudEvent(ctx, shared.TopicActivityChanged, event)
	if err != nil {
		// The activity is stored; the next change event will pick it up.
		logger.Error("Failed to publish activity change", "error", err, "activity_id", activity.ID)
	}

	logger.Info("FIT file parsed and stored",
		"activity_id", activity.ID,
		"message_id", msgID,
		"sport_type", activity.SportTypeRaw,
		"best_efforts", len(activity.BestEffortPower),
	)

	return &ParseFitFileResponse{
		Success:    true,
		Message:    "Activity stored",
		ActivityID: activity.ID,
		SportType:  activity.SportTypeRaw,
		StartTime:  activity.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

func defaultLocation(s *bootstrap.Service) *time.Location {
	if s.Config != nil && s.Config.DefaultLocation != nil {
		return s.Config.DefaultLocation
	}
	return time.UTC
}

func loadFitData(ctx context.Context, store shared.BlobStore, req *ParseFitFileRequest) ([]byte, error) {
	switch {
	case req.FitFileBase64 != "" && req.FitFileURI != "":
		return nil, httputil.BadRequest("Provide fitFileBase64 or fitFileUri, not both", nil)
	case req.FitFileBase64 != "":
		data, err := base64.StdEncoding.DecodeString(req.FitFileBase64)
		if err != nil {
			return nil, httputil.BadRequest("Invalid base64 data", err)
		}
		return data, nil
	case req.FitFileURI != "":
		bucket, object, err := infrastorage.ParseURI(req.FitFileURI)
		if err != nil {
			return nil, httputil.BadRequest("Invalid fitFileUri", err)
		}
		if store == nil {
			return nil, errors.New("blob store not configured")
		}
		data, err := store.Read(ctx, bucket, object)
		if err != nil {
			return nil, httputil.NewError(http.StatusNotFound, "FIT file not found", err)
		}
		return data, nil
	default:
		return nil, httputil.BadRequest("fitFileBase64 or fitFileUri is required", nil)
	}
}
