package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/vitalsync/server/pkg/bootstrap"
	infrasentry "github.com/vitalsync/server/pkg/infrastructure/sentry"
	"github.com/vitalsync/server/pkg/types"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
	UserID      string
}

// HandlerFunc is the signature for a cloud function handler. A returned
// map with a "status" string overrides the recorded execution status.
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with execution logging and error capture.
// Pub/Sub envelopes are unwrapped so handlers see the published event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		triggerType := "pubsub"
		if e.Type() == "google.cloud.functions.http" {
			triggerType = "http"
		}

		inner := unwrapPubSub(e)
		userID := extractUserID(inner)

		logger := bootstrap.NewLogger(serviceName)
		if userID != "" {
			logger = logger.With("user_id", userID)
		}

		execID := uuid.NewString()
		logger = logger.With("execution_id", execID)

		record := &types.ExecutionRecord{
			ExecutionID: execID,
			Service:     serviceName,
			UserID:      userID,
			TriggerType: triggerType,
			Status:      types.ExecutionStatusStarted,
			StartTime:   time.Now().UTC(),
		}
		if err := svc.DB.SetExecution(ctx, record); err != nil {
			// Execution logging never fails the function.
			logger.Error("Failed to log execution start", "error", err)
		}
		logger.Info("Function started", "event_type", inner.Type())

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
			UserID:      userID,
		}

		outputs, handlerErr := handler(ctx, inner, fwCtx)

		update := map[string]interface{}{
			"end_time": time.Now().UTC(),
		}
		if b, err := json.Marshal(outputs); err == nil && outputs != nil {
			update["outputs_json"] = string(b)
		}

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			infrasentry.CaptureException(handlerErr, map[string]string{
				"service":      serviceName,
				"execution_id": execID,
				"user_id":      userID,
			}, logger)

			update["status"] = string(types.ExecutionStatusFailed)
			update["error_message"] = handlerErr.Error()
			if err := svc.DB.UpdateExecution(ctx, userID, execID, update); err != nil {
				logger.Warn("Failed to log execution failure", "error", err)
			}
			return handlerErr
		}

		update["status"] = string(resolveStatus(outputs, logger))
		if err := svc.DB.UpdateExecution(ctx, userID, execID, update); err != nil {
			logger.Warn("Failed to log execution status", "error", err)
		}
		logger.Info("Function completed successfully", "status", update["status"])
		return nil
	}
}

func resolveStatus(outputs interface{}, logger *slog.Logger) types.ExecutionStatus {
	m, ok := outputs.(map[string]interface{})
	if !ok {
		return types.ExecutionStatusSuccess
	}
	s, ok := m["status"].(string)
	if !ok || s == "" {
		return types.ExecutionStatusSuccess
	}
	switch st := types.ExecutionStatus(s); st {
	case types.ExecutionStatusSuccess, types.ExecutionStatusSkipped:
		return st
	default:
		logger.Warn("Unknown custom status returned", "status", s)
		return types.ExecutionStatusSuccess
	}
}

// unwrapPubSub rebuilds the published CloudEvent from a Pub/Sub push. Events
// published by PubSubAdapter carry their context in ce-* attributes; older
// publishers put a structured CloudEvent in the body. Anything else is
// returned unchanged.
func unwrapPubSub(e event.Event) event.Event {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil || len(msg.Message.Data) == 0 {
		return e
	}

	if ceType := msg.Message.Attributes["ce-type"]; ceType != "" {
		inner := event.New()
		inner.SetID(msg.Message.Attributes["ce-id"])
		inner.SetType(ceType)
		inner.SetSource(msg.Message.Attributes["ce-source"])
		if err := inner.SetData(event.ApplicationJSON, json.RawMessage(msg.Message.Data)); err != nil {
			return e
		}
		return inner
	}

	var structured event.Event
	if err := json.Unmarshal(msg.Message.Data, &structured); err == nil && structured.Type() != "" {
		return structured
	}
	return e
}

// extractUserID reads user_id (or userId) from the event payload, looking
// inside a Pub/Sub envelope when the event was not unwrapped.
func extractUserID(e event.Event) string {
	data := e.Data()
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err == nil && len(msg.Message.Data) > 0 {
		data = msg.Message.Data
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"user_id", "userId"} {
		if uid, ok := payload[key].(string); ok && uid != "" {
			return uid
		}
	}
	return ""
}

// DecodeData unmarshals the (unwrapped) event payload into v.
func DecodeData(e event.Event, v interface{}) error {
	if err := e.DataAs(v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type(), err)
	}
	return nil
}
