package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	shared "github.com/vitalsync/server/pkg"
)

type FCMAdapter struct {
	client *messaging.Client
	fs     *firestore.Client
	logger *slog.Logger
}

var _ shared.NotificationService = (*FCMAdapter)(nil)

func NewFCMAdapter(ctx context.Context, app *firebase.App, fs *firestore.Client, logger *slog.Logger) (*FCMAdapter, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMAdapter{client: client, fs: fs, logger: logger.With("component", "fcm")}, nil
}

func (a *FCMAdapter) SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
	if len(tokens) == 0 {
		a.logger.Debug("No tokens for user, skipping notification", "user_id", userID)
		return nil
	}

	a.logger.Info("Sending push notification", "user_id", userID, "token_count", len(tokens), "title", title)

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	response, err := a.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send multicast message: %w", err)
	}

	if response.FailureCount > 0 {
		a.logger.Warn("Some push notifications failed to send",
			"user_id", userID,
			"failure_count", response.FailureCount,
			"success_count", response.SuccessCount,
		)
		a.cleanupDeadTokens(ctx, userID, deadTokens(tokens, response.Responses))
	}

	return nil
}

// deadTokens picks the tokens whose send failed with NotRegistered.
func deadTokens(tokens []string, responses []*messaging.SendResponse) []interface{} {
	var dead []interface{}
	for i, resp := range responses {
		if i >= len(tokens) {
			break
		}
		if resp != nil && resp.Error != nil && messaging.IsRegistrationTokenNotRegistered(resp.Error) {
			dead = append(dead, tokens[i])
		}
	}
	return dead
}

// cleanupDeadTokens removes tokens from users/{uid}/settings/profile.
func (a *FCMAdapter) cleanupDeadTokens(ctx context.Context, userID string, dead []interface{}) {
	if len(dead) == 0 {
		return
	}

	a.logger.Info("Removing dead FCM tokens", "user_id", userID, "count", len(dead))
	_, err := a.fs.Collection(shared.CollectionUsers).Doc(userID).
		Collection(shared.CollectionSettings).Doc(shared.DocSettingsProfile).
		Update(ctx, []firestore.Update{
			{Path: "fcmTokens", Value: firestore.ArrayRemove(dead...)},
		})
	if err != nil {
		a.logger.Error("Failed to remove dead FCM tokens", "user_id", userID, "error", err)
	}
}
