package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	storage "github.com/vitalsync/server/pkg/storage/firestore"
	"github.com/vitalsync/server/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client
}

var _ shared.Database = (*FirestoreAdapter)(nil)

// AuditUserDeletion is the audit log action for an erased account.
const AuditUserDeletion = "user_deletion"

// NewFirestoreAdapter wraps client. loc is the zone used for activity
// start times stored as timestamps rather than wall-clock strings.
func NewFirestoreAdapter(client *firestore.Client, loc *time.Location) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client, loc),
	}
}

// notFound maps Firestore's gRPC NotFound onto shared.ErrNotFound.
func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return shared.ErrNotFound
	}
	return err
}

func (a *FirestoreAdapter) executions(userID string) *storage.Collection[types.ExecutionRecord] {
	if userID == "" {
		return a.storage.OrphanedExecutions()
	}
	return a.storage.UserExecutions(userID)
}

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	return a.executions(record.UserID).Doc(record.ExecutionID).Set(ctx, record)
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, userID, id string, data map[string]interface{}) error {
	return a.executions(userID).Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) ListActivities(ctx context.Context, userID string) ([]types.ActivityRecord, error) {
	docs, err := a.storage.Activities(userID).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.ActivityRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d)
	}
	storage.SortActivities(out)
	return out, nil
}

func (a *FirestoreAdapter) GetActivity(ctx context.Context, userID, activityID string) (*types.ActivityRecord, error) {
	act, err := a.storage.Activities(userID).Doc(activityID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return act, nil
}

func (a *FirestoreAdapter) SetActivity(ctx context.Context, userID string, activity *types.ActivityRecord) error {
	if activity.ID == "" {
		return errors.New("activity has no id")
	}
	return a.storage.Activities(userID).Doc(activity.ID).Set(ctx, activity)
}

func (a *FirestoreAdapter) GetUserSettings(ctx context.Context, userID string) (*types.UserSettings, error) {
	s, err := a.storage.Settings(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (a *FirestoreAdapter) SetLoadSeries(ctx context.Context, userID string, series *load.Series) error {
	return a.storage.PMC(userID).Replace(ctx, series)
}

func (a *FirestoreAdapter) GetLoadSeries(ctx context.Context, userID string) (*load.Series, error) {
	s, err := a.storage.PMC(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// SetPeriodStats writes one document per period, keyed by its label.
func (a *FirestoreAdapter) SetPeriodStats(ctx context.Context, userID string, stats []period.Stat) error {
	docs := make(map[string]*period.Stat, len(stats))
	for i := range stats {
		docs[stats[i].Label()] = &stats[i]
	}
	if err := a.storage.ActivityStats(userID).SetAll(ctx, a.Client, docs); err != nil {
		return fmt.Errorf("write activity stats: %w", err)
	}
	return nil
}

func (a *FirestoreAdapter) SetPowerProfile(ctx context.Context, userID string, profile *power.Profile) error {
	return a.storage.PowerProfile(userID).Replace(ctx, profile)
}

func (a *FirestoreAdapter) GetPowerProfile(ctx context.Context, userID string) (*power.Profile, error) {
	p, err := a.storage.PowerProfile(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// DeleteUserData erases everything stored for userID and leaves an audit
// entry that does not name the user.
func (a *FirestoreAdapter) DeleteUserData(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}
	n, err := a.storage.DeleteUser(ctx, userID)
	if err != nil {
		return n, err
	}
	if err := a.storage.RecordAudit(ctx, AuditUserDeletion); err != nil {
		return n, fmt.Errorf("record audit: %w", err)
	}
	return n, nil
}
