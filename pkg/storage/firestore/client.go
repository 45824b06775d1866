package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/types"
)

type Client struct {
	fs *firestore.Client
	// loc dates activities whose start time is stored as a timestamp.
	loc *time.Location
}

func NewClient(client *firestore.Client, loc *time.Location) *Client {
	return &Client{fs: client, loc: loc}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// Raw exposes the underlying client for batch writes.
func (c *Client) Raw() *firestore.Client {
	return c.fs
}

func (c *Client) user(userID string) *firestore.DocumentRef {
	return c.fs.Collection(shared.CollectionUsers).Doc(userID)
}

// Activities are sub-collections of Users: users/{uid}/activities/{id}
func (c *Client) Activities(userID string) *Collection[types.ActivityRecord] {
	return &Collection[types.ActivityRecord]{
		Ref:           c.user(userID).Collection(shared.CollectionActivities),
		ToFirestore:   ActivityToFirestore,
		FromFirestore: func(m map[string]interface{}) *types.ActivityRecord {
			return FirestoreToActivity(m, c.loc)
		},
	}
}

// Settings holds one profile document: users/{uid}/settings/profile
func (c *Client) Settings(userID string) *DocumentRef[types.UserSettings] {
	return (&Collection[types.UserSettings]{
		Ref:           c.user(userID).Collection(shared.CollectionSettings),
		ToFirestore:   SettingsToFirestore,
		FromFirestore: FirestoreToSettings,
	}).Doc(shared.DocSettingsProfile)
}

// PMC is users/{uid}/trends/pmc
func (c *Client) PMC(userID string) *DocumentRef[load.Series] {
	return (&Collection[load.Series]{
		Ref:           c.user(userID).Collection(shared.CollectionTrends),
		ToFirestore:   LoadSeriesToFirestore,
		FromFirestore: FirestoreToLoadSeries,
	}).Doc(shared.DocTrendPMC)
}

// PowerProfile is users/{uid}/trends/power_profile
func (c *Client) PowerProfile(userID string) *DocumentRef[power.Profile] {
	return (&Collection[power.Profile]{
		Ref:           c.user(userID).Collection(shared.CollectionTrends),
		ToFirestore:   PowerProfileToFirestore,
		FromFirestore: FirestoreToPowerProfile,
	}).Doc(shared.DocTrendPowerProfile)
}

// ActivityStats are keyed by period label: users/{uid}/activityStats/2025-W06
func (c *Client) ActivityStats(userID string) *Collection[period.Stat] {
	return &Collection[period.Stat]{
		Ref:           c.user(userID).Collection(shared.CollectionActivityStats),
		ToFirestore:   PeriodStatToFirestore,
		FromFirestore: FirestoreToPeriodStat,
	}
}

// UserExecutions are sub-collections of Users: users/{uid}/executions/{id}
func (c *Client) UserExecutions(userID string) *Collection[types.ExecutionRecord] {
	return &Collection[types.ExecutionRecord]{
		Ref:           c.user(userID).Collection(shared.CollectionExecutions),
		ToFirestore:   ExecutionToFirestore,
		FromFirestore: FirestoreToExecution,
	}
}

// OrphanedExecutions stores executions without a userId.
func (c *Client) OrphanedExecutions() *Collection[types.ExecutionRecord] {
	return &Collection[types.ExecutionRecord]{
		Ref:           c.fs.Collection("orphaned_executions"),
		ToFirestore:   ExecutionToFirestore,
		FromFirestore: FirestoreToExecution,
	}
}

// DeleteUser removes every subcollection this service writes under
// users/{uid} and the user document itself. It returns the number of
// documents deleted, including any before a failure.
func (c *Client) DeleteUser(ctx context.Context, userID string) (int, error) {
	var total int
	for _, name := range []string{
		shared.CollectionActivities,
		shared.CollectionActivityStats,
		shared.CollectionTrends,
		shared.CollectionSettings,
		shared.CollectionExecutions,
	} {
		n, err := deleteCollection(ctx, c.fs, c.user(userID).Collection(name))
		total += n
		if err != nil {
			return total, err
		}
	}
	if _, err := c.user(userID).Delete(ctx); err != nil {
		return total, fmt.Errorf("delete user document: %w", err)
	}
	return total, nil
}

// RecordAudit appends an anonymised entry to the top-level audit log.
func (c *Client) RecordAudit(ctx context.Context, action string) error {
	_, _, err := c.fs.Collection(shared.CollectionAuditLog).Add(ctx, map[string]interface{}{
		"action":    action,
		"timestamp": firestore.ServerTimestamp,
	})
	return err
}
