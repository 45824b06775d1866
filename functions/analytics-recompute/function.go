package analyticsrecompute

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/analytics"
	"github.com/vitalsync/server/pkg/bootstrap"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/export"
	"github.com/vitalsync/server/pkg/framework"
	infrapubsub "github.com/vitalsync/server/pkg/infrastructure/pubsub"
	"github.com/vitalsync/server/pkg/types"
)

var (
	svc        *bootstrap.Service
	recomputer *analytics.Recomputer
	svcOnce    sync.Once
	svcErr     error
)

func init() {
	functions.CloudEvent("RecomputeAnalytics", RecomputeAnalytics)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			svcErr = err
			return
		}
		svc = baseSvc
		recomputer = analytics.NewRecomputer(analytics.NewEngine(baseSvc.Tables))
	})
	return svc, svcErr
}

// RecomputeAnalytics is the entry point
func RecomputeAnalytics(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("analytics-recompute", svc, recomputeHandler(recomputer, time.Now))(ctx, e)
}

func skipped(reason string) map[string]interface{} {
	return map[string]interface{}{"status": string(types.ExecutionStatusSkipped), "reason": reason}
}

// recomputeHandler rebuilds every derived view for the user named in an
// activity-changed event and persists them. now is injectable for tests.
func recomputeHandler(rc *analytics.Recomputer, now func() time.Time) framework.HandlerFunc {
	return func(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		var evt types.ActivityChangedEvent
		if err := framework.DecodeData(e, &evt); err != nil {
			return nil, err
		}
		if evt.UserID == "" {
			fwCtx.Logger.Warn("Event has no user_id")
			return skipped("missing user_id"), nil
		}

		s := fwCtx.Service
		cfg := s.Config
		if cfg == nil {
			cfg = &bootstrap.Config{}
		}

		asOf, err := resolveAsOf(evt.AsOf, now(), cfg.DefaultLocation)
		if err != nil {
			return nil, err
		}

		activities, err := s.DB.ListActivities(ctx, evt.UserID)
		if err != nil {
			return nil, fmt.Errorf("list activities: %w", err)
		}

		var athlete *types.AthleteProfile
		var tokens []string
		settings, err := s.DB.GetUserSettings(ctx, evt.UserID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			fwCtx.Logger.Info("No settings document, computing without athlete profile")
		case err != nil:
			return nil, fmt.Errorf("get settings: %w", err)
		default:
			athlete = &settings.Athlete
			tokens = settings.FCMTokens
		}

		previous, err := s.DB.GetPowerProfile(ctx, evt.UserID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			fwCtx.Logger.Warn("Failed to read previous power profile", "error", err)
		}

		report, fresh := rc.Recompute(evt.UserID,
			analytics.Snapshot{Activities: activities, Athlete: athlete},
			analytics.Request{AsOf: asOf, WindowDays: cfg.WindowDays},
		)
		if !fresh {
			fwCtx.Logger.Info("Compute pass superseded, dropping result", "as_of", asOf.String())
			return skipped("superseded"), nil
		}

		if err := s.DB.SetLoadSeries(ctx, evt.UserID, report.Load); err != nil {
			return nil, fmt.Errorf("persist load series: %w", err)
		}
		var stats []period.Stat
		for _, pt := range []period.Type{period.Week, period.Month, period.Year} {
			stats = append(stats, report.Periods[pt]...)
		}
		if err := s.DB.SetPeriodStats(ctx, evt.UserID, stats); err != nil {
			return nil, fmt.Errorf("persist period stats: %w", err)
		}
		if err := s.DB.SetPowerProfile(ctx, evt.UserID, report.Power); err != nil {
			return nil, fmt.Errorf("persist power profile: %w", err)
		}
		views := []string{shared.DocTrendPMC, shared.CollectionActivityStats, shared.DocTrendPowerProfile}

		if cfg.GCSArtifactBucket != "" && s.Store != nil {
			if err := writeExports(ctx, s.Store, cfg.GCSArtifactBucket, evt.UserID, report, stats); err != nil {
				// Exports are a convenience copy; the views are already saved.
				fwCtx.Logger.Warn("Failed to write exports", "error", err)
			} else {
				views = append(views, shared.ExportsPrefix)
			}
		}

		latest := report.Load.Latest()
		updated := types.AnalyticsUpdatedEvent{
			UserID:   evt.UserID,
			AsOf:     asOf.String(),
			FTPWatts: report.Power.FTPWatts,
			CTL:      latest.CTL,
			ATL:      latest.ATL,
			TSB:      latest.TSB,
			Views:    views,
		}
		ce, err := infrapubsub.NewCloudEvent(infrapubsub.SourceAnalyticsRecompute, infrapubsub.TypeAnalyticsUpdated, updated)
		if err != nil {
			return nil, fmt.Errorf("build event: %w", err)
		}
		msgID, err := s.Pub.PublishCloudEvent(ctx, shared.TopicAnalyticsUpdated, ce)
		if err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}

		notified := false
		if ftpIncreased(previous, report.Power.FTPWatts) && len(tokens) > 0 && s.Notify != nil {
			body := fmt.Sprintf("Your estimated FTP is now %d W.", *report.Power.FTPWatts)
			if err := s.Notify.SendPushNotification(ctx, evt.UserID, "New FTP estimate", body, tokens, map[string]string{
				"type":      "ftp_increase",
				"ftp_watts": fmt.Sprint(*report.Power.FTPWatts),
			}); err != nil {
				fwCtx.Logger.Warn("Failed to send FTP notification", "error", err)
			} else {
				notified = true
			}
		}

		fwCtx.Logger.Info("Analytics recomputed",
			"as_of", asOf.String(),
			"activities", len(activities),
			"tss_days", report.Load.TSSDays,
			"message_id", msgID,
		)

		return map[string]interface{}{
			"status":      string(types.ExecutionStatusSuccess),
			"as_of":       asOf.String(),
			"activities":  len(activities),
			"pmc_ready":   report.Readiness.PMC,
			"power_ready": report.Readiness.PowerProfile,
			"notified":    notified,
			"message_id":  msgID,
		}, nil
	}
}

func resolveAsOf(raw string, now time.Time, loc *time.Location) (types.Date, error) {
	if raw != "" {
		d, err := types.ParseDate(raw)
		if err != nil {
			return types.Date{}, fmt.Errorf("as_of: %w", err)
		}
		return d, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	return types.DateOf(now.In(loc)), nil
}

// ftpIncreased is false on the first estimate so new users are not
// notified for their baseline.
func ftpIncreased(previous *power.Profile, current *int) bool {
	if current == nil || previous == nil || previous.FTPWatts == nil {
		return false
	}
	return *current > *previous.FTPWatts
}

func writeExports(ctx context.Context, store shared.BlobStore, bucket, userID string, report *analytics.Report, stats []period.Stat) error {
	dir := path.Join(shared.ExportsPrefix, userID, report.AsOf.String())

	pmc, err := export.LoadSeriesParquet(report.Load)
	if err != nil {
		return fmt.Errorf("encode pmc: %w", err)
	}
	if err := store.Write(ctx, bucket, path.Join(dir, "pmc.parquet"), pmc); err != nil {
		return err
	}

	periods, err := export.PeriodStatsParquet(stats)
	if err != nil {
		return fmt.Errorf("encode periods: %w", err)
	}
	return store.Write(ctx, bucket, path.Join(dir, "periods.parquet"), periods)
}
