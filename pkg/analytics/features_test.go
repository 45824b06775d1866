package analytics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/vitalsync/server/pkg/types"
)

type featureWorld struct {
	engine  *Engine
	snap    Snapshot
	report  *Report
	counter int
}

func (w *featureWorld) anAthleteWeighing(kg float64) error {
	w.snap.Athlete = &types.AthleteProfile{WeightKg: types.Float(kg)}
	return nil
}

func (w *featureWorld) anAthleteWeighingAged(kg float64, age int) error {
	w.snap.Athlete = &types.AthleteProfile{WeightKg: types.Float(kg), Age: types.Int(age)}
	return nil
}

func (w *featureWorld) addActivity(raw, date string) (*types.ActivityRecord, error) {
	d, err := types.ParseDate(date)
	if err != nil {
		return nil, err
	}
	w.counter++
	w.snap.Activities = append(w.snap.Activities, types.ActivityRecord{
		ID:              fmt.Sprintf("act-%d", w.counter),
		SportTypeRaw:    raw,
		StartTime:       time.Date(d.Year, d.Month, d.Day, 9, 0, 0, 0, time.UTC),
		DurationSeconds: types.Float(3600),
	})
	return &w.snap.Activities[len(w.snap.Activities)-1], nil
}

func (w *featureWorld) anActivityWithBestEffort(raw, date string, n int, unit string, watts float64) error {
	a, err := w.addActivity(raw, date)
	if err != nil {
		return err
	}
	d := time.Duration(n) * time.Second
	if unit == "minute" {
		d = time.Duration(n) * time.Minute
	}
	effort, err := types.ParseEffortDuration(d.String())
	if err != nil {
		return err
	}
	a.BestEffortPower = map[types.EffortDuration]float64{effort: watts}
	return nil
}

func (w *featureWorld) anActivityWithTSS(raw, date string, tss float64) error {
	a, err := w.addActivity(raw, date)
	if err != nil {
		return err
	}
	a.TrainingStressScore = types.Float(tss)
	return nil
}

func (w *featureWorld) computeWithWindow(date string, window int) error {
	asOf, err := types.ParseDate(date)
	if err != nil {
		return err
	}
	w.report = w.engine.Compute(w.snap, Request{AsOf: asOf, WindowDays: window})
	return nil
}

func (w *featureWorld) compute(date string) error {
	return w.computeWithWindow(date, 0)
}

func (w *featureWorld) ftpIs(watts int) error {
	if w.report.Power.FTPWatts == nil {
		return fmt.Errorf("expected FTP %d, got unknown", watts)
	}
	if *w.report.Power.FTPWatts != watts {
		return fmt.Errorf("expected FTP %d, got %d", watts, *w.report.Power.FTPWatts)
	}
	return nil
}

func (w *featureWorld) ftpUnknown() error {
	if w.report.Power.FTPWatts != nil {
		return fmt.Errorf("expected unknown FTP, got %d", *w.report.Power.FTPWatts)
	}
	return nil
}

func (w *featureWorld) wattsPerKgIs(expected float64) error {
	got := w.report.Power.WattsPerKg
	if got == nil || math.Abs(*got-expected) > 0.005 {
		return fmt.Errorf("expected %.2f W/kg, got %v", expected, got)
	}
	return nil
}

func (w *featureWorld) classifiedAs(category string) error {
	if w.report.Power.Category == nil || w.report.Power.Category.Category != category {
		return fmt.Errorf("expected category %q, got %v", category, w.report.Power.Category)
	}
	return nil
}

func (w *featureWorld) ageAdjustedIs(expected float64) error {
	got := w.report.Power.AgeAdjustedFTPWatts
	if got == nil || math.Abs(*got-expected) > 0.05 {
		return fmt.Errorf("expected age adjusted FTP %.1f, got %v", expected, got)
	}
	return nil
}

func (w *featureWorld) powerReady(not string) error {
	want := not == ""
	if w.report.Readiness.PowerProfile != want {
		return fmt.Errorf("expected power profile ready=%v", want)
	}
	return nil
}

func (w *featureWorld) fitnessAndFatigue(ctl, atl float64) error {
	latest := w.report.Load.Latest()
	if math.Abs(latest.CTL-ctl) > 0.005 || math.Abs(latest.ATL-atl) > 0.005 {
		return fmt.Errorf("expected ctl=%.2f atl=%.2f, got ctl=%.4f atl=%.4f", ctl, atl, latest.CTL, latest.ATL)
	}
	return nil
}

func (w *featureWorld) chartReady(not string) error {
	want := not == ""
	if w.report.Readiness.PMC != want {
		return fmt.Errorf("expected chart ready=%v with %d TSS days", want, w.report.Load.TSSDays)
	}
	return nil
}

func initializeScenario(ctx *godog.ScenarioContext) {
	w := &featureWorld{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*w = featureWorld{engine: NewEngine(nil)}
		return ctx, nil
	})

	ctx.Step(`^an athlete weighing (\d+) kg$`, w.anAthleteWeighing)
	ctx.Step(`^an athlete weighing (\d+) kg aged (\d+)$`, w.anAthleteWeighingAged)
	ctx.Step(`^a "([^"]*)" activity on "([^"]*)" with a (\d+) (second|minute) best effort of (\d+) watts$`, w.anActivityWithBestEffort)
	ctx.Step(`^a "([^"]*)" activity on "([^"]*)" with a training stress score of (\d+)$`, w.anActivityWithTSS)
	ctx.Step(`^the report is computed as of "([^"]*)"$`, w.compute)
	ctx.Step(`^the report is computed as of "([^"]*)" with a (\d+) day window$`, w.computeWithWindow)
	ctx.Step(`^the estimated FTP is (\d+) watts$`, w.ftpIs)
	ctx.Step(`^the estimated FTP is unknown$`, w.ftpUnknown)
	ctx.Step(`^the power to weight ratio is ([\d.]+) W/kg$`, w.wattsPerKgIs)
	ctx.Step(`^the athlete is classified as "([^"]*)"$`, w.classifiedAs)
	ctx.Step(`^the age adjusted FTP is ([\d.]+) watts$`, w.ageAdjustedIs)
	ctx.Step(`^the power profile is (not )?ready$`, w.powerReady)
	ctx.Step(`^fitness is ([\d.]+) and fatigue is ([\d.]+)$`, w.fitnessAndFatigue)
	ctx.Step(`^the chart is (not )?ready$`, w.chartReady)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
