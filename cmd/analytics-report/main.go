package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vitalsync/server/pkg/analytics"
	"github.com/vitalsync/server/pkg/domain/fit_parser"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/reference"
	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/export"
	"github.com/vitalsync/server/pkg/types"
)

type options struct {
	activitiesPath string
	fitDir         string
	asOf           string
	window         int
	sample         int
	seedHistory    bool
	weightKg       float64
	age            int
	sex            string
	sport          string
	tablesPath     string
	tz             string
	parquetPath    string
	csvPath        string
	periodsCSVPath string
	asJSON         bool
}

// loadActivities merges the JSON file and every *.fit file in dir. FIT
// activities get their file name as ID; files that carry no zone offset
// are read as loc.
func loadActivities(jsonPath, fitDir string, loc *time.Location) ([]types.ActivityRecord, error) {
	var activities []types.ActivityRecord

	if jsonPath != "" {
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &activities); err != nil {
			return nil, fmt.Errorf("parse %s: %w", jsonPath, err)
		}
	}

	if fitDir != "" {
		paths, err := filepath.Glob(filepath.Join(fitDir, "*.fit"))
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			a, err := fit_parser.ParseFitFile(data, loc)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", p, err)
			}
			a.ID = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			activities = append(activities, *a)
		}
	}

	return activities, nil
}

func athlete(o *options) (*types.AthleteProfile, error) {
	p := &types.AthleteProfile{}
	if o.weightKg > 0 {
		p.WeightKg = types.Float(o.weightKg)
	}
	if o.age > 0 {
		p.Age = types.Int(o.age)
	}
	switch types.Sex(o.sex) {
	case "":
	case types.SexMale, types.SexFemale:
		p.Sex = types.Sex(o.sex)
	default:
		return nil, fmt.Errorf("unknown sex %q", o.sex)
	}
	return p, nil
}

func run(o *options, out io.Writer, now time.Time) error {
	if o.activitiesPath == "" && o.fitDir == "" {
		return errors.New("provide -activities and/or -fit-dir")
	}

	loc := time.UTC
	if o.tz != "" {
		l, err := time.LoadLocation(o.tz)
		if err != nil {
			return fmt.Errorf("tz: %w", err)
		}
		loc = l
	}

	activities, err := loadActivities(o.activitiesPath, o.fitDir, loc)
	if err != nil {
		return err
	}

	tables := reference.Default()
	if o.tablesPath != "" {
		if tables, err = reference.Load(o.tablesPath); err != nil {
			return err
		}
	}

	ath, err := athlete(o)
	if err != nil {
		return err
	}

	req := analytics.Request{
		AsOf:        types.DateOf(now.In(loc)),
		WindowDays:  o.window,
		SampleEvery: o.sample,
		SeedHistory: o.seedHistory,
	}
	if o.asOf != "" {
		if req.AsOf, err = types.ParseDate(o.asOf); err != nil {
			return err
		}
	}
	if o.sport != "" {
		c, err := sport.ParseCategory(o.sport)
		if err != nil {
			return err
		}
		req.Sport = c
		req.PowerSport = c
	}

	report := analytics.NewEngine(tables).Compute(analytics.Snapshot{Activities: activities, Athlete: ath}, req)

	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, analytics.Summary(report))
	}

	if o.parquetPath != "" {
		if err := export.WriteLoadSeriesParquetFile(o.parquetPath, report.Load); err != nil {
			return err
		}
	}
	if o.csvPath != "" {
		if err := writeFile(o.csvPath, func(w io.Writer) error { return export.WriteLoadSeriesCSV(w, report.Load) }); err != nil {
			return err
		}
	}
	if o.periodsCSVPath != "" {
		var stats []period.Stat
		for _, pt := range []period.Type{period.Week, period.Month, period.Year} {
			stats = append(stats, report.Periods[pt]...)
		}
		if err := writeFile(o.periodsCSVPath, func(w io.Writer) error { return export.WritePeriodStatsCSV(w, stats) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func main() {
	var o options
	flag.StringVar(&o.activitiesPath, "activities", "", "Path to a JSON array of activity records")
	flag.StringVar(&o.fitDir, "fit-dir", "", "Directory of .fit files to include")
	flag.StringVar(&o.asOf, "as-of", "", "Report date YYYY-MM-DD (default today)")
	flag.IntVar(&o.window, "window", 0, "PMC window in days (default 90)")
	flag.IntVar(&o.sample, "sample", 0, "Emit every Nth PMC day")
	flag.BoolVar(&o.seedHistory, "seed-history", false, "Start the PMC recurrence at the first activity")
	flag.Float64Var(&o.weightKg, "weight", 0, "Body weight in kg")
	flag.IntVar(&o.age, "age", 0, "Age in years")
	flag.StringVar(&o.sex, "sex", "", "male or female")
	flag.StringVar(&o.sport, "sport", "", "Restrict periods and power profile to a sport category")
	flag.StringVar(&o.tz, "tz", "", "IANA zone for FIT files without a local timestamp (default UTC)")
	flag.StringVar(&o.tablesPath, "tables", "", "Reference tables TOML (default embedded)")
	flag.StringVar(&o.parquetPath, "parquet", "", "Write the PMC series to this Parquet file")
	flag.StringVar(&o.csvPath, "csv", "", "Write the PMC series to this CSV file")
	flag.StringVar(&o.periodsCSVPath, "periods-csv", "", "Write period stats to this CSV file")
	flag.BoolVar(&o.asJSON, "json", false, "Print the full report as JSON instead of the summary")
	flag.Parse()

	if err := run(&o, os.Stdout, time.Now()); err != nil {
		log.Fatalf("analytics-report: %v", err)
	}
}
