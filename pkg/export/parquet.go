// Package export writes derived analytics views as Parquet or CSV for
// offline analysis.
package export

import (
	"fmt"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
)

type loadRow struct {
	Date string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TSS  float64 `parquet:"name=tss, type=DOUBLE"`
	CTL  float64 `parquet:"name=ctl, type=DOUBLE"`
	ATL  float64 `parquet:"name=atl, type=DOUBLE"`
	TSB  float64 `parquet:"name=tsb, type=DOUBLE"`
}

type periodRow struct {
	PeriodType           string  `parquet:"name=period_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Label                string  `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8"`
	PeriodStart          string  `parquet:"name=period_start, type=BYTE_ARRAY, convertedtype=UTF8"`
	PeriodEnd            string  `parquet:"name=period_end, type=BYTE_ARRAY, convertedtype=UTF8"`
	SportCategory        string  `parquet:"name=sport_category, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ActivityCount        int64   `parquet:"name=activity_count, type=INT64"`
	TotalDurationSeconds float64 `parquet:"name=total_duration_s, type=DOUBLE"`
	TotalDistanceMeters  float64 `parquet:"name=total_distance_m, type=DOUBLE"`
	TotalCalories        float64 `parquet:"name=total_calories, type=DOUBLE"`
}

func loadRows(series *load.Series) []loadRow {
	rows := make([]loadRow, len(series.Snapshots))
	for i, s := range series.Snapshots {
		rows[i] = loadRow{Date: s.Date.String(), TSS: s.TSS, CTL: s.CTL, ATL: s.ATL, TSB: s.TSB}
	}
	return rows
}

// periodRows emits one "all" row per period followed by one row per sport
// category in a stable order.
func periodRows(stats []period.Stat) []periodRow {
	rows := make([]periodRow, 0, len(stats))
	for i := range stats {
		s := &stats[i]
		base := periodRow{
			PeriodType:  string(s.Type),
			Label:       s.Label(),
			PeriodStart: s.Start.String(),
			PeriodEnd:   s.End.String(),
		}

		all := base
		all.SportCategory = "all"
		setTotals(&all, s.Totals)
		rows = append(rows, all)

		for _, cat := range sortedCategories(s.BySport) {
			r := base
			r.SportCategory = string(cat)
			setTotals(&r, s.BySport[cat])
			rows = append(rows, r)
		}
	}
	return rows
}

func setTotals(r *periodRow, t period.Totals) {
	r.ActivityCount = int64(t.ActivityCount)
	r.TotalDurationSeconds = t.TotalDurationSeconds
	r.TotalDistanceMeters = t.TotalDistanceMeters
	r.TotalCalories = t.TotalCalories
}

// LoadSeriesParquet encodes the chart as a snappy-compressed Parquet file.
func LoadSeriesParquet(series *load.Series) ([]byte, error) {
	return marshalParquet(new(loadRow), loadRows(series))
}

// PeriodStatsParquet encodes period stats as a snappy-compressed Parquet file.
func PeriodStatsParquet(stats []period.Stat) ([]byte, error) {
	return marshalParquet(new(periodRow), periodRows(stats))
}

func marshalParquet[T any](schema *T, rows []T) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteLoadSeriesParquetFile writes the chart straight to a local file.
func WriteLoadSeriesParquetFile(path string, series *load.Series) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(fw, new(loadRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range loadRows(series) {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
