package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/vitalsync/server/pkg/domain/fit_parser"
	"github.com/vitalsync/server/pkg/domain/sport"
)

type FieldStats struct {
	Name  string
	Count int
	Min   float64
	Max   float64
	Sum   float64
}

func NewFieldStats(name string) *FieldStats {
	return &FieldStats{
		Name: name,
		Min:  math.MaxFloat64,
		Max:  -math.MaxFloat64,
	}
}

func (fs *FieldStats) Update(v float64) {
	fs.Count++
	fs.Sum += v
	fs.Min = math.Min(fs.Min, v)
	fs.Max = math.Max(fs.Max, v)
}

func (fs *FieldStats) Avg() float64 {
	if fs.Count == 0 {
		return 0
	}
	return fs.Sum / float64(fs.Count)
}

// inspection is the raw view of the file, before any parsing rules apply.
type inspection struct {
	messages map[typedef.MesgNum]int
	sessions []*mesgdef.Session
	records  int
	power    *FieldStats
	hr       *FieldStats
}

func inspect(fit *proto.FIT) *inspection {
	in := &inspection{
		messages: make(map[typedef.MesgNum]int),
		power:    NewFieldStats("power"),
		hr:       NewFieldStats("heart_rate"),
	}
	for i := range fit.Messages {
		msg := &fit.Messages[i]
		in.messages[msg.Num]++
		switch msg.Num {
		case typedef.MesgNumSession:
			in.sessions = append(in.sessions, mesgdef.NewSession(msg))
		case typedef.MesgNumRecord:
			in.records++
			rec := mesgdef.NewRecord(msg)
			if rec.Power != math.MaxUint16 {
				in.power.Update(float64(rec.Power))
			}
			if rec.HeartRate != math.MaxUint8 {
				in.hr.Update(float64(rec.HeartRate))
			}
		}
	}
	return in
}

func (in *inspection) print(w io.Writer) {
	fmt.Fprintf(w, "=== MESSAGES ===\n")
	nums := make([]typedef.MesgNum, 0, len(in.messages))
	for n := range in.messages {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	mw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, n := range nums {
		fmt.Fprintf(mw, "%s\t%d\n", n.String(), in.messages[n])
	}
	mw.Flush()

	fmt.Fprintf(w, "\n=== SESSIONS: %d ===\n", len(in.sessions))
	if len(in.sessions) > 0 {
		sw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(sw, "#\tStart Time\tDuration\tDistance\tSport\tSubSport\tLabel\tCategory")
		for i, s := range in.sessions {
			label := fit_parser.SportLabel(s.Sport, s.SubSport)
			fmt.Fprintf(sw, "%d\t%s\t%.0fs\t%.2f km\t%s\t%s\t%s\t%s\n",
				i+1, s.StartTime.UTC().Format("2006-01-02 15:04:05"),
				float64(s.TotalElapsedTime)/1000, float64(s.TotalDistance)/100/1000,
				s.Sport.String(), s.SubSport.String(), label, sport.Classify(label))
		}
		sw.Flush()
	}

	fmt.Fprintf(w, "\n=== RECORDS: %d ===\n", in.records)
	rw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(rw, "Field\tCount\tCoverage\tMin\tMax\tAvg")
	for _, s := range []*FieldStats{in.power, in.hr} {
		if s.Count == 0 {
			continue
		}
		coverage := float64(s.Count) / float64(in.records) * 100
		fmt.Fprintf(rw, "%s\t%d\t%.1f%%\t%.0f\t%.0f\t%.1f\n", s.Name, s.Count, coverage, s.Min, s.Max, s.Avg())
	}
	rw.Flush()
}

func main() {
	inputPath := flag.String("input", "", "Path to FIT file")
	raw := flag.Bool("raw", false, "Also print message counts, sessions and record field statistics")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Please provide input file with -input")
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	if *raw {
		fit, err := decoder.New(bytes.NewReader(data)).Decode()
		if err != nil {
			fmt.Printf("Failed to decode FIT file: %v\n", err)
			os.Exit(1)
		}
		inspect(fit).print(os.Stdout)
		fmt.Println()
	}

	activity, err := fit_parser.ParseFitFile(data, nil)
	if err != nil {
		fmt.Printf("Failed to parse FIT file: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(activity); err != nil {
		fmt.Printf("Failed to encode activity: %v\n", err)
		os.Exit(1)
	}
}
