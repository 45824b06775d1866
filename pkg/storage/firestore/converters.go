package firestore

import (
	"sort"
	"strconv"
	"time"

	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/domain/reference"
	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/types"
)

// garminTimeLayout is the wall-clock layout Garmin Connect uses for
// startTimeLocal and startTimeGMT.
const garminTimeLayout = "2006-01-02 15:04:05"

// maxAvgPowerKeys maps canonical durations onto Garmin's best-effort fields.
var maxAvgPowerKeys = map[types.EffortDuration]string{
	types.Effort5s:  "maxAvgPower_5",
	types.Effort1m:  "maxAvgPower_60",
	types.Effort5m:  "maxAvgPower_300",
	types.Effort20m: "maxAvgPower_1200",
}

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get a number from map. Firestore hands back int64 for
// whole numbers written by other clients.
func getFloat(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func getFloatPtr(m map[string]interface{}, key string) *float64 {
	if f, ok := getFloat(m, key); ok {
		return &f
	}
	return nil
}

func getInt(m map[string]interface{}, key string) int {
	f, _ := getFloat(m, key)
	return int(f)
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func getDate(m map[string]interface{}, key string) types.Date {
	d, _ := types.ParseDate(getString(m, key))
	return d
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

func setFloat(m map[string]interface{}, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

// --- Activity Converters ---

func ActivityToFirestore(a *types.ActivityRecord) map[string]interface{} {
	m := map[string]interface{}{
		"activityId":     a.ID,
		"activityType":   map[string]interface{}{"typeKey": a.SportTypeRaw},
		"startTimeLocal": a.StartTime.Format(garminTimeLayout),
		"startTimeGMT":   a.StartTime.UTC().Format(garminTimeLayout),
	}
	setFloat(m, "duration", a.DurationSeconds)
	setFloat(m, "distance", a.DistanceMeters)
	setFloat(m, "calories", a.Calories)
	setFloat(m, "trainingStressScore", a.TrainingStressScore)
	setFloat(m, "avgPower", a.AveragePower)
	setFloat(m, "maxPower", a.MaxPower)
	setFloat(m, "averageHR", a.AverageHeartRate)
	setFloat(m, "maxHR", a.MaxHeartRate)

	for d, key := range maxAvgPowerKeys {
		if w, ok := a.BestEffortPower[d]; ok {
			m[key] = w
		}
	}
	return m
}

// FirestoreToActivity reads a Garmin-shaped activity document. A
// startTimeLocal stored as a Firestore timestamp is an instant, not a wall
// clock, so it is moved into loc (UTC when nil) before dating.
func FirestoreToActivity(m map[string]interface{}, loc *time.Location) *types.ActivityRecord {
	a := &types.ActivityRecord{
		ID:                  getString(m, "activityId"),
		DurationSeconds:     getFloatPtr(m, "duration"),
		DistanceMeters:      getFloatPtr(m, "distance"),
		Calories:            getFloatPtr(m, "calories"),
		TrainingStressScore: getFloatPtr(m, "trainingStressScore"),
		AveragePower:        getFloatPtr(m, "avgPower"),
		MaxPower:            getFloatPtr(m, "maxPower"),
		AverageHeartRate:    getFloatPtr(m, "averageHR"),
		MaxHeartRate:        getFloatPtr(m, "maxHR"),
	}

	// Garmin stores numeric activity IDs.
	if a.ID == "" {
		if id, ok := getFloat(m, "activityId"); ok {
			a.ID = strconv.FormatInt(int64(id), 10)
		}
	}

	if at := getMap(m, "activityType"); at != nil {
		a.SportTypeRaw = getString(at, "typeKey")
	}

	// startTimeLocal is a wall-clock string; parsing it without a zone keeps
	// the athlete's local calendar date.
	switch v := m["startTimeLocal"].(type) {
	case string:
		if t, err := time.Parse(garminTimeLayout, v); err == nil {
			a.StartTime = t
		}
	case time.Time:
		if loc == nil {
			loc = time.UTC
		}
		a.StartTime = v.In(loc)
	}

	for d, key := range maxAvgPowerKeys {
		if w, ok := getFloat(m, key); ok && w > 0 {
			if a.BestEffortPower == nil {
				a.BestEffortPower = make(map[types.EffortDuration]float64, len(maxAvgPowerKeys))
			}
			a.BestEffortPower[d] = w
		}
	}
	return a
}

// --- Settings Converters ---

func SettingsToFirestore(s *types.UserSettings) map[string]interface{} {
	athlete := map[string]interface{}{}
	setFloat(athlete, "weightKg", s.Athlete.WeightKg)
	if s.Athlete.Age != nil {
		athlete["age"] = int64(*s.Athlete.Age)
	}
	if s.Athlete.Sex != "" {
		athlete["sex"] = string(s.Athlete.Sex)
	}

	m := map[string]interface{}{
		"athlete": athlete,
	}
	if len(s.FCMTokens) > 0 {
		m["fcmTokens"] = s.FCMTokens
	}
	return m
}

func FirestoreToSettings(m map[string]interface{}) *types.UserSettings {
	s := &types.UserSettings{}
	if athlete := getMap(m, "athlete"); athlete != nil {
		s.Athlete.WeightKg = getFloatPtr(athlete, "weightKg")
		if _, ok := getFloat(athlete, "age"); ok {
			age := getInt(athlete, "age")
			s.Athlete.Age = &age
		}
		s.Athlete.Sex = types.Sex(getString(athlete, "sex"))
	}
	for _, v := range getSlice(m, "fcmTokens") {
		if t, ok := v.(string); ok && t != "" {
			s.FCMTokens = append(s.FCMTokens, t)
		}
	}
	return s
}

// --- Load Series Converters ---

func LoadSeriesToFirestore(s *load.Series) map[string]interface{} {
	snaps := make([]map[string]interface{}, len(s.Snapshots))
	for i, snap := range s.Snapshots {
		snaps[i] = map[string]interface{}{
			"date": snap.Date.String(),
			"tss":  snap.TSS,
			"ctl":  snap.CTL,
			"atl":  snap.ATL,
			"tsb":  snap.TSB,
		}
	}
	return map[string]interface{}{
		"asOf":       s.AsOf.String(),
		"windowDays": int64(s.WindowDays),
		"tssDays":    int64(s.TSSDays),
		"sufficient": s.Sufficient(),
		"snapshots":  snaps,
		"updatedAt":  time.Now().UTC(),
	}
}

func FirestoreToLoadSeries(m map[string]interface{}) *load.Series {
	s := &load.Series{
		AsOf:       getDate(m, "asOf"),
		WindowDays: getInt(m, "windowDays"),
		TSSDays:    getInt(m, "tssDays"),
	}
	raw := getSlice(m, "snapshots")
	s.Snapshots = make([]load.Snapshot, 0, len(raw))
	for _, v := range raw {
		snap, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		tss, _ := getFloat(snap, "tss")
		ctl, _ := getFloat(snap, "ctl")
		atl, _ := getFloat(snap, "atl")
		tsb, _ := getFloat(snap, "tsb")
		s.Snapshots = append(s.Snapshots, load.Snapshot{
			Date: getDate(snap, "date"),
			TSS:  tss,
			CTL:  ctl,
			ATL:  atl,
			TSB:  tsb,
		})
	}
	return s
}

// --- Period Stat Converters ---

func totalsToFirestore(t period.Totals) map[string]interface{} {
	return map[string]interface{}{
		"activityCount":        int64(t.ActivityCount),
		"totalDurationSeconds": t.TotalDurationSeconds,
		"totalDistanceMeters":  t.TotalDistanceMeters,
		"totalCalories":        t.TotalCalories,
	}
}

func firestoreToTotals(m map[string]interface{}) period.Totals {
	t := period.Totals{ActivityCount: getInt(m, "activityCount")}
	t.TotalDurationSeconds, _ = getFloat(m, "totalDurationSeconds")
	t.TotalDistanceMeters, _ = getFloat(m, "totalDistanceMeters")
	t.TotalCalories, _ = getFloat(m, "totalCalories")
	return t
}

func PeriodStatToFirestore(s *period.Stat) map[string]interface{} {
	m := totalsToFirestore(s.Totals)
	m["periodType"] = string(s.Type)
	m["label"] = s.Label()
	m["periodStart"] = s.Start.String()
	m["periodEnd"] = s.End.String()

	bySport := make(map[string]interface{}, len(s.BySport))
	for cat, t := range s.BySport {
		bySport[string(cat)] = totalsToFirestore(t)
	}
	m["bySportCategory"] = bySport
	return m
}

func FirestoreToPeriodStat(m map[string]interface{}) *period.Stat {
	s := &period.Stat{
		Type:    period.Type(getString(m, "periodType")),
		Start:   getDate(m, "periodStart"),
		End:     getDate(m, "periodEnd"),
		Totals:  firestoreToTotals(m),
		BySport: make(map[sport.Category]period.Totals),
	}
	for cat, v := range getMap(m, "bySportCategory") {
		if t, ok := v.(map[string]interface{}); ok {
			s.BySport[sport.Category(cat)] = firestoreToTotals(t)
		}
	}
	return s
}

// --- Power Profile Converters ---

func durationMapToFirestore(values map[types.EffortDuration]float64) map[string]interface{} {
	m := make(map[string]interface{}, len(values))
	for d, v := range values {
		m[d.String()] = v
	}
	return m
}

func firestoreToDurationMap(m map[string]interface{}) map[types.EffortDuration]float64 {
	out := make(map[types.EffortDuration]float64, len(m))
	for k := range m {
		d, err := types.ParseEffortDuration(k)
		if err != nil {
			continue
		}
		if v, ok := getFloat(m, k); ok {
			out[d] = v
		}
	}
	return out
}

func PowerProfileToFirestore(p *power.Profile) map[string]interface{} {
	m := map[string]interface{}{
		"bestEfforts":           durationMapToFirestore(p.BestEfforts),
		"perDurationPercentile": durationMapToFirestore(p.PerDurationPercentile),
		"sex":                   string(p.Sex),
		"tablesVersion":         p.TablesVersion,
		"updatedAt":             time.Now().UTC(),
	}
	if p.FTPWatts != nil {
		m["ftpWatts"] = int64(*p.FTPWatts)
	}
	setFloat(m, "wattsPerKg", p.WattsPerKg)
	setFloat(m, "ageAdjustedFtpWatts", p.AgeAdjustedFTPWatts)
	if p.Category != nil {
		m["category"] = map[string]interface{}{
			"category":      p.Category.Category,
			"minWkg":        p.Category.MinWkg,
			"maxWkg":        p.Category.MaxWkg,
			"percentileMin": p.Category.PercentileMin,
			"percentileMax": p.Category.PercentileMax,
		}
	}
	return m
}

func FirestoreToPowerProfile(m map[string]interface{}) *power.Profile {
	p := &power.Profile{
		BestEfforts:           firestoreToDurationMap(getMap(m, "bestEfforts")),
		PerDurationPercentile: firestoreToDurationMap(getMap(m, "perDurationPercentile")),
		Sex:                   types.Sex(getString(m, "sex")),
		TablesVersion:         getString(m, "tablesVersion"),
		WattsPerKg:            getFloatPtr(m, "wattsPerKg"),
		AgeAdjustedFTPWatts:   getFloatPtr(m, "ageAdjustedFtpWatts"),
	}
	if _, ok := getFloat(m, "ftpWatts"); ok {
		ftp := getInt(m, "ftpWatts")
		p.FTPWatts = &ftp
	}
	if c := getMap(m, "category"); c != nil {
		band := reference.Band{Category: getString(c, "category")}
		band.MinWkg, _ = getFloat(c, "minWkg")
		band.MaxWkg, _ = getFloat(c, "maxWkg")
		band.PercentileMin, _ = getFloat(c, "percentileMin")
		band.PercentileMax, _ = getFloat(c, "percentileMax")
		p.Category = &band
	}
	return p
}

// --- Execution Record ---

func ExecutionToFirestore(e *types.ExecutionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": e.ExecutionID,
		"service":      e.Service,
		"status":       string(e.Status),
		"user_id":      e.UserID,
		"trigger_type": e.TriggerType,
		"start_time":   e.StartTime,
	}
	if !e.EndTime.IsZero() {
		m["end_time"] = e.EndTime
	}
	if e.Error != "" {
		m["error_message"] = e.Error
	}
	if e.Outputs != "" {
		m["outputs_json"] = e.Outputs
	}
	return m
}

func FirestoreToExecution(m map[string]interface{}) *types.ExecutionRecord {
	return &types.ExecutionRecord{
		ExecutionID: getString(m, "execution_id"),
		Service:     getString(m, "service"),
		Status:      types.ExecutionStatus(getString(m, "status")),
		UserID:      getString(m, "user_id"),
		TriggerType: getString(m, "trigger_type"),
		StartTime:   getTime(m, "start_time"),
		EndTime:     getTime(m, "end_time"),
		Error:       getString(m, "error_message"),
		Outputs:     getString(m, "outputs_json"),
	}
}

// SortActivities orders activities by start time so callers get a stable
// snapshot regardless of document order.
func SortActivities(activities []types.ActivityRecord) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].StartTime.Before(activities[j].StartTime)
	})
}
