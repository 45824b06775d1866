package apianalytics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	shared "github.com/vitalsync/server/pkg"
	"github.com/vitalsync/server/pkg/analytics"
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/domain/sport"
	httputil "github.com/vitalsync/server/pkg/infrastructure/http"
	"github.com/vitalsync/server/pkg/types"
)

// maxPeriodCount keeps a single request to roughly ten years of weeks.
const maxPeriodCount = 520

type pmcResponse struct {
	*load.Series
	Ready bool `json:"ready"`
	// Source is "stored" when the last recompute's series was served as is.
	Source string `json:"source"`
}

type periodView struct {
	Label string `json:"label"`
	period.Stat
}

type periodsResponse struct {
	PeriodType period.Type  `json:"periodType"`
	Sport      string       `json:"sport,omitempty"`
	Periods    []periodView `json:"periods"`
}

type yoyResponse struct {
	period.Comparison
	CurrentLabel  string `json:"currentLabel"`
	PreviousLabel string `json:"previousLabel,omitempty"`
	Ready         bool   `json:"ready"`
}

type powerResponse struct {
	*power.Profile
	Ready bool `json:"ready"`
}

type reportResponse struct {
	*analytics.Report
	Summary string `json:"summary"`
}

func positiveInt(r *http.Request, name string, limit int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || (limit > 0 && n > limit) {
		return 0, httputil.BadRequest(name+" must be a positive integer", err)
	}
	return n, nil
}

func sportParam(r *http.Request) (sport.Category, error) {
	raw := r.URL.Query().Get("sport")
	if raw == "" {
		return "", nil
	}
	c, err := sport.ParseCategory(raw)
	if err != nil {
		return "", httputil.BadRequest(err.Error(), err)
	}
	return c, nil
}

func periodTypeParam(r *http.Request) (period.Type, error) {
	pt, err := period.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		return "", httputil.BadRequest(err.Error(), err)
	}
	return pt, nil
}

// request builds the engine request shared by every endpoint.
func (s *Server) request(r *http.Request) (analytics.Request, error) {
	req := analytics.Request{AsOf: s.today(), WindowDays: s.defaultWindow()}

	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := types.ParseDate(raw)
		if err != nil {
			return req, httputil.BadRequest("as_of must be YYYY-MM-DD", err)
		}
		req.AsOf = d
	}

	window, err := positiveInt(r, "window", load.MaxWindowDays)
	if err != nil {
		return req, err
	}
	if window > 0 {
		req.WindowDays = window
	}

	if req.SampleEvery, err = positiveInt(r, "sample", load.MaxWindowDays); err != nil {
		return req, err
	}
	req.SeedHistory = r.URL.Query().Get("seed") == "history"

	c, err := sportParam(r)
	if err != nil {
		return req, err
	}
	req.Sport = c
	req.PowerSport = c
	return req, nil
}

func (s *Server) getPMC(r *http.Request, userID string) (interface{}, error) {
	req, err := s.request(r)
	if err != nil {
		return nil, err
	}
	if !hasLoadOverrides(r) {
		if series := s.storedSeries(r.Context(), userID, req); series != nil {
			return pmcResponse{Series: series, Ready: series.Sufficient(), Source: "stored"}, nil
		}
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	var series *load.Series
	s.metrics.observeCompute("pmc", func() { series = s.engine.LoadSeries(snap, req) })
	return pmcResponse{Series: series, Ready: series.Sufficient(), Source: "computed"}, nil
}

func hasLoadOverrides(r *http.Request) bool {
	q := r.URL.Query()
	for _, k := range []string{"as_of", "window", "sample", "seed"} {
		if q.Has(k) {
			return true
		}
	}
	return false
}

// storedSeries returns the series persisted by the last recompute when it
// matches the default request for today, nil otherwise.
func (s *Server) storedSeries(ctx context.Context, userID string, req analytics.Request) *load.Series {
	series, err := s.svc.DB.GetLoadSeries(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Failed to read stored load series", "error", err, "user_id", userID)
		}
		return nil
	}
	window := req.WindowDays
	if window <= 0 {
		window = load.DefaultWindowDays
	}
	if series.AsOf != req.AsOf || series.WindowDays != window {
		return nil
	}
	return series
}

func (s *Server) periods(r *http.Request, userID string) (period.Type, analytics.Request, []period.Stat, error) {
	pt, err := periodTypeParam(r)
	if err != nil {
		return "", analytics.Request{}, nil, err
	}
	req, err := s.request(r)
	if err != nil {
		return "", req, nil, err
	}
	count, err := positiveInt(r, "count", maxPeriodCount)
	if err != nil {
		return "", req, nil, err
	}
	if count > 0 {
		req.PeriodCounts = map[period.Type]int{pt: count}
	}

	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		return "", req, nil, err
	}

	var stats []period.Stat
	s.metrics.observeCompute("periods_"+string(pt), func() { stats = s.engine.Periods(snap, req, pt) })
	return pt, req, stats, nil
}

func (s *Server) getPeriods(r *http.Request, userID string) (interface{}, error) {
	pt, req, stats, err := s.periods(r, userID)
	if err != nil {
		return nil, err
	}
	views := make([]periodView, len(stats))
	for i := range stats {
		views[i] = periodView{Label: stats[i].Label(), Stat: stats[i]}
	}
	return periodsResponse{PeriodType: pt, Sport: string(req.Sport), Periods: views}, nil
}

func (s *Server) getYearOverYear(r *http.Request, userID string) (interface{}, error) {
	_, _, stats, err := s.periods(r, userID)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, httputil.NotFound("No periods in range")
	}

	cmp := period.Compare(stats[len(stats)-1], stats)
	resp := yoyResponse{Comparison: cmp, CurrentLabel: cmp.Current.Label(), Ready: cmp.Available()}
	if cmp.Previous != nil {
		resp.PreviousLabel = cmp.Previous.Label()
	}
	return resp, nil
}

func (s *Server) getPowerProfile(r *http.Request, userID string) (interface{}, error) {
	req, err := s.request(r)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	var profile *power.Profile
	s.metrics.observeCompute("power_profile", func() { profile = s.engine.PowerProfile(snap, req) })
	return powerResponse{Profile: profile, Ready: profile.FTPWatts != nil}, nil
}

func (s *Server) getReport(r *http.Request, userID string) (interface{}, error) {
	req, err := s.request(r)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		return nil, err
	}

	var report *analytics.Report
	s.metrics.observeCompute("report", func() { report = s.engine.Compute(snap, req) })
	return reportResponse{Report: report, Summary: analytics.Summary(report)}, nil
}
