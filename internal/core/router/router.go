// Package router holds the HTTP handlers of the risk API and the query
// parsing they share.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/keys"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/envdata"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
	"github.com/mohammed-shakir/climate-risk-cache/internal/hotness"
	"github.com/mohammed-shakir/climate-risk-cache/internal/intervention"
	"github.com/mohammed-shakir/climate-risk-cache/internal/risk"
)

// topHotCells is how many cells the stats endpoint lists.
const topHotCells = 10

// Handlers serves the /api/v1 surface. Hotness and Log are optional.
type Handlers struct {
	Risk          *risk.Service
	Data          *envdata.Service
	Interventions *intervention.Service
	Cache         *manager.Manager
	Hotness       *hotness.Tracker
	Log           *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handlers) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// AssessRisk handles GET /api/v1/risk.
func (h *Handlers) AssessRisk(w http.ResponseWriter, r *http.Request) {
	loc, err := ParseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := ParseRiskParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, cached, err := h.Risk.Assess(r.Context(), loc, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.Hotness != nil {
		h.Hotness.Inc(a.Metadata.H3Cell)
	}
	writeCached(w, r, a, cached, true)
}

func (h *Handlers) RiskIndices(w http.ResponseWriter, r *http.Request) {
	loc, err := ParseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	idx, cached, err := h.Risk.Indices(r.Context(), loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCached(w, r, idx, cached, true)
}

// EnvData handles GET /api/v1/data/{category}.
func (h *Handlers) EnvData(w http.ResponseWriter, r *http.Request) {
	cat, ok := model.ParseDataCategory(chi.URLParam(r, "category"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", envdata.ErrUnknownCategory, chi.URLParam(r, "category")))
		return
	}
	loc, err := ParseLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	dr := model.DateRange{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
	}
	if (dr.StartDate == "") != (dr.EndDate == "") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: start_date and end_date must be given together", model.ErrInvalidDateRange))
		return
	}
	ds, cached, err := h.Data.Get(r.Context(), cat, loc, dr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCached(w, r, ds, cached, false)
}

func (h *Handlers) InterventionCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, intervention.Catalog())
}

// InterventionImpact handles GET /api/v1/interventions/{type}/impact.
func (h *Handlers) InterventionImpact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "type")
	area, err := parseFloat(r, "area_m2")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p := intervention.Params{AreaM2: area}
	if q := r.URL.Query(); q.Get("lat") != "" || q.Get("lon") != "" {
		loc, err := ParseLocation(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p.Location = &loc
	}
	imp, cached, err := h.Interventions.Impact(id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCached(w, r, imp, cached, false)
}

type statsBody struct {
	manager.Stats
	HotCells []hotness.Cell `json:"hotCells,omitempty"`
}

func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	body := statsBody{Stats: h.Cache.Stats()}
	if h.Hotness != nil {
		body.HotCells = h.Hotness.Top(topHotCells)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) FlushPartition(w http.ResponseWriter, r *http.Request) {
	part := chi.URLParam(r, "partition")
	if !h.Cache.Flush(part) {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", manager.ErrCacheUnavailable, part))
		return
	}
	h.logger().InfoContext(r.Context(), "cache partition flushed", "partition", part)
	writeJSON(w, http.StatusOK, map[string]any{"flushed": []string{part}})
}

func (h *Handlers) FlushAll(w http.ResponseWriter, r *http.Request) {
	h.Cache.FlushAll()
	h.logger().InfoContext(r.Context(), "cache flushed")
	writeJSON(w, http.StatusOK, map[string]any{"flushed": h.Cache.PartitionNames()})
}

func (h *Handlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	part, key := chi.URLParam(r, "partition"), chi.URLParam(r, "key")
	if _, err := h.Cache.Partition(part); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	deleted := h.Cache.Delete(part, key)
	writeJSON(w, http.StatusOK, map[string]any{"partition": part, "key": key, "deleted": deleted})
}

// fail maps service errors to a status. Anything unrecognised is a 500 and
// is logged; the body never carries the internal error text.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidLocation),
		errors.Is(err, model.ErrInvalidDateRange),
		errors.Is(err, intervention.ErrInvalidArea):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, intervention.ErrUnknownType),
		errors.Is(err, envdata.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, err)
	default:
		h.logger().ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// ParseLocation reads the required lat and lon query parameters.
func ParseLocation(r *http.Request) (model.Location, error) {
	lat, err := parseFloat(r, "lat")
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", model.ErrInvalidLocation, err)
	}
	lon, err := parseFloat(r, "lon")
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", model.ErrInvalidLocation, err)
	}
	loc := model.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// ParseRiskParams reads the optional month (0-11) and climate_zone overrides.
func ParseRiskParams(r *http.Request) (risk.Params, error) {
	var p risk.Params
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return risk.Params{}, fmt.Errorf("month: %w", err)
		}
		p.Month = &m
	}
	if raw := strings.TrimSpace(q.Get("climate_zone")); raw != "" {
		z, ok := estimate.ParseClimateZone(raw)
		if !ok {
			return risk.Params{}, fmt.Errorf("unknown climate zone %q", raw)
		}
		p.ClimateZone = z
	}
	if err := p.Validate(); err != nil {
		return risk.Params{}, err
	}
	return p, nil
}

func parseFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse float: %w", name, err)
	}
	return f, nil
}

// writeCached writes v with an X-Cache header. With etag set the body hash is
// sent as ETag and a matching If-None-Match gets a 304.
func writeCached(w http.ResponseWriter, r *http.Request, v any, cached, etag bool) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if etag {
		tag := `"` + keys.Fingerprint(b) + `"`
		w.Header().Set("ETag", tag)
		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}
