// Package nasa is a thin client for the NASA POWER daily point API.
package nasa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

const DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

const powerDateLayout = "20060102"

// Parameters lists the POWER parameters requested for a data category.
// Elevation comes from the response geometry, so any cheap parameter works.
func Parameters(c model.DataCategory) []string {
	switch c {
	case model.DataTemperature:
		return []string{"T2M", "T2M_MAX", "T2M_MIN"}
	case model.DataPrecipitation:
		return []string{"PRECTOTCORR"}
	case model.DataVegetation:
		return []string{"GWETROOT", "GWETTOP"}
	case model.DataAirQuality:
		return []string{"AOD_55"}
	case model.DataElevation:
		return []string{"T2M"}
	default:
		return nil
	}
}

// RawRecord is the decoded POWER payload before schema mapping.
type RawRecord struct {
	Elevation  float64
	FillValue  float64
	Units      map[string]string
	Parameters map[string]map[string]float64 // parameter -> YYYYMMDD -> value
}

// Dates returns every date key present for param, sorted.
func (r RawRecord) Dates(param string) []string {
	out := make([]string, 0, len(r.Parameters[param]))
	for d := range r.Parameters[param] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

type Client struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL *url.URL
}

func New(logger *slog.Logger, client *http.Client, baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse nasa power url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{logger: logger, client: client, baseURL: u}, nil
}

type powerResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
	Header struct {
		FillValue *float64 `json:"fill_value"`
	} `json:"header"`
	Parameters map[string]struct {
		Units string `json:"units"`
	} `json:"parameters"`
	Messages []string `json:"messages"`
}

// Fetch performs exactly one GET; it never retries.
func (c *Client) Fetch(ctx context.Context, cat model.DataCategory, loc model.Location, dr model.DateRange) (RawRecord, error) {
	params := Parameters(cat)
	if len(params) == 0 {
		return RawRecord{}, fmt.Errorf("no power parameters for category %q", cat)
	}
	start, end, err := dr.Bounds()
	if err != nil {
		return RawRecord{}, fmt.Errorf("date range: %w", err)
	}

	q := url.Values{}
	q.Set("parameters", strings.Join(params, ","))
	q.Set("community", "RE")
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("start", start.Format(powerDateLayout))
	q.Set("end", end.Format(powerDateLayout))
	q.Set("format", "JSON")

	u := *c.baseURL
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return RawRecord{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.ObserveUpstreamLatency("nasa_power", "transport_error", time.Since(t0).Seconds())
		return RawRecord{}, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ObserveUpstreamLatency("nasa_power", "status_error", time.Since(t0).Seconds())
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return RawRecord{}, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var body powerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&body); err != nil {
		observability.ObserveUpstreamLatency("nasa_power", "shape_error", time.Since(t0).Seconds())
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return RawRecord{}, &TransportError{Err: err}
		}
		return RawRecord{}, &UpstreamShapeError{Reason: "decode body", Err: err}
	}
	observability.ObserveUpstreamLatency("nasa_power", "ok", time.Since(t0).Seconds())

	rec, err := toRecord(body, params)
	if err != nil {
		return RawRecord{}, err
	}
	c.logger.DebugContext(ctx, "nasa power fetch done",
		"category", string(cat),
		"days", len(rec.Dates(params[0])),
		"duration", time.Since(t0).String())
	return rec, nil
}

func toRecord(body powerResponse, params []string) (RawRecord, error) {
	if len(body.Geometry.Coordinates) < 3 {
		return RawRecord{}, &UpstreamShapeError{Reason: "geometry.coordinates missing elevation"}
	}
	rec := RawRecord{
		Elevation:  body.Geometry.Coordinates[2],
		FillValue:  -999,
		Units:      make(map[string]string, len(params)),
		Parameters: make(map[string]map[string]float64, len(params)),
	}
	if body.Header.FillValue != nil {
		rec.FillValue = *body.Header.FillValue
	}
	for _, p := range params {
		series, ok := body.Properties.Parameter[p]
		if !ok {
			return RawRecord{}, &UpstreamShapeError{Reason: "missing parameter " + p}
		}
		rec.Parameters[p] = series
		if meta, ok := body.Parameters[p]; ok {
			rec.Units[p] = meta.Units
		}
	}
	return rec, nil
}
