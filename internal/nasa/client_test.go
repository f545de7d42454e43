package nasa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
)

const temperatureBody = `{
  "type": "Feature",
  "geometry": {"type": "Point", "coordinates": [90.4125, 23.8103, 9.12]},
  "properties": {"parameter": {
    "T2M":     {"20240101": 18.5, "20240102": 19.1},
    "T2M_MAX": {"20240101": 24.0, "20240102": -999},
    "T2M_MIN": {"20240101": 13.2, "20240102": 14.0}
  }},
  "header": {"fill_value": -999},
  "parameters": {"T2M": {"units": "C"}, "T2M_MAX": {"units": "C"}, "T2M_MIN": {"units": "C"}}
}`

type upstreamRecorder struct {
	mu        sync.Mutex
	lastQuery url.Values
	hits      atomic.Int32
	status    int
	body      string
}

func (u *upstreamRecorder) handler(w http.ResponseWriter, r *http.Request) {
	u.hits.Add(1)
	u.mu.Lock()
	u.lastQuery = r.URL.Query()
	u.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if u.status != 0 {
		w.WriteHeader(u.status)
	}
	_, _ = w.Write([]byte(u.body))
}

var (
	dhaka = model.Location{Latitude: 23.8103, Longitude: 90.4125}
	jan   = model.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-02"}
)

func newTestClient(t *testing.T, rec *upstreamRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	c, err := New(nil, srv.Client(), srv.URL+"/api/temporal/daily/point")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetch_BuildsQueryAndDecodes(t *testing.T) {
	rec := &upstreamRecorder{body: temperatureBody}
	c := newTestClient(t, rec)

	got, err := c.Fetch(context.Background(), model.DataTemperature, dhaka, jan)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	q := rec.lastQuery
	for k, want := range map[string]string{
		"parameters": "T2M,T2M_MAX,T2M_MIN",
		"community":  "RE",
		"latitude":   "23.8103",
		"longitude":  "90.4125",
		"start":      "20240101",
		"end":        "20240102",
		"format":     "JSON",
	} {
		if q.Get(k) != want {
			t.Fatalf("query %s=%q want %q", k, q.Get(k), want)
		}
	}

	if got.Elevation != 9.12 || got.FillValue != -999 {
		t.Fatalf("unexpected record header: %+v", got)
	}
	if got.Parameters["T2M"]["20240102"] != 19.1 {
		t.Fatalf("T2M series not decoded: %+v", got.Parameters)
	}
	if got.Units["T2M_MIN"] != "C" {
		t.Fatalf("units not decoded: %+v", got.Units)
	}
	if d := got.Dates("T2M"); len(d) != 2 || d[0] != "20240101" {
		t.Fatalf("Dates() = %v", d)
	}
}

func TestFetch_UpstreamStatusError(t *testing.T) {
	rec := &upstreamRecorder{status: http.StatusUnprocessableEntity, body: `{"messages":["bad range"]}`}
	c := newTestClient(t, rec)

	_, err := c.Fetch(context.Background(), model.DataPrecipitation, dhaka, jan)
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusUnprocessableEntity {
		t.Fatalf("want UpstreamError 422, got %v", err)
	}
	if rec.hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", rec.hits.Load())
	}
}

func TestFetch_ShapeErrors(t *testing.T) {
	cases := map[string]string{
		"not json":          `<html>`,
		"missing parameter": `{"geometry":{"coordinates":[1,2,3]},"properties":{"parameter":{"T2M":{}}}}`,
		"missing elevation": `{"geometry":{"coordinates":[1,2]},"properties":{"parameter":{"PRECTOTCORR":{}}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, &upstreamRecorder{body: body})
			_, err := c.Fetch(context.Background(), model.DataPrecipitation, dhaka, jan)
			var se *UpstreamShapeError
			if !errors.As(err, &se) {
				t.Fatalf("want UpstreamShapeError, got %T %v", err, err)
			}
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	c, err := New(nil, client, srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Fetch(context.Background(), model.DataTemperature, dhaka, jan)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError, got %T %v", err, err)
	}
}

func TestFetch_InvalidInputs(t *testing.T) {
	c, _ := New(nil, nil, "http://127.0.0.1:1")
	if _, err := c.Fetch(context.Background(), model.DataCategory("soil"), dhaka, jan); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if _, err := c.Fetch(context.Background(), model.DataTemperature, dhaka, model.DateRange{StartDate: "x", EndDate: "y"}); err == nil {
		t.Fatal("expected error for bad dates")
	}
}

func TestParameters_AllCategoriesMapped(t *testing.T) {
	for _, c := range model.DataCategories {
		if len(Parameters(c)) == 0 {
			t.Fatalf("category %s has no parameters", c)
		}
	}
}
