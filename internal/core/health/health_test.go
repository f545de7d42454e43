package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fixedReadiness struct {
	ready bool
	parts []int32
}

func (f fixedReadiness) Readiness() (bool, []int32) { return f.ready, f.parts }

func TestReadiness_Handler(t *testing.T) {
	cases := []struct {
		name      string
		reporters map[string]ReadinessReporter
		code      int
		status    string
	}{
		{"no reporters", nil, http.StatusOK, `"status":"ready"`},
		{"nil reporter skipped", map[string]ReadinessReporter{"kafka": nil}, http.StatusOK, `"status":"ready"`},
		{"assigned", map[string]ReadinessReporter{"kafka": fixedReadiness{true, []int32{0, 1}}}, http.StatusOK, `"partitions":[0,1]`},
		{"unassigned", map[string]ReadinessReporter{"kafka": fixedReadiness{}}, http.StatusServiceUnavailable, `"status":"not_ready"`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		Readiness(tc.reporters)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != tc.code {
			t.Fatalf("%s: status=%d want %d", tc.name, rr.Code, tc.code)
		}
		if !strings.Contains(rr.Body.String(), tc.status) {
			t.Fatalf("%s: body=%s want %s", tc.name, rr.Body.String(), tc.status)
		}
	}
}
