package main

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kwv/framefit/align"
	"github.com/paulmach/orb/geojson"
)

// fittedDataset parses the test dataset and runs the default scenarios on it
func fittedDataset(t *testing.T) (*align.Dataset, []align.ScenarioResult) {
	t.Helper()
	ds, err := align.ParseDataset([]byte(testDataset))
	if err != nil {
		t.Fatalf("ParseDataset: %v", err)
	}
	ds = ds.Filter(align.ModeOptimize)
	results, err := align.RunScenarios(context.Background(), ds, align.DefaultScenarios(), align.DefaultOptions())
	if err != nil {
		t.Fatalf("RunScenarios: %v", err)
	}
	return ds, results
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	ds, results := fittedDataset(t)

	tests := []struct {
		name       string
		handler    http.Handler
		hasResults bool
	}{
		{"with results", newHTTPServer(ds, results), true},
		{"empty", newHTTPServer(nil, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, tt.handler, "/health")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var body struct {
				Status     string `json:"status"`
				HasResults bool   `json:"hasResults"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decoding health: %v", err)
			}
			if body.Status != "ok" {
				t.Errorf("status = %q, want ok", body.Status)
			}
			if body.HasResults != tt.hasResults {
				t.Errorf("hasResults = %v, want %v", body.HasResults, tt.hasResults)
			}
		})
	}
}

func TestResultsEndpoint(t *testing.T) {
	ds, results := fittedDataset(t)
	w := get(t, newHTTPServer(ds, results), "/results.json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got []align.ScenarioResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding results: %v", err)
	}
	if len(got) != len(results) {
		t.Fatalf("got %d results, want %d", len(got), len(results))
	}
	if got[1].Scenario.Label != "Translation Only" {
		t.Errorf("second scenario = %q", got[1].Scenario.Label)
	}
	if got[1].Result.Translation.X > -2.999 || got[1].Result.Translation.X < -3.001 {
		t.Errorf("translation x = %v, want -3", got[1].Result.Translation.X)
	}
}

func TestGeoJSONEndpoint(t *testing.T) {
	ds, results := fittedDataset(t)
	w := get(t, newHTTPServer(ds, results), "/alignment.geojson")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	if err != nil {
		t.Fatalf("decoding GeoJSON: %v", err)
	}
	if len(fc.Features) == 0 {
		t.Error("expected features")
	}
}

func TestRenderedEndpoints(t *testing.T) {
	ds, results := fittedDataset(t)
	h := newHTTPServer(ds, results)

	tests := []struct {
		path        string
		contentType string
	}{
		{"/overlay.svg", "image/svg+xml"},
		{"/overlay.png", "image/png"},
		{"/residuals.png", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if strings.HasSuffix(tt.path, ".png") {
				if _, err := png.Decode(w.Body); err != nil {
					t.Errorf("invalid PNG: %v", err)
				}
			} else if !strings.Contains(w.Body.String(), "<svg") {
				t.Error("expected SVG body")
			}
		})
	}
}

func TestEndpointsWithoutData(t *testing.T) {
	h := newHTTPServer(nil, nil)
	for _, path := range []string{"/results.json", "/alignment.geojson", "/overlay.svg", "/overlay.png", "/residuals.png"} {
		t.Run(path, func(t *testing.T) {
			if w := get(t, h, path); w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", w.Code)
			}
		})
	}
}
