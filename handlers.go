package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/framefit/align"
)

// newHTTPServer creates an HTTP handler serving the results of a fit
func newHTTPServer(ds *align.Dataset, results []align.ScenarioResult) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status     string    `json:"status"`
			Timestamp  time.Time `json:"timestamp"`
			HasResults bool      `json:"hasResults"`
		}{
			Status:     "ok",
			Timestamp:  time.Now(),
			HasResults: len(results) > 0,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	mux.HandleFunc("/results.json", func(w http.ResponseWriter, r *http.Request) {
		if len(results) == 0 {
			http.Error(w, "No results available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(results); err != nil {
			log.Printf("Error encoding results: %v", err)
		}
	})

	mux.HandleFunc("/alignment.geojson", func(w http.ResponseWriter, r *http.Request) {
		if ds == nil {
			http.Error(w, "No dataset loaded", http.StatusServiceUnavailable)
			return
		}
		data, err := align.BuildFeatureCollection(ds, results).MarshalJSON()
		if err != nil {
			http.Error(w, "Failed to build GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write(data)
	})

	mux.HandleFunc("/overlay.svg", func(w http.ResponseWriter, r *http.Request) {
		if ds == nil {
			http.Error(w, "No dataset loaded", http.StatusServiceUnavailable)
			return
		}
		serveRendered(w, "image/svg+xml", align.NewOverlayRenderer(ds, results).RenderToSVG)
	})

	mux.HandleFunc("/overlay.png", func(w http.ResponseWriter, r *http.Request) {
		if ds == nil {
			http.Error(w, "No dataset loaded", http.StatusServiceUnavailable)
			return
		}
		serveRendered(w, "image/png", align.NewOverlayRenderer(ds, results).RenderToPNG)
	})

	mux.HandleFunc("/residuals.png", func(w http.ResponseWriter, r *http.Request) {
		if len(results) == 0 {
			http.Error(w, "No results available", http.StatusServiceUnavailable)
			return
		}
		serveRendered(w, "image/png", func(out io.Writer) error {
			return align.WriteResidualChart(out, results)
		})
	})

	return mux
}

// serveRendered renders into a buffer first so a failed render can still
// produce an error status.
func serveRendered(w http.ResponseWriter, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Printf("Error rendering %s: %v", contentType, err)
		http.Error(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}
