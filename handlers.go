package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/kwv/tudogrid/grid"
)

// newHTTPServer creates an HTTP server with all endpoints. Every view is
// derived from the mapper on request; nothing is cached between requests.
// /ws and /ticks.png are only mounted when hub and history are given.
func newHTTPServer(mapper *grid.Mapper, hub *grid.Hub, history *grid.TickHistory, config *grid.Config) http.Handler {
	mux := http.NewServeMux()
	tracker := mapper.Tracker()

	robotPose := func() *grid.Pose {
		in := tracker.Snapshot()
		if !in.HasPose {
			return nil
		}
		p := in.Pose
		return &p
	}

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		in := tracker.Snapshot()
		status := struct {
			Status         string         `json:"status"`
			Timestamp      time.Time      `json:"timestamp"`
			RunID          string         `json:"runId"`
			Ticks          uint64         `json:"ticks"`
			HasPose        bool           `json:"hasPose"`
			HasReading     bool           `json:"hasReading"`
			PoseVersion    uint64         `json:"poseVersion"`
			ReadingVersion uint64         `json:"readingVersion"`
			LastTick       grid.TickStats `json:"lastTick"`
		}{
			Status:         "ok",
			Timestamp:      time.Now(),
			RunID:          mapper.RunID(),
			Ticks:          mapper.Ticks(),
			HasPose:        in.HasPose,
			HasReading:     in.HasReading,
			PoseVersion:    in.PoseVersion,
			ReadingVersion: in.ReadingVersion,
			LastTick:       mapper.LastTick(),
		}
		writeJSON(w, status, "health status")
	})

	// Raster map; ?renderer=vector uses the canvas rasterizer instead
	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		var err error

		if r.URL.Query().Get("renderer") == "vector" {
			palette, perr := config.Render.Palette()
			if perr != nil {
				http.Error(w, perr.Error(), http.StatusInternalServerError)
				return
			}
			renderer := grid.NewVectorRenderer(palette)
			renderer.Robot = robotPose()
			mapper.View(func(om *grid.OccupancyMap) {
				err = renderer.RenderToPNG(&buf, om)
			})
		} else {
			renderer, rerr := grid.NewRasterRendererFromConfig(config.Render)
			if rerr != nil {
				http.Error(w, rerr.Error(), http.StatusInternalServerError)
				return
			}
			renderer.Robot = robotPose()
			mapper.View(func(om *grid.OccupancyMap) {
				err = png.Encode(&buf, renderer.Render(om))
			})
		}
		if err != nil {
			log.Printf("Error encoding map PNG: %v", err)
			http.Error(w, "Failed to render map", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Printf("Error writing map PNG: %v", err)
		}
	})

	// Vector map
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		palette, err := config.Render.Palette()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		renderer := grid.NewVectorRenderer(palette)
		renderer.Robot = robotPose()

		var buf bytes.Buffer
		mapper.View(func(om *grid.OccupancyMap) {
			err = renderer.RenderToSVG(&buf, om)
		})
		if err != nil {
			log.Printf("Error rendering SVG: %v", err)
			http.Error(w, "Failed to render map", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Printf("Error writing SVG: %v", err)
		}
	})

	// Classified cells as GeoJSON
	mux.HandleFunc("/map.geojson", func(w http.ResponseWriter, r *http.Request) {
		var data []byte
		var err error
		mapper.View(func(om *grid.OccupancyMap) {
			data, err = om.ToFeatureCollection().MarshalJSON()
		})
		if err != nil {
			log.Printf("Error encoding GeoJSON: %v", err)
			http.Error(w, "Failed to encode map", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON: %v", err)
		}
	})

	// Full point list
	mux.HandleFunc("/snapshot.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(w, mapper.Snapshot(), "snapshot")
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, mapper.Stats(), "stats")
	})

	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		log.Printf("[HTTP] /reset request from %s", r.RemoteAddr)
		mapper.Reset()
		writeJSON(w, map[string]string{"status": "reset", "runId": mapper.RunID()}, "reset status")
	})

	if hub != nil {
		mux.Handle("/ws", hub)
	}

	if history != nil {
		mux.HandleFunc("/ticks.png", func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			if err := history.WritePNG(&buf); err != nil {
				if errors.Is(err, grid.ErrNoTicks) {
					http.Error(w, err.Error(), http.StatusServiceUnavailable)
					return
				}
				log.Printf("Error rendering tick plot: %v", err)
				http.Error(w, "Failed to render tick plot", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Cache-Control", "no-cache")
			if _, err := w.Write(buf.Bytes()); err != nil {
				log.Printf("Error writing tick plot: %v", err)
			}
		})
	}

	return mux
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, v interface{}, what string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding %s: %v", what, err)
	}
}
