// pkg/api/server.go

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/monitor"
	"github.com/pvss39/hellofarm/pkg/satellite"
)

// SystemStatus is the /api/status payload.
type SystemStatus struct {
	Service    string          `json:"service"`
	Uptime     string          `json:"uptime"`
	PlotCount  int             `json:"plot_count"`
	Satellites int             `json:"satellites"`
	Providers  map[string]bool `json:"providers"`
	LastUpdate time.Time       `json:"last_update"`
}

type APIServer struct {
	store     db.Service
	engine    *monitor.Engine
	catalog   *satellite.Catalog
	selector  *satellite.Selector
	predictor *satellite.Predictor
	hub       *Hub
	router    *mux.Router
	startTime time.Time
}

func NewAPIServer(store db.Service, engine *monitor.Engine, catalog *satellite.Catalog) *APIServer {
	s := &APIServer{
		store:     store,
		engine:    engine,
		catalog:   catalog,
		selector:  satellite.NewSelector(catalog),
		predictor: satellite.NewPredictor(catalog),
		hub:       NewHub(),
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}

	engine.SetPublisher(s.hub.Publish)
	s.setupRoutes()

	return s
}

// Router exposes the handler for the lifecycle HTTP server.
func (s *APIServer) Router() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	// Add CORS middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Basic endpoints
	s.router.HandleFunc("/api/status", s.getStatus).Methods("GET")
	s.router.HandleFunc("/api/satellites", s.getSatellites).Methods("GET")
	s.router.HandleFunc("/api/schedule", s.getSchedule).Methods("GET")
	s.router.HandleFunc("/api/select-best", s.getSelectBest).Methods("GET")

	// Plot endpoints
	s.router.HandleFunc("/api/plots", s.listPlots).Methods("GET")
	s.router.HandleFunc("/api/plots", s.addPlot).Methods("POST")
	s.router.HandleFunc("/api/plots/{name}", s.getPlot).Methods("GET")
	s.router.HandleFunc("/api/plots/{name}", s.deletePlot).Methods("DELETE")
	s.router.HandleFunc("/api/plots/{name}/history", s.getHistory).Methods("GET")
	s.router.HandleFunc("/api/plots/{name}/irrigation", s.getIrrigationLog).Methods("GET")
	s.router.HandleFunc("/api/plots/{name}/irrigation", s.logIrrigation).Methods("POST")

	// Manual job triggers
	s.router.HandleFunc("/api/trigger/{job}", s.triggerJob).Methods("POST")

	// Live check feed
	s.router.HandleFunc("/api/live", s.hub.ServeWS)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) getStatus(w http.ResponseWriter, _ *http.Request) {
	plots, err := s.store.ListPlots()
	if err != nil {
		log.Printf("Error listing plots: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, SystemStatus{
		Service:    "hellofarm",
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		PlotCount:  len(plots),
		Satellites: s.catalog.Len(),
		Providers:  s.engine.Availability(),
		LastUpdate: time.Now().UTC(),
	})
}

func (s *APIServer) getSatellites(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.catalog.All())
}

func (s *APIServer) getSchedule(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 14)

	passes := s.predictor.Schedule(days, time.Now(), s.engine.Availability())
	s.writeJSON(w, passes)
}

func (s *APIServer) getSelectBest(w http.ResponseWriter, r *http.Request) {
	target := time.Now()

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		target = parsed
	}

	window := queryInt(r, "window", satellite.DefaultPassWindowDays)

	selection, err := s.selector.BestSatellite(target, window, s.engine.Availability())
	if err != nil {
		log.Printf("Selection failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, selection)
}

func (s *APIServer) listPlots(w http.ResponseWriter, _ *http.Request) {
	plots, err := s.store.ListPlots()
	if err != nil {
		log.Printf("Error listing plots: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, plots)
}

func (s *APIServer) addPlot(w http.ResponseWriter, r *http.Request) {
	var plot db.Plot
	if err := json.NewDecoder(r.Body).Decode(&plot); err != nil {
		http.Error(w, "Invalid plot payload", http.StatusBadRequest)
		return
	}

	if plot.NameEnglish == "" {
		http.Error(w, "name_english is required", http.StatusBadRequest)
		return
	}

	if plot.IrrigationFrequencyDays <= 0 {
		http.Error(w, "irrigation_frequency_days must be positive", http.StatusBadRequest)
		return
	}

	id, err := s.store.AddPlot(&plot)
	if err != nil {
		if errors.Is(err, db.ErrPlotExists) {
			http.Error(w, "Plot already exists", http.StatusConflict)
			return
		}

		log.Printf("Error adding plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	stored, err := s.store.GetPlotByID(id)
	if err != nil {
		log.Printf("Error reading back plot %d: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(stored); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *APIServer) getPlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	plot, err := s.store.GetPlot(vars["name"])
	if err != nil {
		if errors.Is(err, db.ErrPlotNotFound) {
			http.Error(w, "Plot not found", http.StatusNotFound)
			return
		}

		log.Printf("Error getting plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, plot)
}

func (s *APIServer) deletePlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	deleted, err := s.store.DeletePlot(vars["name"])
	if err != nil {
		log.Printf("Error deleting plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	if !deleted {
		http.Error(w, "Plot not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, map[string]string{"status": "deleted", "plot": vars["name"]})
}

func (s *APIServer) getHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	plot, err := s.store.GetPlot(vars["name"])
	if err != nil {
		if errors.Is(err, db.ErrPlotNotFound) {
			http.Error(w, "Plot not found", http.StatusNotFound)
			return
		}

		log.Printf("Error getting plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	days := queryInt(r, "days", 30)

	history, err := s.store.GetSatelliteHistory(plot.ID, days, time.Now())
	if err != nil {
		log.Printf("Error getting history: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, history)
}

func (s *APIServer) getIrrigationLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	plot, err := s.store.GetPlot(vars["name"])
	if err != nil {
		if errors.Is(err, db.ErrPlotNotFound) {
			http.Error(w, "Plot not found", http.StatusNotFound)
			return
		}

		log.Printf("Error getting plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	days := queryInt(r, "days", 90)

	entries, err := s.store.GetIrrigationLog(plot.ID, days, time.Now())
	if err != nil {
		log.Printf("Error getting irrigation log: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, entries)
}

type irrigationRequest struct {
	Date  string   `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	NDVI  *float64 `json:"ndvi,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

func (s *APIServer) logIrrigation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	plot, err := s.store.GetPlot(vars["name"])
	if err != nil {
		if errors.Is(err, db.ErrPlotNotFound) {
			http.Error(w, "Plot not found", http.StatusNotFound)
			return
		}

		log.Printf("Error getting plot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	var req irrigationRequest
	if r.Body != nil {
		// An empty body means "irrigated today".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	date := time.Now().UTC()

	if req.Date != "" {
		parsed, perr := time.Parse("2006-01-02", req.Date)
		if perr != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		date = parsed
	}

	if err := s.store.LogIrrigation(plot.ID, date, req.NDVI, req.Notes); err != nil {
		log.Printf("Error logging irrigation: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, map[string]string{
		"status": "logged",
		"plot":   plot.NameEnglish,
		"date":   date.Format("2006-01-02"),
	})
}

func (s *APIServer) triggerJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job := vars["job"]

	now := time.Now()

	switch job {
	case "satellite":
		results := s.engine.CheckAll(r.Context(), now)
		s.writeJSON(w, map[string]any{"status": "triggered", "job": "satellite_check", "results": results})
	case "morning":
		if err := s.engine.MorningUpdate(r.Context(), now); err != nil {
			log.Printf("Morning update failed: %v", err)
			http.Error(w, "Job failed", http.StatusInternalServerError)

			return
		}

		s.writeJSON(w, map[string]string{"status": "triggered", "job": "morning_update"})
	case "weekly":
		if err := s.engine.WeeklySummary(r.Context(), now); err != nil {
			log.Printf("Weekly summary failed: %v", err)
			http.Error(w, "Job failed", http.StatusInternalServerError)

			return
		}

		s.writeJSON(w, map[string]string{"status": "triggered", "job": "weekly_summary"})
	default:
		http.Error(w, "Unknown job", http.StatusNotFound)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}

	return n
}
