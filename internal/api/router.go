package api

import (
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/service"
	"github.com/alexivanou/geonames-sync/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router. A nil recorder leaves /metrics out.
func NewRouter(service service.ServiceInterface, statsCollector *stats.Collector, recorder *metrics.Recorder, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewHandler(service, logger)
	statsHandler := NewStatsHandler(statsCollector, logger)

	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if recorder != nil {
		router.Handle("/metrics", recorder.Handler()).Methods("GET")
	}

	// API v1
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	v1.HandleFunc("/{kind}/{geonameId:[0-9]+}", handler.GetEntity).Methods("GET")

	return router
}
