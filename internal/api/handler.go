package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alexivanou/geonames-sync/internal/model"
	"github.com/alexivanou/geonames-sync/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	service service.ServiceInterface
	logger  *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(service service.ServiceInterface, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetEntity handles GET /api/v1/{kind}/{geonameId}
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind := model.Kind(vars["kind"])
	if !kind.Valid() {
		http.Error(w, "unknown kind", http.StatusNotFound)
		return
	}

	geonameID, err := strconv.ParseInt(vars["geonameId"], 10, 64)
	if err != nil || geonameID <= 0 {
		http.Error(w, "invalid geoname id", http.StatusBadRequest)
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "en"
	}

	entity, err := h.service.GetEntity(r.Context(), kind, geonameID, lang)
	if err != nil {
		if errors.Is(err, service.ErrUnknownKind) {
			http.Error(w, "unknown kind", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting entity", zap.String("kind", string(kind)), zap.Int64("geoname_id", geonameID), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if entity == nil {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, entity)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
