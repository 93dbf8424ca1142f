package scenario

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	log     *logger.ZapLogger
}

func NewHandler(service Service, log *logger.ZapLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "list scenarios", Error: err})
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenario_id")
	if id == "" {
		http.Error(w, "missing scenario_id", http.StatusBadRequest)
		return
	}

	sc, err := h.service.Get(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "scenario not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var sc Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), &sc)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to save scenario: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenario_id")
	if id == "" {
		http.Error(w, "missing scenario_id", http.StatusBadRequest)
		return
	}

	err := h.service.Delete(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "scenario not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to delete scenario: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
