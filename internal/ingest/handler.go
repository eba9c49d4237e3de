package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/loader"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service      *Service
	maxBodyBytes int64
}

func NewHandler(service *Service, maxBodyBytes int64) *Handler {
	return &Handler{service: service, maxBodyBytes: maxBodyBytes}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/datasets", h.Upload).Methods("POST")
	router.HandleFunc("/datasets/import/storage", h.ImportFromStorage).Methods("POST")
	router.HandleFunc("/datasets/import/drive", h.ImportFromDrive).Methods("POST")
}

type importRequest struct {
	Key    string `json:"key"`
	FileID string `json:"file_id"`
	Name   string `json:"name"`
}

// Upload accepts a JSON document or an XLSX workbook as the request body.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	format := loader.FormatJSON
	if strings.HasPrefix(r.Header.Get("Content-Type"), xlsxContentType) {
		format = loader.FormatXLSX
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, body, h.maxBodyBytes)
	}

	info, err := h.service.ImportUpload(r.Context(), r.URL.Query().Get("name"), format, body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) ImportFromStorage(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, "request body must contain a storage key", http.StatusBadRequest)
		return
	}

	info, err := h.service.ImportFromStorage(r.Context(), req.Key, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) ImportFromDrive(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		http.Error(w, "request body must contain a file_id", http.StatusBadRequest)
		return
	}

	info, err := h.service.ImportFromDrive(r.Context(), req.FileID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		http.Error(w, "dataset exceeds the request size limit", http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrSourceNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, analytics.ErrInvalidDataset),
		errors.Is(err, loader.ErrMalformed),
		errors.Is(err, loader.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("ingest: import failed")
		http.Error(w, "import failed", http.StatusInternalServerError)
	}
}
