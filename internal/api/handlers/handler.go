// handler.go — основной обработчик API zipstore.
// Объединяет health и бизнес-обработчики, делегируя запросы
// в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bigkaa/zipstore/internal/domain/model"
	"github.com/bigkaa/zipstore/internal/service"
)

// APIHandler — основной обработчик API zipstore.
type APIHandler struct {
	ingest    *service.IngestService
	catalog   *service.CatalogService
	retrieval *service.RetrievalService
	health    *HealthHandler

	// maxArchiveSize — лимит размера тела запроса загрузки архива
	maxArchiveSize int64
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	ingest *service.IngestService,
	catalog *service.CatalogService,
	retrieval *service.RetrievalService,
	health *HealthHandler,
	maxArchiveSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		ingest:         ingest,
		catalog:        catalog,
		retrieval:      retrieval,
		health:         health,
		maxArchiveSize: maxArchiveSize,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Представления ответов ---

// fileView — публичное представление записи файла.
// Токен скачивания НИКОГДА не включается: перечисление публично,
// токен выдаётся только в ответе загрузки архива.
type fileView struct {
	FileID           string  `json:"file_id"`
	OriginalFilename string  `json:"original_filename"`
	ContentType      string  `json:"content_type"`
	Size             int64   `json:"size"`
	SizeHuman        string  `json:"size_human"`
	ParentArchive    string  `json:"parent_archive"`
	UploadedAt       string  `json:"uploaded_at"`
	DownloadCount    int64   `json:"download_count"`
	LastDownloaded   *string `json:"last_downloaded,omitempty"`
}

// newFileView строит публичное представление записи.
func newFileView(f *model.FileRecord) fileView {
	view := fileView{
		FileID:           f.FileID,
		OriginalFilename: f.OriginalFilename,
		ContentType:      f.ContentType,
		Size:             f.Size,
		SizeHuman:        service.FormatBytes(float64(f.Size)),
		ParentArchive:    f.ParentArchive,
		UploadedAt:       f.UploadedAt.UTC().Format(time.RFC3339),
		DownloadCount:    f.DownloadCount,
	}
	if f.LastDownloaded != nil {
		ts := f.LastDownloaded.UTC().Format(time.RFC3339)
		view.LastDownloaded = &ts
	}
	return view
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt читает целочисленный query-параметр.
// Отсутствующее или нечисловое значение — fallback.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}
