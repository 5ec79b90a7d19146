// stats.go — обработчик статистики каталога.
// GET /api/v1/stats
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/zipstore/internal/api/errors"
)

// statsResponse — статистика каталога.
type statsResponse struct {
	TotalFiles       int            `json:"total_files"`
	TotalSize        int64          `json:"total_size"`
	TotalSizeHuman   string         `json:"total_size_human"`
	AverageSize      int64          `json:"average_size"`
	AverageSizeHuman string         `json:"average_size_human"`
	TotalDownloads   int64          `json:"total_downloads"`
	ByArchive        map[string]int `json:"by_archive"`
	ByExtension      map[string]int `json:"by_extension"`
}

// GetStats — агрегированная статистика каталога.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Statistics(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка получения статистики")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalFiles:       stats.TotalFiles,
		TotalSize:        stats.TotalSize,
		TotalSizeHuman:   stats.TotalSizeHuman,
		AverageSize:      stats.AverageSize,
		AverageSizeHuman: stats.AverageSizeHuman,
		TotalDownloads:   stats.TotalDownloads,
		ByArchive:        stats.ByArchive,
		ByExtension:      stats.ByExtension,
	})
}
