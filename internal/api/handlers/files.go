// files.go — обработчики каталога файлов.
// GET /api/v1/files — перечисление с фильтрами и пагинацией.
// GET /api/v1/files/{file_id} — карточка файла.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/zipstore/internal/api/errors"
	"github.com/bigkaa/zipstore/internal/repository"
)

// listResponse — страница перечисления файлов.
type listResponse struct {
	Items      []fileView     `json:"items"`
	Pagination paginationView `json:"pagination"`
}

// paginationView — блок метаданных пагинации.
type paginationView struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ListFiles — перечисление файлов каталога.
// Фильтры: parent_archive (точное совпадение), search (подстрока имени
// без учёта регистра). Пагинация: page, page_size.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter repository.ListFilter
	if v := q.Get("parent_archive"); v != "" {
		filter.ParentArchive = &v
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 0)

	result, err := h.catalog.Query(r.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("Ошибка перечисления файлов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка перечисления файлов")
		return
	}

	items := make([]fileView, 0, len(result.Items))
	for _, f := range result.Items {
		items = append(items, newFileView(f))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items: items,
		Pagination: paginationView{
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			HasNext:    result.HasNext,
			HasPrev:    result.HasPrev,
		},
	})
}

// GetFile — карточка одного файла по UUID.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор файла")
		return
	}

	record, err := h.catalog.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка получения файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка получения файла")
		return
	}

	writeJSON(w, http.StatusOK, newFileView(record))
}
