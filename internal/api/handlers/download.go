// download.go — обработчик скачивания файла по capability-токену.
// GET /api/v1/files/{file_id}/download?token=...
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/zipstore/internal/api/errors"
	"github.com/bigkaa/zipstore/internal/service"
)

// DownloadFile — выдача содержимого файла.
// Авторизация — токен в query-параметре "token":
//   - неизвестный UUID → 404 (существование записей публично)
//   - отсутствующий или неверный токен → 403
//
// Успех — содержимое с исходным Content-Type и attachment-заголовком.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "file_id")
	if _, err := uuid.Parse(fileID); err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор файла")
		return
	}
	token := r.URL.Query().Get("token")

	record, err := h.retrieval.Authorize(r.Context(), fileID, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrInvalidToken):
			apierrors.InvalidToken(w, "Токен скачивания отсутствует или не совпадает")
		default:
			h.logger.Error("Ошибка авторизации скачивания",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Ошибка авторизации скачивания")
		}
		return
	}

	payload, err := h.retrieval.OpenPayload(r.Context(), record)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Содержимое файла недоступно")
			return
		}
		h.logger.Error("Ошибка открытия содержимого",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка открытия содержимого")
		return
	}
	defer payload.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", record.OriginalFilename))
	// ServeContent обрабатывает Range-запросы и Content-Length
	http.ServeContent(w, r, record.OriginalFilename, record.UploadedAt, payload)
}
