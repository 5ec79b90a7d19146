// upload.go — обработчик загрузки ZIP-архива.
// POST /api/v1/archives, multipart/form-data, поле "archive".
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/zipstore/internal/api/errors"
	"github.com/bigkaa/zipstore/internal/archive"
	"github.com/bigkaa/zipstore/internal/service"
)

// uploadResponse — ответ на загрузку архива.
// Единственное место API, где токены скачивания уходят клиенту.
type uploadResponse struct {
	ParentArchive string           `json:"parent_archive"`
	TotalFiles    int              `json:"total_files"`
	TotalSize     int64            `json:"total_size"`
	TotalSizeStr  string           `json:"total_size_human"`
	StoredFiles   []storedFileView `json:"stored_files"`
	FailedUploads int              `json:"failed_uploads"`
	SkippedFiles  []string         `json:"skipped_files"`
}

// storedFileView — сохранённый файл в ответе загрузки, с токеном.
type storedFileView struct {
	FileID        string `json:"file_id"`
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	DownloadToken string `json:"download_token"`
}

// UploadArchive — загрузка и распаковка ZIP-архива.
// Тело ограничено maxArchiveSize, превышение — 413.
// Некорректный ZIP — 400 ARCHIVE_INVALID.
// Успех — 201 с отчётом ingestion.
func (h *APIHandler) UploadArchive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxArchiveSize)

	// 32 MiB в памяти, остальное — во временных файлах
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, "Архив превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Некорректное multipart-тело запроса")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	files := r.MultipartForm.File["archive"]
	if len(files) == 0 {
		apierrors.ValidationError(w, "Поле \"archive\" обязательно")
		return
	}
	if len(files) > 1 {
		apierrors.ValidationError(w, "Ожидается ровно один файл в поле \"archive\"")
		return
	}

	part, err := files[0].Open()
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения загруженного файла")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения загруженного файла")
		return
	}

	report, err := h.ingest.Ingest(r.Context(), data, files[0].Filename)
	if err != nil {
		if errors.Is(err, archive.ErrArchiveInvalid) {
			apierrors.ArchiveInvalid(w, "Файл не является корректным ZIP-архивом")
			return
		}
		h.logger.Error("Ошибка обработки архива",
			slog.String("filename", files[0].Filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка обработки архива")
		return
	}

	writeJSON(w, http.StatusCreated, newUploadResponse(report))
}

// newUploadResponse строит ответ загрузки из отчёта ingestion.
// Пустые срезы сериализуются как [], не null.
func newUploadResponse(report *service.IngestReport) uploadResponse {
	stored := make([]storedFileView, 0, len(report.StoredFiles))
	for _, sf := range report.StoredFiles {
		stored = append(stored, storedFileView{
			FileID:        sf.FileID,
			Name:          sf.Name,
			Size:          sf.Size,
			DownloadToken: sf.DownloadToken,
		})
	}
	skipped := report.SkippedFiles
	if skipped == nil {
		skipped = []string{}
	}
	return uploadResponse{
		ParentArchive: report.ParentArchive,
		TotalFiles:    report.TotalFiles,
		TotalSize:     report.TotalSize,
		TotalSizeStr:  service.FormatBytes(float64(report.TotalSize)),
		StoredFiles:   stored,
		FailedUploads: report.FailedUploads,
		SkippedFiles:  skipped,
	}
}
