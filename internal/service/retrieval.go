// retrieval.go — выдача файлов по capability-токену.
// Токен — единственное основание доступа: знание токена равно праву
// скачивания, пользовательской идентичности нет.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/zipstore/internal/domain/model"
	"github.com/bigkaa/zipstore/internal/repository"
	"github.com/bigkaa/zipstore/internal/storage/blobstore"
)

// Ошибки сервиса выдачи.
var (
	// ErrNotFound — файл с указанным UUID не существует.
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidToken — токен отсутствует или не совпадает.
	ErrInvalidToken = errors.New("невалидный токен скачивания")
)

// Prometheus-метрики скачиваний.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zs_downloads_total",
		Help: "Количество запросов скачивания по результату авторизации.",
	}, []string{"result"})
	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zs_download_bytes_total",
		Help: "Суммарный размер авторизованных скачиваний в байтах.",
	})
)

// RetrievalService — авторизация и выдача содержимого файлов.
type RetrievalService struct {
	repo   repository.FileRepository
	store  blobstore.Store
	cache  *CacheService
	logger *slog.Logger
}

// NewRetrievalService создаёт сервис выдачи.
// cache может быть nil — тогда каждая авторизация идёт в базу.
func NewRetrievalService(
	repo repository.FileRepository,
	store blobstore.Store,
	cache *CacheService,
	logger *slog.Logger,
) *RetrievalService {
	return &RetrievalService{
		repo:   repo,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "retrieval_service")),
	}
}

// Authorize проверяет токен и возвращает запись файла.
//
// Порядок проверок фиксированный:
//  1. Пустой токен отклоняется до обращения к реестру.
//  2. Неизвестный UUID → ErrNotFound (404, не 403 — существование
//     записей не скрывается, перечисление и так публично).
//  3. Несовпадение токена → ErrInvalidToken. Сравнение за константное
//     время. Токен многоразовый, счётчик скачиваний увеличивается
//     при каждой успешной авторизации.
func (s *RetrievalService) Authorize(ctx context.Context, fileID, token string) (*model.FileRecord, error) {
	if token == "" {
		downloadsTotal.WithLabelValues("invalid_token").Inc()
		return nil, ErrInvalidToken
	}

	record, err := s.lookup(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска файла: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(record.DownloadToken), []byte(token)) != 1 {
		downloadsTotal.WithLabelValues("invalid_token").Inc()
		return nil, ErrInvalidToken
	}

	// Учёт скачивания не блокирует выдачу: при ошибке инкремента
	// файл всё равно отдаётся
	if err := s.repo.IncrementDownload(ctx, fileID); err != nil {
		s.logger.Warn("Ошибка учёта скачивания",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}

	downloadsTotal.WithLabelValues("authorized").Inc()
	downloadBytesTotal.Add(float64(record.Size))

	s.logger.Info("Скачивание авторизовано",
		slog.String("file_id", fileID),
		slog.String("filename", record.OriginalFilename),
		slog.Int64("size", record.Size),
	)
	return record, nil
}

// OpenPayload открывает содержимое файла в объектном хранилище.
// Отсутствие payload для существующей записи реестра — ErrNotFound.
func (s *RetrievalService) OpenPayload(ctx context.Context, record *model.FileRecord) (io.ReadSeekCloser, error) {
	rc, err := s.store.Open(ctx, record.StoragePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error("Payload отсутствует для записи реестра",
				slog.String("file_id", record.FileID),
				slog.String("locator", record.StoragePath),
			)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия payload: %w", err)
	}
	return rc, nil
}

// lookup возвращает запись: сначала кэш, затем реестр.
// Счётчик скачиваний в кэшированной копии может отставать — для
// авторизации важны только токен и locator, они иммутабельны.
func (s *RetrievalService) lookup(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if s.cache != nil {
		if record, ok := s.cache.Get(fileID); ok {
			return record, nil
		}
	}

	record, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(fileID, record)
	}
	return record, nil
}
