// ingest.go — координатор ingestion: распаковка архива и сохранение
// каждой допущенной записи (payload → объектное хранилище,
// затем метаданные → реестр).
//
// Контракт изоляции отказов: ошибка одной записи логируется и попадает
// в счётчик failed, но не прерывает обработку остальных записей.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/zipstore/internal/archive"
	"github.com/bigkaa/zipstore/internal/domain/model"
	"github.com/bigkaa/zipstore/internal/repository"
	"github.com/bigkaa/zipstore/internal/storage/blobstore"
)

// Prometheus-метрики ingestion.
var (
	ingestTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zs_ingest_total",
		Help: "Общее количество обработанных архивов.",
	})
	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zs_ingest_duration_seconds",
		Help:    "Длительность обработки одного архива.",
		Buckets: prometheus.DefBuckets,
	})
	ingestEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zs_ingest_entries_total",
		Help: "Количество записей архивов по результату обработки.",
	}, []string{"result"})
)

// StoredFile — успешно сохранённая запись в ответе ingestion.
// Единственное место, где токен скачивания покидает сервис:
// без эха токена uploader не смог бы скачать собственный файл.
type StoredFile struct {
	FileID        string
	Name          string
	Size          int64
	DownloadToken string
}

// IngestReport — агрегированный результат обработки одного архива.
type IngestReport struct {
	// ParentArchive — метка архива
	ParentArchive string
	// TotalFiles — количество записей, допущенных экстрактором
	TotalFiles int
	// TotalSize — суммарный размер допущенных записей
	TotalSize int64
	// StoredFiles — успешно сохранённые записи в порядке перечисления архива
	StoredFiles []StoredFile
	// FailedUploads — допущено, но не сохранено (ошибки persistence)
	FailedUploads int
	// SkippedFiles — имена записей, отклонённых политикой размера
	SkippedFiles []string
}

// IngestService — координатор ingestion.
// Зависимости передаются явно, что позволяет подменять их фейками в тестах.
type IngestService struct {
	extractor   *archive.Extractor
	store       blobstore.Store
	repo        repository.FileRepository
	concurrency int
	logger      *slog.Logger
}

// NewIngestService создаёт координатор ingestion.
// concurrency — количество одновременных per-entry сохранений (минимум 1).
func NewIngestService(
	extractor *archive.Extractor,
	store blobstore.Store,
	repo repository.FileRepository,
	concurrency int,
	logger *slog.Logger,
) *IngestService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &IngestService{
		extractor:   extractor,
		store:       store,
		repo:        repo,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest распаковывает архив и сохраняет допущенные записи с ограниченным
// параллелизмом. Для каждой записи порядок строгий: сначала payload
// в объектное хранилище, затем метаданные в реестр — запись реестра
// никогда не ссылается на несуществующий payload.
//
// При отмене ctx начатые записи дозаписываются, новые не диспатчатся;
// уже сохранённые артефакты не откатываются.
func (s *IngestService) Ingest(ctx context.Context, data []byte, originalName string) (*IngestReport, error) {
	start := time.Now()
	ingestTotal.Inc()

	extracted, err := s.extractor.Extract(data, originalName)
	if err != nil {
		return nil, err
	}

	// Один слот результата на запись — конкурентные записи не разделяют
	// изменяемого состояния
	results := make([]*StoredFile, len(extracted.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, entry := range extracted.Files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = s.storeEntry(gctx, extracted.ParentArchive, entry)
			return nil
		})
	}

	// Барьер: ошибки записей уже учтены per-entry, g.Wait только
	// дожидается завершения
	_ = g.Wait()

	report := &IngestReport{
		ParentArchive: extracted.ParentArchive,
		TotalFiles:    extracted.TotalFiles,
		TotalSize:     extracted.TotalSize,
		SkippedFiles:  extracted.SkippedFiles,
	}
	for _, res := range results {
		if res != nil {
			report.StoredFiles = append(report.StoredFiles, *res)
		}
	}
	report.FailedUploads = report.TotalFiles - len(report.StoredFiles)

	ingestEntriesTotal.WithLabelValues("stored").Add(float64(len(report.StoredFiles)))
	ingestEntriesTotal.WithLabelValues("failed").Add(float64(report.FailedUploads))
	ingestEntriesTotal.WithLabelValues("skipped").Add(float64(len(report.SkippedFiles)))
	ingestDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Архив обработан",
		slog.String("archive", report.ParentArchive),
		slog.Int("admitted", report.TotalFiles),
		slog.Int("stored", len(report.StoredFiles)),
		slog.Int("failed", report.FailedUploads),
		slog.Int("skipped", len(report.SkippedFiles)),
		slog.Int64("total_size", report.TotalSize),
		slog.Duration("duration", time.Since(start)),
	)

	return report, nil
}

// storeEntry сохраняет одну запись: payload, затем метаданные.
// Возвращает nil при любой ошибке — отказ изолирован в пределах записи.
func (s *IngestService) storeEntry(ctx context.Context, label string, entry model.ArchiveEntry) *StoredFile {
	path := fmt.Sprintf("archives/%s/%s", label, entry.Name)

	locator, err := s.store.Put(ctx, entry.Payload, path, entry.ContentType)
	if err != nil {
		s.logger.Error("Ошибка сохранения payload",
			slog.String("archive", label),
			slog.String("entry", entry.Name),
			slog.String("error", err.Error()),
		)
		return nil
	}

	record := &model.FileRecord{
		OriginalFilename: entry.Name,
		ContentType:      entry.ContentType,
		Size:             entry.Size,
		StoragePath:      locator,
		ParentArchive:    label,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		// Payload уже записан — остаётся безвредной сиротой,
		// автоматический retry не выполняется
		s.logger.Error("Ошибка записи метаданных, payload осиротел",
			slog.String("archive", label),
			slog.String("entry", entry.Name),
			slog.String("locator", locator),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return &StoredFile{
		FileID:        record.FileID,
		Name:          record.OriginalFilename,
		Size:          record.Size,
		DownloadToken: record.DownloadToken,
	}
}
