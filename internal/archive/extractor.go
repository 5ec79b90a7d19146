// Пакет archive — распаковка ZIP-архивов с политикой допуска записей.
// Экстрактор читает архив из памяти, отбрасывает директории и пустые
// записи, фиксирует превышение лимита размера и выдаёт плоский
// IngestionReport для координатора ingestion.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/bigkaa/zipstore/internal/domain/model"
)

// DefaultMaxEntrySize — лимит размера одной записи по умолчанию (50 MiB).
const DefaultMaxEntrySize = 50 * 1024 * 1024

// ErrArchiveInvalid — входные данные не являются корректным ZIP-архивом.
var ErrArchiveInvalid = errors.New("архив не читается")

// Extractor — распаковщик архивов с политикой допуска.
type Extractor struct {
	maxEntrySize int64
	logger       *slog.Logger
}

// NewExtractor создаёт экстрактор с указанным лимитом размера записи.
// maxEntrySize <= 0 заменяется на DefaultMaxEntrySize.
func NewExtractor(maxEntrySize int64, logger *slog.Logger) *Extractor {
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}
	return &Extractor{
		maxEntrySize: maxEntrySize,
		logger:       logger.With(slog.String("component", "extractor")),
	}
}

// ArchiveLabel возвращает метку архива: базовое имя без расширения.
func ArchiveLabel(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	label := strings.TrimSuffix(base, path.Ext(base))
	if label == "" {
		label = base
	}
	return label
}

// Extract распаковывает архив и применяет политику допуска к каждой записи
// в порядке перечисления архива:
//  1. Директории пропускаются молча.
//  2. Записи нулевой длины пропускаются молча.
//  3. Записи больше лимита попадают в SkippedFiles по полному имени.
//  4. Остальные становятся ArchiveEntry с плоским именем (директории
//     отброшены, коллизии разрешаются числовым суффиксом перед расширением).
//
// Возвращает ErrArchiveInvalid, если данные пусты или не парсятся как ZIP.
func (e *Extractor) Extract(data []byte, originalName string) (*model.IngestionReport, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: пустые данные", ErrArchiveInvalid)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveInvalid, err.Error())
	}

	report := &model.IngestionReport{
		ParentArchive: ArchiveLabel(originalName),
	}

	// Занятые плоские имена внутри этого архива
	assigned := make(map[string]bool)

	for _, f := range zr.File {
		// 1. Директории — молча
		if f.FileInfo().IsDir() {
			continue
		}

		// 3. Быстрая проверка по заявленному размеру — не читаем гигантские записи
		if int64(f.UncompressedSize64) > e.maxEntrySize {
			report.SkippedFiles = append(report.SkippedFiles, f.Name)
			continue
		}

		payload, err := readEntry(f, e.maxEntrySize)
		if err != nil {
			// Повреждённая запись не блокирует остальные
			e.logger.Warn("Запись архива не читается, пропущена",
				slog.String("entry", f.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		// Заявленный размер мог врать — проверяем фактический
		if int64(len(payload)) > e.maxEntrySize {
			report.SkippedFiles = append(report.SkippedFiles, f.Name)
			continue
		}

		// 2. Пустые записи — молча
		if len(payload) == 0 {
			continue
		}

		// 4. Плоское имя с разрешением коллизий
		name := flattenName(f.Name, assigned)
		assigned[name] = true

		entry := model.ArchiveEntry{
			Name:        name,
			Payload:     payload,
			Size:        int64(len(payload)),
			ContentType: Classify(name),
		}
		report.Files = append(report.Files, entry)
		report.TotalFiles++
		report.TotalSize += entry.Size
	}

	return report, nil
}

// readEntry читает содержимое записи с ограничением в maxSize+1 байт.
// Лишний байт позволяет отличить "ровно лимит" от "больше лимита".
func readEntry(f *zip.File, maxSize int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	payload, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// flattenName отбрасывает компоненты директорий и разрешает коллизии
// плоских имён числовым суффиксом перед расширением:
// notes.txt, notes_1.txt, notes_2.txt...
func flattenName(entryName string, assigned map[string]bool) string {
	base := path.Base(strings.ReplaceAll(entryName, "\\", "/"))
	if !assigned[base] {
		return base
	}

	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !assigned[candidate] {
			return candidate
		}
	}
}
