// catalog.go — каталог артефактов: перечисление с фильтрами
// и пагинацией, карточка файла, агрегированная статистика.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/bigkaa/zipstore/internal/domain/model"
	"github.com/bigkaa/zipstore/internal/repository"
)

// DefaultPageSize — размер страницы перечисления по умолчанию.
const DefaultPageSize = 50

// CatalogPage — страница перечисления с метаданными пагинации.
type CatalogPage struct {
	// Items — записи страницы, упорядоченные по времени загрузки (свежие первыми)
	Items []*model.FileRecord
	// Total — общее количество совпадений по фильтрам
	Total int
	// Page — номер текущей страницы (с 1)
	Page int
	// PageSize — размер страницы
	PageSize int
	// TotalPages — количество страниц
	TotalPages int
	// HasNext — существует ли следующая страница
	HasNext bool
	// HasPrev — существует ли предыдущая страница
	HasPrev bool
}

// CatalogStats — статистика каталога для отдачи наружу.
type CatalogStats struct {
	TotalFiles int
	TotalSize  int64
	// TotalSizeHuman — суммарный размер в человекочитаемом виде
	TotalSizeHuman string
	// AverageSize — средний размер файла в байтах (0 для пустого каталога)
	AverageSize      int64
	AverageSizeHuman string
	TotalDownloads   int64
	ByArchive        map[string]int
	ByExtension      map[string]int
}

// CatalogService — сервис каталога поверх реестра артефактов.
type CatalogService struct {
	repo   repository.FileRepository
	logger *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repo repository.FileRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger.With(slog.String("component", "catalog_service")),
	}
}

// Query возвращает страницу перечисления по фильтрам.
// Невалидные параметры пагинации нормализуются: page < 1 → 1,
// pageSize <= 0 → DefaultPageSize. Страница за пределами диапазона —
// пустой список с корректным Total, не ошибка.
func (s *CatalogService) Query(ctx context.Context, filter repository.ListFilter, page, pageSize int) (*CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	offset := (page - 1) * pageSize

	items, total, err := s.repo.List(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления каталога: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return &CatalogPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}, nil
}

// GetFile возвращает запись по UUID. repository.ErrNotFound — как есть.
func (s *CatalogService) GetFile(ctx context.Context, fileID string) (*model.FileRecord, error) {
	return s.repo.GetByID(ctx, fileID)
}

// Statistics возвращает агрегированную статистику каталога.
func (s *CatalogService) Statistics(ctx context.Context) (*CatalogStats, error) {
	agg, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации статистики: %w", err)
	}
	var avg int64
	if agg.TotalFiles > 0 {
		avg = agg.TotalSize / int64(agg.TotalFiles)
	}

	return &CatalogStats{
		TotalFiles:       agg.TotalFiles,
		TotalSize:        agg.TotalSize,
		TotalSizeHuman:   FormatBytes(float64(agg.TotalSize)),
		AverageSize:      avg,
		AverageSizeHuman: FormatBytes(float64(avg)),
		TotalDownloads:   agg.TotalDownloads,
		ByArchive:        agg.ByArchive,
		ByExtension:      agg.ByExtension,
	}, nil
}

// sizeUnits — единицы измерения по основанию 1024.
var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatBytes форматирует размер в человекочитаемую строку по основанию
// 1024 с округлением до двух знаков; хвостовые нули отбрасываются.
// Примеры: 0 → "0 Bytes", 1536 → "1.5 KB", 1026000 → "1001.95 KB".
func FormatBytes(bytes float64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	value := bytes
	idx := 0
	for value >= 1024 && idx < len(sizeUnits)-1 {
		value /= 1024
		idx++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[idx]
}
