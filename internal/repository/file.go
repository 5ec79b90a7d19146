package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/zipstore/internal/domain/model"
)

// fileColumns — список столбцов таблицы file_registry для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `file_id, original_filename, content_type, size, storage_path,
	parent_archive, download_token, uploaded_at, download_count, last_downloaded`

// tokenBytes — длина токена скачивания в байтах (32 hex-символа).
const tokenBytes = 16

// ListFilter — фильтры перечисления файлов.
// Все поля — указатели, nil = фильтр не применяется.
// Фильтры объединяются по AND.
type ListFilter struct {
	// ParentArchive — точное совпадение метки родительского архива
	ParentArchive *string
	// Search — подстрока имени файла без учёта регистра
	Search *string
}

// StatsAggregate — агрегаты статистики каталога.
type StatsAggregate struct {
	// TotalFiles — количество записей
	TotalFiles int
	// TotalSize — суммарный размер в байтах
	TotalSize int64
	// TotalDownloads — сумма счётчиков скачиваний
	TotalDownloads int64
	// ByArchive — количество файлов по меткам архивов
	ByArchive map[string]int
	// ByExtension — количество файлов по расширениям;
	// файлы без расширения собраны под ключом "unknown"
	ByExtension map[string]int
}

// FileRepository — интерфейс доступа к реестру артефактов.
type FileRepository interface {
	// Insert создаёт запись: присваивает UUID, генерирует токен скачивания,
	// фиксирует время вставки. Заполняет FileID, DownloadToken и UploadedAt
	// переданной записи.
	Insert(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает запись по UUID или ErrNotFound.
	GetByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	// List возвращает записи по фильтрам, упорядоченные по uploaded_at DESC.
	// Возвращает: записи страницы, общее количество совпадений, ошибка.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*model.FileRecord, int, error)
	// IncrementDownload атомарно увеличивает счётчик скачиваний
	// и обновляет last_downloaded. ErrNotFound для неизвестного UUID.
	IncrementDownload(ctx context.Context, fileID string) error
	// Stats возвращает агрегаты статистики по всем записям.
	Stats(ctx context.Context) (*StatsAggregate, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлового реестра.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// newDownloadToken генерирует криптографически случайный токен скачивания.
// 16 байт crypto/rand → 32 hex-символа. Токен не выводим из идентификатора,
// имени или времени записи.
func newDownloadToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Insert создаёт запись реестра.
// UUID и токен генерируются здесь, uploaded_at назначает база.
func (r *fileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	token, err := newDownloadToken()
	if err != nil {
		return err
	}
	fileID := uuid.New().String()

	query := `
		INSERT INTO file_registry (file_id, original_filename, content_type, size,
			storage_path, parent_archive, download_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at`

	err = r.db.QueryRow(ctx, query,
		fileID, f.OriginalFilename, f.ContentType, f.Size,
		f.StoragePath, f.ParentArchive, token,
	).Scan(&f.UploadedAt)
	if err != nil {
		return fmt.Errorf("ошибка вставки записи файла: %w", err)
	}

	f.FileID = fileID
	f.DownloadToken = token
	f.DownloadCount = 0
	f.LastDownloaded = nil
	return nil
}

// GetByID возвращает запись по UUID или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM file_registry WHERE file_id = $1`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, fileID).Scan(
		&f.FileID, &f.OriginalFilename, &f.ContentType, &f.Size, &f.StoragePath,
		&f.ParentArchive, &f.DownloadToken, &f.UploadedAt, &f.DownloadCount, &f.LastDownloaded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// List возвращает страницу записей с общим количеством совпадений.
// Сортировка фиксированная: uploaded_at DESC (свежие первыми).
func (r *fileRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*model.FileRecord, int, error) {
	where, args := buildListWhere(filter, 1)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM file_registry %s ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d`,
		fileColumns, where, argNum, argNum+1,
	)
	dataArgs := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка перечисления файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := rows.Scan(
			&f.FileID, &f.OriginalFilename, &f.ContentType, &f.Size, &f.StoragePath,
			&f.ParentArchive, &f.DownloadToken, &f.UploadedAt, &f.DownloadCount, &f.LastDownloaded,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Общее количество с теми же фильтрами, без LIMIT/OFFSET
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM file_registry %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}

	return result, total, nil
}

// IncrementDownload атомарно увеличивает счётчик скачиваний.
// Атомарность инкремента обеспечивает PostgreSQL — одновременные
// скачивания одного файла не теряют обновлений.
func (r *fileRepo) IncrementDownload(ctx context.Context, fileID string) error {
	query := `
		UPDATE file_registry
		SET download_count = download_count + 1, last_downloaded = now()
		WHERE file_id = $1`

	tag, err := r.db.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("ошибка инкремента счётчика скачиваний: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats возвращает агрегаты статистики: итоговые суммы одним запросом,
// распределения по архивам и расширениям — GROUP BY.
func (r *fileRepo) Stats(ctx context.Context) (*StatsAggregate, error) {
	agg := &StatsAggregate{
		ByArchive:   make(map[string]int),
		ByExtension: make(map[string]int),
	}

	totalsQuery := `
		SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(download_count), 0)
		FROM file_registry`
	if err := r.db.QueryRow(ctx, totalsQuery).Scan(
		&agg.TotalFiles, &agg.TotalSize, &agg.TotalDownloads,
	); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта итогов: %w", err)
	}

	archiveQuery := `
		SELECT parent_archive, COUNT(*)
		FROM file_registry
		GROUP BY parent_archive`
	rows, err := r.db.Query(ctx, archiveQuery)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по архивам: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата архивов: %w", err)
		}
		agg.ByArchive[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации агрегата архивов: %w", err)
	}

	// Расширение — текст после последней точки; NULLIF отбрасывает
	// имена без расширения, они группируются под "unknown"
	extQuery := `
		SELECT lower(NULLIF(substring(original_filename FROM '\.([^.]+)$'), '')), COUNT(*)
		FROM file_registry
		GROUP BY 1`
	extRows, err := r.db.Query(ctx, extQuery)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по расширениям: %w", err)
	}
	defer extRows.Close()
	for extRows.Next() {
		var ext *string
		var count int
		if err := extRows.Scan(&ext, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата расширений: %w", err)
		}
		key := "unknown"
		if ext != nil && *ext != "" {
			key = *ext
		}
		agg.ByExtension[key] += count
	}
	if err := extRows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации агрегата расширений: %w", err)
	}

	return agg, nil
}

// buildListWhere строит WHERE-условие и аргументы для перечисления файлов.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildListWhere(filter ListFilter, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Точное совпадение метки родительского архива
	if filter.ParentArchive != nil && *filter.ParentArchive != "" {
		conditions = append(conditions, fmt.Sprintf("parent_archive = $%d", argNum))
		args = append(args, *filter.ParentArchive)
		argNum++
	}

	// Подстрока имени файла без учёта регистра
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("original_filename ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*filter.Search)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// escapeLike экранирует спецсимволы LIKE-шаблона в пользовательском вводе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
