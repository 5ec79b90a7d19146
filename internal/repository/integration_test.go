package repository

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/zipstore/internal/config"
	"github.com/bigkaa/zipstore/internal/database"
	"github.com/bigkaa/zipstore/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool с автоматической очисткой.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("zipstore_test"),
		postgres.WithUsername("zipstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("ZS_DB_HOST", host)
	os.Setenv("ZS_DB_PORT", port.Port())
	os.Setenv("ZS_DB_NAME", "zipstore_test")
	os.Setenv("ZS_DB_USER", "zipstore")
	os.Setenv("ZS_DB_PASSWORD", "test-password")
	os.Setenv("ZS_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// newRecord возвращает запись реестра с тестовыми значениями.
func newRecord(name, archive string, size int64) *model.FileRecord {
	return &model.FileRecord{
		OriginalFilename: name,
		ContentType:      "text/plain",
		Size:             size,
		StoragePath:      "archives/" + archive + "/" + name,
		ParentArchive:    archive,
	}
}

func TestFileRegistryCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	rec := newRecord("readme.txt", "bundle", 42)

	// Insert
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}
	if rec.FileID == "" {
		t.Error("FileID не присвоен")
	}
	if len(rec.DownloadToken) != 32 {
		t.Errorf("длина токена = %d, ожидалось 32", len(rec.DownloadToken))
	}
	if rec.UploadedAt.IsZero() {
		t.Error("UploadedAt не установлен")
	}

	// GetByID
	got, err := repo.GetByID(ctx, rec.FileID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.OriginalFilename != "readme.txt" {
		t.Errorf("OriginalFilename = %q, хотели %q", got.OriginalFilename, "readme.txt")
	}
	if got.DownloadToken != rec.DownloadToken {
		t.Error("токен после чтения не совпадает")
	}
	if got.DownloadCount != 0 {
		t.Errorf("DownloadCount = %d, ожидался 0", got.DownloadCount)
	}
	if got.LastDownloaded != nil {
		t.Error("LastDownloaded должен быть nil для новой записи")
	}

	// GetByID — неизвестный UUID
	if _, err := repo.GetByID(ctx, uuid.New().String()); err != ErrNotFound {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

func TestFileRegistryTokensUnique(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	// Одинаковые имя и содержимое — разные токены
	a := newRecord("dup.txt", "bundle", 10)
	b := newRecord("dup.txt", "bundle", 10)
	if err := repo.Insert(ctx, a); err != nil {
		t.Fatalf("Insert(a) ошибка: %v", err)
	}
	if err := repo.Insert(ctx, b); err != nil {
		t.Fatalf("Insert(b) ошибка: %v", err)
	}
	if a.DownloadToken == b.DownloadToken {
		t.Error("токены идентичных файлов совпали")
	}
}

func TestFileRegistryListAndFilters(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	seed := []*model.FileRecord{
		newRecord("report.pdf", "docs", 100),
		newRecord("summary.txt", "docs", 50),
		newRecord("photo.png", "images", 200),
	}
	for _, rec := range seed {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	// Без фильтров
	all, total, err := repo.List(ctx, ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("List() = %d/%d, ожидалось 3/3", len(all), total)
	}

	// Фильтр по архиву
	archive := "docs"
	docs, total, err := repo.List(ctx, ListFilter{ParentArchive: &archive}, 10, 0)
	if err != nil {
		t.Fatalf("List(parent_archive) ошибка: %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Errorf("List(docs) = %d/%d, ожидалось 2/2", len(docs), total)
	}

	// Поиск по подстроке без учёта регистра
	search := "REPORT"
	found, total, err := repo.List(ctx, ListFilter{Search: &search}, 10, 0)
	if err != nil {
		t.Fatalf("List(search) ошибка: %v", err)
	}
	if total != 1 || len(found) != 1 {
		t.Fatalf("List(search) = %d/%d, ожидалось 1/1", len(found), total)
	}
	if found[0].OriginalFilename != "report.pdf" {
		t.Errorf("найден %q, ожидался report.pdf", found[0].OriginalFilename)
	}

	// Пагинация: limit меньше общего количества
	page, total, err := repo.List(ctx, ListFilter{}, 2, 0)
	if err != nil {
		t.Fatalf("List(limit=2) ошибка: %v", err)
	}
	if len(page) != 2 || total != 3 {
		t.Errorf("List(limit=2) = %d/%d, ожидалось 2/3", len(page), total)
	}
}

func TestFileRegistryConcurrentIncrement(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	rec := newRecord("popular.txt", "bundle", 10)
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() ошибка: %v", err)
	}

	// Одновременные скачивания не теряют обновлений
	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementDownload(ctx, rec.FileID); err != nil {
				t.Errorf("IncrementDownload() ошибка: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, rec.FileID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.DownloadCount != workers {
		t.Errorf("DownloadCount = %d, ожидалось %d", got.DownloadCount, workers)
	}
	if got.LastDownloaded == nil {
		t.Error("LastDownloaded не установлен после скачивания")
	}

	// Неизвестный UUID
	if err := repo.IncrementDownload(ctx, uuid.New().String()); err != ErrNotFound {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

func TestFileRegistryStats(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFileRepository(pool)

	seed := []*model.FileRecord{
		newRecord("a.txt", "docs", 100),
		newRecord("b.TXT", "docs", 50),
		newRecord("noext", "images", 25),
	}
	for _, rec := range seed {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}
	if err := repo.IncrementDownload(ctx, seed[0].FileID); err != nil {
		t.Fatalf("IncrementDownload() ошибка: %v", err)
	}

	agg, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() ошибка: %v", err)
	}

	if agg.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, ожидалось 3", agg.TotalFiles)
	}
	if agg.TotalSize != 175 {
		t.Errorf("TotalSize = %d, ожидалось 175", agg.TotalSize)
	}
	if agg.TotalDownloads != 1 {
		t.Errorf("TotalDownloads = %d, ожидалось 1", agg.TotalDownloads)
	}
	if agg.ByArchive["docs"] != 2 || agg.ByArchive["images"] != 1 {
		t.Errorf("ByArchive = %v", agg.ByArchive)
	}
	// Расширения нормализуются к нижнему регистру,
	// файлы без расширения — под ключом "unknown"
	if agg.ByExtension["txt"] != 2 {
		t.Errorf("ByExtension[txt] = %d, ожидалось 2", agg.ByExtension["txt"])
	}
	if agg.ByExtension["unknown"] != 1 {
		t.Errorf("ByExtension[unknown] = %d, ожидалось 1", agg.ByExtension["unknown"])
	}
}
