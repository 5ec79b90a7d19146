// Пакет blobstore — объектное хранилище артефактов на диске.
// Сохраняет байты по запрошенному пути и возвращает локатор —
// относительный путь внутри dataDir, по которому байты читаются обратно.
// Соглашение о путях: archives/{archiveLabel}/{entryName}.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Ошибки объектного хранилища.
var (
	// ErrEmptyPayload — попытка сохранить пустые данные.
	ErrEmptyPayload = errors.New("пустое содержимое")
	// ErrNotFound — локатор не разрешается в существующий объект.
	ErrNotFound = errors.New("объект не найден")
	// ErrInvalidPath — путь выходит за пределы хранилища.
	ErrInvalidPath = errors.New("недопустимый путь объекта")
)

// Store — интерфейс объектного хранилища.
// Реализуется DiskStore; в тестах подменяется in-memory фейком.
type Store interface {
	// Put сохраняет payload по запрошенному пути и возвращает локатор.
	// Возвращает ErrEmptyPayload для пустого payload.
	Put(ctx context.Context, payload []byte, path, contentType string) (string, error)
	// Open открывает объект по локатору для чтения.
	// Возвращает ErrNotFound, если локатор не разрешается.
	Open(ctx context.Context, locator string) (io.ReadSeekCloser, error)
	// Delete удаляет объект. Отсутствующий объект — не ошибка.
	Delete(ctx context.Context, locator string) error
}

// DiskStore — дисковая реализация Store.
type DiskStore struct {
	dataDir string
	logger  *slog.Logger
}

// Проверка на этапе компиляции
var _ Store = (*DiskStore)(nil)

// New создаёт DiskStore. Проверяет и создаёт корневую директорию,
// если она не существует.
func New(dataDir string, logger *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &DiskStore{
		dataDir: dataDir,
		logger:  logger.With(slog.String("component", "blobstore")),
	}, nil
}

// Put сохраняет payload по запрошенному пути.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// Артефакты write-once: если путь уже занят, к имени добавляется
// короткий uuid-суффикс, чтобы существующие локаторы никогда
// не указывали на перезаписанные байты.
func (s *DiskStore) Put(ctx context.Context, payload []byte, path, contentType string) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	locator, err := s.resolveLocator(path)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.dataDir, locator)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("ошибка создания директории объекта: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	s.logger.Debug("Объект сохранён",
		slog.String("locator", locator),
		slog.Int("size", len(payload)),
		slog.String("content_type", contentType),
	)

	return locator, nil
}

// Open открывает объект по локатору.
// Вызывающий код обязан закрыть ReadSeekCloser.
func (s *DiskStore) Open(ctx context.Context, locator string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := cleanPath(locator)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dataDir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
		}
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", locator, err)
	}
	return f, nil
}

// Delete удаляет объект с диска. Отсутствующий объект — не ошибка.
func (s *DiskStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean, err := cleanPath(locator)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dataDir, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", locator, err)
	}
	return nil
}

// resolveLocator нормализует запрошенный путь и разрешает занятые имена
// uuid-суффиксом перед расширением.
func (s *DiskStore) resolveLocator(path string) (string, error) {
	clean, err := cleanPath(path)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.dataDir, clean)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return clean, nil
	}

	// Путь занят — уникализируем имя
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	suffixed := fmt.Sprintf("%s_%s%s", stem, uuid.New().String()[:8], ext)

	s.logger.Debug("Путь объекта занят, добавлен суффикс",
		slog.String("requested", clean),
		slog.String("assigned", suffixed),
	)
	return suffixed, nil
}

// cleanPath нормализует относительный путь и отклоняет выход
// за пределы dataDir.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(strings.ReplaceAll(p, "\\", "/"))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return clean, nil
}
