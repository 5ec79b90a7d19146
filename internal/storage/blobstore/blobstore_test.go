package blobstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := New(t.TempDir(), slog.Default())
	if err != nil {
		t.Fatalf("New ошибка: %v", err)
	}
	return s
}

// TestPutOpen проверяет сохранение и чтение объекта по локатору.
func TestPutOpen(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	locator, err := s.Put(ctx, []byte("payload"), "archives/docs/readme.txt", "text/plain")
	if err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}
	if locator != "archives/docs/readme.txt" {
		t.Errorf("locator = %q, ожидался archives/docs/readme.txt", locator)
	}

	f, err := s.Open(ctx, locator)
	if err != nil {
		t.Fatalf("Open ошибка: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("чтение объекта: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("содержимое = %q, ожидался payload", data)
	}
}

// TestPut_EmptyPayload проверяет отказ для пустого содержимого.
func TestPut_EmptyPayload(t *testing.T) {
	s := testStore(t)

	if _, err := s.Put(context.Background(), nil, "archives/a/b.txt", ""); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Put(nil) = %v, ожидался ErrEmptyPayload", err)
	}
}

// TestPut_OccupiedPath проверяет уникализацию занятого пути:
// существующий локатор никогда не указывает на перезаписанные байты.
func TestPut_OccupiedPath(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, []byte("one"), "archives/a/notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}
	second, err := s.Put(ctx, []byte("two"), "archives/a/notes.txt", "text/plain")
	if err != nil {
		t.Fatalf("повторный Put ошибка: %v", err)
	}

	if first == second {
		t.Fatalf("локаторы совпали: %q", first)
	}

	f, err := s.Open(ctx, first)
	if err != nil {
		t.Fatalf("Open первого объекта: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "one" {
		t.Errorf("первый объект перезаписан: %q", data)
	}
}

// TestOpen_NotFound проверяет ErrNotFound для несуществующего локатора.
func TestOpen_NotFound(t *testing.T) {
	s := testStore(t)

	if _, err := s.Open(context.Background(), "archives/x/missing.bin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing) = %v, ожидался ErrNotFound", err)
	}
}

// TestPut_PathTraversal проверяет отклонение путей за пределами хранилища.
func TestPut_PathTraversal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	bad := []string{"../escape.txt", "/etc/passwd", "a/../../escape", ""}
	for _, p := range bad {
		if _, err := s.Put(ctx, []byte("x"), p, ""); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Put(%q) = %v, ожидался ErrInvalidPath", p, err)
		}
	}
}

// TestDelete проверяет удаление и идемпотентность удаления.
func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	locator, err := s.Put(ctx, []byte("bye"), "archives/a/tmp.txt", "")
	if err != nil {
		t.Fatalf("Put ошибка: %v", err)
	}

	if err := s.Delete(ctx, locator); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := s.Open(ctx, locator); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open после Delete = %v, ожидался ErrNotFound", err)
	}
	// Повторное удаление — не ошибка
	if err := s.Delete(ctx, locator); err != nil {
		t.Errorf("повторный Delete = %v, ожидался nil", err)
	}
}

// TestCleanPath проверяет нормализацию путей с обратными слэшами.
func TestCleanPath(t *testing.T) {
	got, err := cleanPath(`archives\a\file.txt`)
	if err != nil {
		t.Fatalf("cleanPath ошибка: %v", err)
	}
	if !strings.Contains(got, "file.txt") {
		t.Errorf("cleanPath = %q, ожидалось имя file.txt", got)
	}
}
