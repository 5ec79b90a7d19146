package repository

import (
	"strings"
	"testing"
)

// --- Тесты buildListWhere ---

// TestBuildListWhere_Empty проверяет пустые фильтры.
func TestBuildListWhere_Empty(t *testing.T) {
	where, args := buildListWhere(ListFilter{}, 1)

	if where != "" {
		t.Errorf("where = %q, ожидалась пустая строка", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

// TestBuildListWhere_ParentArchive проверяет точный фильтр по метке архива.
func TestBuildListWhere_ParentArchive(t *testing.T) {
	parent := "docs"
	where, args := buildListWhere(ListFilter{ParentArchive: &parent}, 1)

	if !strings.Contains(where, "parent_archive = $1") {
		t.Errorf("where = %q, ожидалось содержание 'parent_archive = $1'", where)
	}
	if len(args) != 1 || args[0] != "docs" {
		t.Errorf("args = %v, ожидался [docs]", args)
	}
}

// TestBuildListWhere_Search проверяет подстрочный поиск через ILIKE.
func TestBuildListWhere_Search(t *testing.T) {
	search := "readme"
	where, args := buildListWhere(ListFilter{Search: &search}, 1)

	if !strings.Contains(where, "original_filename ILIKE $1") {
		t.Errorf("where = %q, ожидался ILIKE по имени", where)
	}
	if args[0] != "%readme%" {
		t.Errorf("args[0] = %v, ожидался '%%readme%%'", args[0])
	}
}

// TestBuildListWhere_Conjunction проверяет объединение фильтров по AND.
func TestBuildListWhere_Conjunction(t *testing.T) {
	parent := "docs"
	search := "note"
	where, args := buildListWhere(ListFilter{ParentArchive: &parent, Search: &search}, 1)

	if !strings.Contains(where, " AND ") {
		t.Errorf("where = %q, ожидалось объединение по AND", where)
	}
	if !strings.Contains(where, "$2") {
		t.Errorf("where = %q, ожидалась нумерация аргументов до $2", where)
	}
	if len(args) != 2 {
		t.Errorf("args count = %d, ожидался 2", len(args))
	}
}

// TestBuildListWhere_StartArg проверяет нумерацию с произвольного аргумента.
func TestBuildListWhere_StartArg(t *testing.T) {
	search := "x"
	where, _ := buildListWhere(ListFilter{Search: &search}, 3)

	if !strings.Contains(where, "$3") {
		t.Errorf("where = %q, ожидался $3", where)
	}
}

// TestBuildListWhere_EmptyValuesIgnored проверяет игнорирование пустых значений.
func TestBuildListWhere_EmptyValuesIgnored(t *testing.T) {
	empty := ""
	where, args := buildListWhere(ListFilter{ParentArchive: &empty, Search: &empty}, 1)

	if where != "" || len(args) != 0 {
		t.Errorf("where = %q, args = %v; пустые значения не должны давать условий", where, args)
	}
}

// TestEscapeLike проверяет экранирование спецсимволов LIKE.
func TestEscapeLike(t *testing.T) {
	if got := escapeLike("50%_done"); got != `50\%\_done` {
		t.Errorf("escapeLike = %q, ожидался '50\\%%\\_done'", got)
	}
}

// --- Тесты генерации токена ---

// TestNewDownloadToken проверяет длину и формат токена.
func TestNewDownloadToken(t *testing.T) {
	token, err := newDownloadToken()
	if err != nil {
		t.Fatalf("newDownloadToken ошибка: %v", err)
	}
	if len(token) != tokenBytes*2 {
		t.Errorf("len(token) = %d, ожидался %d hex-символов", len(token), tokenBytes*2)
	}
	for _, c := range token {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("токен содержит не-hex символ %q", c)
		}
	}
}

// TestNewDownloadToken_Unique проверяет уникальность последовательных токенов.
func TestNewDownloadToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := newDownloadToken()
		if err != nil {
			t.Fatalf("newDownloadToken ошибка: %v", err)
		}
		if seen[token] {
			t.Fatalf("повторившийся токен: %s", token)
		}
		seen[token] = true
	}
}
