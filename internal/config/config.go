// Пакет config — загрузка и валидация конфигурации zipstore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации zipstore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Объектное хранилище ---

	// Корневая директория blobstore
	DataDir string

	// --- Политика распаковки ---

	// Максимальный размер одной записи архива (байт).
	// Записи больше лимита попадают в skipped-список отчёта.
	MaxEntrySize int64
	// Лимит размера тела запроса загрузки архива (байт)
	MaxArchiveSize int64
	// Количество одновременных per-entry загрузок в рамках одного ingestion
	UploadConcurrency int

	// --- Кэш метаданных ---

	// Максимальное количество записей LRU-кэша
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Dephealth (topologymetrics) ---

	// Включение мониторинга зависимостей
	DephealthEnabled bool
	// Имя группы в метриках
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// ZS_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("ZS_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("ZS_PORT: %w", err)
	}

	// ZS_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("ZS_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("ZS_LOG_LEVEL: %w", err)
	}

	// ZS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ZS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ZS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("ZS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ZS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("ZS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ZS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("ZS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ZS_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("ZS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ZS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// ZS_DB_HOST — хост PostgreSQL (обязательная)
	cfg.DBHost, err = getEnvRequired("ZS_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("ZS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("ZS_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("ZS_DB_NAME", "zipstore")
	cfg.DBUser = getEnvDefault("ZS_DB_USER", "zipstore")
	// ZS_DB_PASSWORD — пароль PostgreSQL (обязательная)
	cfg.DBPassword, err = getEnvRequired("ZS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("ZS_DB_SSL_MODE", "disable")

	// --- Объектное хранилище ---

	// ZS_DATA_DIR — корневая директория blobstore
	cfg.DataDir = getEnvDefault("ZS_DATA_DIR", "/var/lib/zipstore/data")

	// --- Политика распаковки ---

	// ZS_MAX_ENTRY_SIZE — лимит размера одной записи (по умолчанию 50 MiB)
	cfg.MaxEntrySize, err = getEnvInt64("ZS_MAX_ENTRY_SIZE", 50*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("ZS_MAX_ENTRY_SIZE: %w", err)
	}
	if cfg.MaxEntrySize <= 0 {
		return nil, fmt.Errorf("ZS_MAX_ENTRY_SIZE: значение должно быть > 0")
	}

	// ZS_MAX_ARCHIVE_SIZE — лимит тела запроса загрузки (по умолчанию 200 MiB)
	cfg.MaxArchiveSize, err = getEnvInt64("ZS_MAX_ARCHIVE_SIZE", 200*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("ZS_MAX_ARCHIVE_SIZE: %w", err)
	}
	if cfg.MaxArchiveSize <= 0 {
		return nil, fmt.Errorf("ZS_MAX_ARCHIVE_SIZE: значение должно быть > 0")
	}

	// ZS_UPLOAD_CONCURRENCY — параллелизм per-entry загрузок (по умолчанию 4)
	cfg.UploadConcurrency, err = getEnvInt("ZS_UPLOAD_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("ZS_UPLOAD_CONCURRENCY: %w", err)
	}
	if cfg.UploadConcurrency < 1 {
		return nil, fmt.Errorf("ZS_UPLOAD_CONCURRENCY: значение должно быть >= 1")
	}

	// --- Кэш метаданных ---

	cfg.CacheSize, err = getEnvInt("ZS_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("ZS_CACHE_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("ZS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ZS_CACHE_TTL: %w", err)
	}

	// --- Dephealth ---

	cfg.DephealthEnabled, err = getEnvBool("ZS_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("ZS_DEPHEALTH_ENABLED: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("ZS_DEPHEALTH_GROUP", "zipstore")
	cfg.DephealthCheckInterval, err = getEnvDuration("ZS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ZS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("ZS_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("ZS_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения (для golang-migrate и dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64-значение переменной окружения или значение по умолчанию.
// Используется для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
