// main.go — точка входа zipstore.
// Порядок инициализации: config → logger → миграции → PostgreSQL →
// blobstore → сервисы → dephealth → HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/zipstore/internal/api/handlers"
	"github.com/bigkaa/zipstore/internal/api/middleware"
	"github.com/bigkaa/zipstore/internal/archive"
	"github.com/bigkaa/zipstore/internal/config"
	"github.com/bigkaa/zipstore/internal/database"
	"github.com/bigkaa/zipstore/internal/repository"
	"github.com/bigkaa/zipstore/internal/server"
	"github.com/bigkaa/zipstore/internal/service"
	"github.com/bigkaa/zipstore/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("zipstore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// 3. Применение миграций схемы
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций", slog.String("error", err.Error()))
		log.Fatalf("Миграции не применены: %v", err)
	}

	// 4. Подключение к PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к базе", slog.String("error", err.Error()))
		log.Fatalf("PostgreSQL недоступен: %v", err)
	}
	defer pool.Close()

	// 5. Объектное хранилище на диске
	store, err := blobstore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Error("Ошибка инициализации blobstore", slog.String("error", err.Error()))
		log.Fatalf("Blobstore недоступен: %v", err)
	}

	// 6. Репозиторий, кэш и сервисы
	repo := repository.NewFileRepository(pool)
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	extractor := archive.NewExtractor(cfg.MaxEntrySize, logger)
	ingest := service.NewIngestService(extractor, store, repo, cfg.UploadConcurrency, logger)
	catalog := service.NewCatalogService(repo, logger)
	retrieval := service.NewRetrievalService(repo, store, cache, logger)

	// 7. Мониторинг зависимостей (опционально)
	if cfg.DephealthEnabled {
		// pgcheck работает через *sql.DB поверх существующего pgxpool
		sqlDB := stdlib.OpenDBFromPool(pool)
		dephealthSvc, err := service.NewDephealthService(
			"zipstore",
			cfg.DephealthGroup,
			sqlDB,
			cfg.DatabaseURL(),
			cfg.DephealthCheckInterval,
			cfg.DephealthIsEntry,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
			log.Fatalf("Dephealth не инициализирован: %v", err)
		}
		if err := dephealthSvc.Start(ctx); err != nil {
			logger.Error("Ошибка запуска dephealth", slog.String("error", err.Error()))
			log.Fatalf("Dephealth не запущен: %v", err)
		}
		defer dephealthSvc.Stop()
	}

	// 8. HTTP-обработчики
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(
		ingest, catalog, retrieval, healthHandler,
		cfg.MaxArchiveSize, logger,
	)

	// 9. HTTP-сервер с middleware логирования и метрик
	srv := server.New(cfg, logger, apiHandler,
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	)

	// 10. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("zipstore остановлен")
}
