// Пакет model — доменные модели zipstore.
// FileRecord — запись артефакта в реестре file_registry.
// ArchiveEntry и IngestionReport — эфемерные структуры конвейера распаковки.
package model

import "time"

// FileRecord — метаданные одного сохранённого артефакта.
// Канонической копией владеет репозиторий (PostgreSQL), байтами —
// объектное хранилище по пути StoragePath.
type FileRecord struct {
	// FileID — UUID записи, присваивается репозиторием при вставке
	FileID string
	// OriginalFilename — имя файла внутри архива (без директорий)
	OriginalFilename string
	// ContentType — MIME-тип, определённый классификатором по расширению
	ContentType string
	// Size — размер файла в байтах
	Size int64
	// StoragePath — локатор в объектном хранилище (archives/{label}/{name})
	StoragePath string
	// ParentArchive — метка родительского архива (имя без расширения)
	ParentArchive string
	// DownloadToken — секретный токен скачивания. Единственный credential
	// для получения файла, генерируется один раз при вставке.
	// Никогда не попадает в списки и статистику.
	DownloadToken string
	// UploadedAt — время вставки записи (назначается репозиторием)
	UploadedAt time.Time
	// DownloadCount — счётчик успешных скачиваний
	DownloadCount int64
	// LastDownloaded — время последнего успешного скачивания (nil до первого)
	LastDownloaded *time.Time
}

// ArchiveEntry — один допущенный к сохранению файл из архива.
// Живёт только внутри одной операции ingestion.
type ArchiveEntry struct {
	// Name — плоское имя файла (компоненты директорий отброшены,
	// коллизии внутри архива разрешены числовым суффиксом)
	Name string
	// Payload — содержимое файла
	Payload []byte
	// Size — длина Payload в байтах
	Size int64
	// ContentType — MIME-тип по расширению
	ContentType string
}

// IngestionReport — результат распаковки одного архива.
// Создаётся экстрактором, потребляется координатором ingestion.
type IngestionReport struct {
	// ParentArchive — метка архива (оригинальное имя без расширения)
	ParentArchive string
	// Files — допущенные записи в порядке перечисления архива
	Files []ArchiveEntry
	// SkippedFiles — имена записей, превысивших лимит размера
	SkippedFiles []string
	// TotalFiles — количество допущенных записей
	TotalFiles int
	// TotalSize — суммарный размер допущенных записей в байтах
	TotalSize int64
}
