package ports

import (
	"context"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

// DataSource определяет интерфейс для получения байтов одного файла.
type DataSource interface {
	// Fetch загружает данные из источника. Реализации, читающие
	// по частям, проверяют ctx между чтениями и прерывают загрузку
	// при отмене.
	Fetch(ctx context.Context) ([]byte, error)
}

// Parser определяет интерфейс для разбора одного файла сообщений.
type Parser interface {
	// Parse преобразует сырые байты в структурированный файл сообщений.
	Parse(data []byte) (*domain.MessageFile, error)
}

// Repairer определяет интерфейс для починки текстовой кодировки.
type Repairer interface {
	// Repair возвращает исправленный текст и признак того, что текст
	// действительно изменился. Для корректного текста возвращается
	// вход без изменений и false.
	Repair(s string) (string, bool)
}

// EnrichmentService определяет интерфейс для обогащения одного сообщения.
type EnrichmentService interface {
	Enrich(msg domain.RawMessage, index int, sourceFileID string) domain.EnrichedMessage
}

// ProgressFunc вызывается агрегатором после обработки каждого файла.
type ProgressFunc func(processed, total int)

// AggregationService определяет интерфейс для сборки единой коллекции
// сообщений из набора файлов архива.
type AggregationService interface {
	Aggregate(ctx context.Context, files []domain.ArchiveFile, onProgress ProgressFunc) ([]domain.EnrichedMessage, error)
}

// ValidationService определяет интерфейс для проверки выбранной папки.
type ValidationService interface {
	ValidateFolder(files []domain.ArchiveFile) (*domain.ValidatedFolder, error)
	BuildFolderStructure(files []domain.ArchiveFile) domain.FolderStructure
}

// ExtractionService определяет интерфейс для извлечения списка
// участников из агрегированной коллекции.
type ExtractionService interface {
	ExtractParticipants(messages []domain.EnrichedMessage) []string
}

// Exporter определяет интерфейс для вывода списка сообщений.
type Exporter interface {
	Export(messages []domain.EnrichedMessage) error
}
