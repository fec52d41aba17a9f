package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/source"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// defaultOpener читает файл с диска по частям размера по умолчанию.
func defaultOpener(file domain.ArchiveFile) ports.DataSource {
	return source.NewChunkSource(file.AbsolutePath, source.DefaultChunkSize)
}

// SourceOpener создает источник данных для одного файла архива.
// Абстракция позволяет тестам подменять чтение с диска чтением из памяти.
type SourceOpener func(file domain.ArchiveFile) ports.DataSource

// AggregationOption — функциональная опция для настройки MessageAggregationService.
type AggregationOption func(*MessageAggregationService)

// WithSourceOpener устанавливает фабрику источников данных.
func WithSourceOpener(open SourceOpener) AggregationOption {
	return func(s *MessageAggregationService) {
		if open != nil {
			s.open = open
		}
	}
}

// WithAggregationLogger устанавливает логгер для сервиса.
func WithAggregationLogger(l *slog.Logger) AggregationOption {
	return func(s *MessageAggregationService) {
		if l != nil {
			s.log = l
		}
	}
}

// MessageAggregationService реализует интерфейс AggregationService:
// объединяет сообщения всех файлов архива в одну коллекцию,
// упорядоченную по отметке времени.
type MessageAggregationService struct {
	parser   ports.Parser
	enricher ports.EnrichmentService
	open     SourceOpener
	log      *slog.Logger
}

// NewMessageAggregationService создает новый MessageAggregationService.
func NewMessageAggregationService(parser ports.Parser, enricher ports.EnrichmentService, opts ...AggregationOption) *MessageAggregationService {
	s := &MessageAggregationService{
		parser:   parser,
		enricher: enricher,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.AggregationService = (*MessageAggregationService)(nil)

// Aggregate обрабатывает файлы сообщений строго в переданном порядке
// (проверка папки уже отсортировала их по числовому суффиксу).
// Файл, который не удалось прочитать или разобрать, логируется и
// пропускается: один плохой файл не прерывает загрузку всего архива.
// После каждого файла вызывается onProgress, чтобы вызывающая сторона
// могла показывать прогресс без опроса. Итоговая коллекция стабильно
// отсортирована по возрастанию отметки времени: при равных отметках
// сохраняется порядок файл-затем-позиция-в-файле.
func (s *MessageAggregationService) Aggregate(ctx context.Context, files []domain.ArchiveFile, onProgress ports.ProgressFunc) ([]domain.EnrichedMessage, error) {
	var collection []domain.EnrichedMessage
	total := len(files)

	for fileIndex, file := range files {
		// Отмена проверяется на границе каждого файла; источник данных
		// дополнительно проверяет её между чтениями частей.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregation cancelled: %w", err)
		}

		sourceFileID := sourceFileID(file, fileIndex)

		data, err := s.openSource(file).Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("aggregation cancelled: %w", ctx.Err())
			}
			s.log.Warn("skipping unreadable message file", "path", file.RelativePath, "error", err)
			s.reportProgress(onProgress, fileIndex+1, total)
			continue
		}

		parsed, err := s.parser.Parse(data)
		if err != nil {
			s.log.Warn("skipping unparsable message file", "path", file.RelativePath, "error", err)
			s.reportProgress(onProgress, fileIndex+1, total)
			continue
		}

		if parsed.Messages == nil {
			s.log.Warn("skipping message file without messages array", "path", file.RelativePath)
			s.reportProgress(onProgress, fileIndex+1, total)
			continue
		}

		for msgIndex, raw := range parsed.Messages {
			if !raw.HasTimestamp() {
				s.log.Debug("dropping message without timestamp", "path", file.RelativePath, "index", msgIndex)
				continue
			}
			collection = append(collection, s.enricher.Enrich(raw, msgIndex, sourceFileID))
		}

		s.log.Info("processed message file", "path", file.RelativePath, "message_count", len(parsed.Messages))
		s.reportProgress(onProgress, fileIndex+1, total)
	}

	sort.SliceStable(collection, func(i, j int) bool {
		return collection[i].TimestampMS < collection[j].TimestampMS
	})

	s.log.Info("aggregation finished", "files", total, "message_count", len(collection))
	return collection, nil
}

func (s *MessageAggregationService) openSource(file domain.ArchiveFile) ports.DataSource {
	if s.open != nil {
		return s.open(file)
	}
	return defaultOpener(file)
}

func (s *MessageAggregationService) reportProgress(onProgress ports.ProgressFunc, processed, total int) {
	if onProgress != nil {
		onProgress(processed, total)
	}
}

// sourceFileID строит идентификатор исходного файла для синтетических
// идентификаторов сообщений: имя файла без расширения плюс позиция
// файла в отсортированном списке. Позиция гарантирует уникальность,
// даже если два файла с одинаковым именем лежат в разных подпапках.
func sourceFileID(file domain.ArchiveFile, fileIndex int) string {
	base := path.Base(file.RelativePath)
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return fmt.Sprintf("%s_%d", base, fileIndex)
}
