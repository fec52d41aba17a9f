package services

import (
	"fmt"
	"time"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// Форматы строк даты и времени для показа, в локальной зоне зрителя.
const (
	displayDateLayout = "January 2, 2006"
	displayTimeLayout = "3:04 PM"
)

// Option — функциональная опция для настройки RecordEnrichmentService.
type Option func(*RecordEnrichmentService)

// WithRepairer устанавливает сервис починки кодировки. Nil отключает
// починку — для демо-данных, которые уже закодированы корректно.
func WithRepairer(r ports.Repairer) Option {
	return func(s *RecordEnrichmentService) {
		s.repairer = r
	}
}

// WithLocation устанавливает временную зону для строк даты и времени.
func WithLocation(loc *time.Location) Option {
	return func(s *RecordEnrichmentService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// RecordEnrichmentService реализует интерфейс EnrichmentService: дополняет
// сырое сообщение идентификатором, починенными текстовыми полями и
// строками даты и времени. Сервис не хранит состояние и безопасен для
// одновременного использования.
type RecordEnrichmentService struct {
	repairer ports.Repairer
	location *time.Location
}

// NewRecordEnrichmentService создает новый RecordEnrichmentService.
// По умолчанию используется локальная временная зона и включена починка
// кодировки.
func NewRecordEnrichmentService(opts ...Option) *RecordEnrichmentService {
	s := &RecordEnrichmentService{
		repairer: NewEncodingRepairService(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.EnrichmentService = (*RecordEnrichmentService)(nil)

// Enrich строит обогащённое сообщение из сырого. Идентификатор —
// "{sourceFileID}_{index}", где index — позиция сообщения внутри
// исходного файла.
func (s *RecordEnrichmentService) Enrich(msg domain.RawMessage, index int, sourceFileID string) domain.EnrichedMessage {
	enriched := domain.EnrichedMessage{
		RawMessage: msg,
		ID:         fmt.Sprintf("%s_%d", sourceFileID, index),
	}

	enriched.SenderName = s.repair(msg.SenderName)
	if msg.Content != "" {
		enriched.Content = s.repair(msg.Content)
	}

	if len(msg.Reactions) > 0 {
		reactions := make([]domain.Reaction, len(msg.Reactions))
		for i, r := range msg.Reactions {
			reactions[i] = domain.Reaction{
				Reaction: s.repair(r.Reaction),
				Actor:    s.repair(r.Actor),
			}
		}
		enriched.Reactions = reactions
	}

	if msg.Share != nil {
		enriched.Share = &domain.Share{
			Link:      msg.Share.Link,
			ShareText: s.repair(msg.Share.ShareText),
		}
	}

	// Пути вложений показываются без служебных сегментов экспорта.
	enriched.Photos = cleanAttachments(msg.Photos)
	enriched.Videos = cleanAttachments(msg.Videos)
	enriched.AudioFiles = cleanAttachments(msg.AudioFiles)
	enriched.Files = cleanAttachments(msg.Files)
	enriched.Gifs = cleanAttachments(msg.Gifs)

	ts := time.UnixMilli(msg.TimestampMS).In(s.location)
	enriched.DisplayDate = ts.Format(displayDateLayout)
	enriched.DisplayTime = ts.Format(displayTimeLayout)

	return enriched
}

func (s *RecordEnrichmentService) repair(text string) string {
	if s.repairer == nil {
		return text
	}
	repaired, _ := s.repairer.Repair(text)
	return repaired
}

// cleanAttachments возвращает копию списка вложений с очищенными
// путями. Пустой список возвращается как есть.
func cleanAttachments(list []domain.Attachment) []domain.Attachment {
	if len(list) == 0 {
		return list
	}
	out := make([]domain.Attachment, len(list))
	for i, a := range list {
		out[i] = a
		out[i].URI = CleanAttachmentPath(a.URI)
	}
	return out
}
