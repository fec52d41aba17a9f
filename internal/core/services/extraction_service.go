package services

import (
	"sort"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// ParticipantExtractionService реализует интерфейс ExtractionService.
type ParticipantExtractionService struct{}

// NewParticipantExtractionService создает новый экземпляр ParticipantExtractionService.
func NewParticipantExtractionService() *ParticipantExtractionService {
	return &ParticipantExtractionService{}
}

var _ ports.ExtractionService = (*ParticipantExtractionService)(nil)

// ExtractParticipants извлекает уникальные имена отправителей из
// агрегированной коллекции и возвращает их отсортированными.
func (s *ParticipantExtractionService) ExtractParticipants(messages []domain.EnrichedMessage) []string {
	// Мапа для отслеживания уникальных имён
	unique := make(map[string]bool)
	var participants []string

	for _, msg := range messages {
		name := msg.SenderName
		if name == "" {
			continue
		}
		if !unique[name] {
			unique[name] = true
			participants = append(participants, name)
		}
	}

	sort.Strings(participants)
	return participants
}
