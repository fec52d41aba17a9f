package services

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// EncodingRepairService реализует интерфейс Repairer.
//
// Экспорт пишет текст в UTF-8, но каждый его байт сохранён как отдельный
// символ Latin-1 ("mojibake"). Починка обращает это: каждый символ строки
// превращается обратно в байт, и если получившаяся последовательность —
// строго корректный UTF-8, она и есть исходный текст.
//
// Эвристика: текст, который случайно оказался корректным UTF-8 при такой
// интерпретации, будет "починен" ошибочно. Это осознанный компромисс.
type EncodingRepairService struct {
	encoder *charmap.Charmap
}

// NewEncodingRepairService создает новый экземпляр EncodingRepairService.
func NewEncodingRepairService() *EncodingRepairService {
	return &EncodingRepairService{encoder: charmap.ISO8859_1}
}

var _ ports.Repairer = (*EncodingRepairService)(nil)

// Repair возвращает исправленный текст и признак того, что текст изменился.
// Если хотя бы один символ не помещается в один байт или восстановленные
// байты не являются корректным UTF-8, вход возвращается без изменений.
func (s *EncodingRepairService) Repair(text string) (string, bool) {
	if text == "" {
		return text, false
	}

	// Кодирование в Latin-1 и есть "один символ — один байт": символы
	// выше U+00FF заканчиваются ошибкой, значит текст не был повреждён
	// по этому пути.
	raw, err := s.encoder.NewEncoder().String(text)
	if err != nil {
		return text, false
	}

	if !utf8.Valid([]byte(raw)) {
		return text, false
	}

	return raw, raw != text
}
