package parser

import (
	"encoding/json"
	"fmt"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// JSONParser реализует интерфейс Parser для разбора файла сообщений.
type JSONParser struct{}

// NewJSONParser создает новый экземпляр JSONParser.
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

var _ ports.Parser = (*JSONParser)(nil)

// Parse преобразует срез байт с JSON в структуру MessageFile.
// Наличие массива messages проверяет агрегатор, а не парсер: файл без
// него синтаксически корректен, но не пригоден для загрузки.
func (p *JSONParser) Parse(data []byte) (*domain.MessageFile, error) {
	var file domain.MessageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return &file, nil
}
