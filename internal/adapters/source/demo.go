package source

import (
	"context"
	"embed"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

//go:embed demodata/message_1.json
var demoFS embed.FS

// DemoChatFolder — имя беседы встроенного демо-архива.
const DemoChatFolder = "demo_conversation"

// DemoSource реализует интерфейс DataSource для встроенного демо-архива.
// Демо-данные уже закодированы корректно, поэтому обогащение для них
// выполняется без починки кодировки.
type DemoSource struct{}

// NewDemoSource создает новый экземпляр DemoSource.
func NewDemoSource() *DemoSource {
	return &DemoSource{}
}

var _ ports.DataSource = (*DemoSource)(nil)

// Fetch возвращает встроенный демо-файл сообщений.
func (s *DemoSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return demoFS.ReadFile("demodata/message_1.json")
}
