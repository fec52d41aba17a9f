package exporter

import (
	"fmt"
	"io"
	"os"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода сообщений в консоль.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{out: os.Stdout}
}

var _ ports.Exporter = (*ConsoleExporter)(nil)

// Export выводит список сообщений в консоль.
func (e *ConsoleExporter) Export(messages []domain.EnrichedMessage) error {
	fmt.Fprintln(e.out, "--- Messages ---")
	if len(messages) == 0 {
		fmt.Fprintln(e.out, "No messages found.")
		return nil
	}

	for i, msg := range messages {
		content := msg.Content
		switch {
		case msg.IsUnsent:
			content = "(unsent)"
		case content == "" && msg.Share != nil:
			content = fmt.Sprintf("(shared link: %s)", msg.Share.Link)
		case content == "" && msg.CallDuration > 0:
			content = fmt.Sprintf("(call, %d seconds)", msg.CallDuration)
		case content == "":
			content = fmt.Sprintf("(%d attachments)", len(msg.Photos)+len(msg.Videos)+len(msg.AudioFiles)+len(msg.Files)+len(msg.Gifs))
		}
		fmt.Fprintf(e.out, "%d. [%s %s] %s: %s\n", i+1, msg.DisplayDate, msg.DisplayTime, msg.SenderName, content)
	}
	return nil
}
