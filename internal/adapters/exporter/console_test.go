package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
)

func TestConsoleExporter(t *testing.T) {
	export := func(t *testing.T, messages []domain.EnrichedMessage) string {
		t.Helper()
		var buf bytes.Buffer
		e := &ConsoleExporter{out: &buf}
		if err := e.Export(messages); err != nil {
			t.Fatalf("Export вернул ошибку: %v", err)
		}
		return buf.String()
	}

	t.Run("Пустая коллекция выводит заглушку", func(t *testing.T) {
		out := export(t, nil)
		if !strings.Contains(out, "No messages found.") {
			t.Errorf("Ожидалась заглушка, получено:\n%s", out)
		}
	})

	t.Run("Сообщение выводится с датой и отправителем", func(t *testing.T) {
		out := export(t, []domain.EnrichedMessage{
			{
				RawMessage:  domain.RawMessage{SenderName: "Alice", Content: "hello"},
				DisplayDate: "November 14, 2023",
				DisplayTime: "10:13 PM",
			},
		})
		if !strings.Contains(out, "[November 14, 2023 10:13 PM] Alice: hello") {
			t.Errorf("Неожиданный вывод:\n%s", out)
		}
	})

	t.Run("Отозванное сообщение помечается", func(t *testing.T) {
		out := export(t, []domain.EnrichedMessage{
			{RawMessage: domain.RawMessage{SenderName: "Bob", IsUnsent: true}},
		})
		if !strings.Contains(out, "(unsent)") {
			t.Errorf("Ожидалась пометка (unsent), получено:\n%s", out)
		}
	})

	t.Run("Ссылка в сообщении без текста", func(t *testing.T) {
		out := export(t, []domain.EnrichedMessage{
			{RawMessage: domain.RawMessage{SenderName: "Bob", Share: &domain.Share{Link: "https://example.com"}}},
		})
		if !strings.Contains(out, "https://example.com") {
			t.Errorf("Ожидалась ссылка, получено:\n%s", out)
		}
	})

	t.Run("Вложения без текста выводятся счетчиком", func(t *testing.T) {
		out := export(t, []domain.EnrichedMessage{
			{RawMessage: domain.RawMessage{
				SenderName: "Bob",
				Photos:     []domain.Attachment{{URI: "a.jpg"}, {URI: "b.jpg"}},
			}},
		})
		if !strings.Contains(out, "(2 attachments)") {
			t.Errorf("Ожидался счетчик вложений, получено:\n%s", out)
		}
	})
}
