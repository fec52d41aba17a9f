package exporter

import (
	"log/slog"

	"github.com/atotto/clipboard"
)

// ClipboardExporter копирует текст сообщения в системный буфер обмена.
type ClipboardExporter struct{}

// NewClipboardExporter создает новый экземпляр ClipboardExporter.
func NewClipboardExporter() *ClipboardExporter {
	return &ClipboardExporter{}
}

// CopyText копирует текст в буфер обмена. Неудача не считается ошибкой
// уровня приложения и возвращается как false: вызывающая сторона сама
// решает, показывать ли мягкое уведомление.
func (e *ClipboardExporter) CopyText(text string) bool {
	if err := clipboard.WriteAll(text); err != nil {
		slog.Debug("clipboard copy failed", "error", err)
		return false
	}
	return true
}
