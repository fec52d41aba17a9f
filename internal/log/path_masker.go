package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// PathMaskerHandler - обертка для slog.Handler, которая маскирует
// домашнюю директорию пользователя в логируемых путях. Сервис
// логирует пути к файлам архива, и без маскировки логи раскрывали бы
// имя учетной записи на машине зрителя.
type PathMaskerHandler struct {
	handler slog.Handler
	home    string
}

// NewPathMaskerHandler создает новый обработчик с маскировкой путей.
func NewPathMaskerHandler(handler slog.Handler) *PathMaskerHandler {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &PathMaskerHandler{
		handler: handler,
		home:    home,
	}
}

// maskPaths заменяет домашнюю директорию на маску.
func (h *PathMaskerHandler) maskPaths(text string) string {
	if h.home == "" || h.home == "/" {
		return text
	}
	return strings.ReplaceAll(text, h.home, "~")
}

// Enabled реализует интерфейс slog.Handler
func (h *PathMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *PathMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Создаем новую запись вместо изменения оригинальной: slog может
	// переиспользовать её после возврата из Handle.
	r := slog.NewRecord(record.Time, record.Level, h.maskPaths(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: h.maskAttributeValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *PathMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		maskedAttrs[i] = slog.Attr{
			Key:   attr.Key,
			Value: h.maskAttributeValue(attr.Value),
		}
	}
	return &PathMaskerHandler{
		handler: h.handler.WithAttrs(maskedAttrs),
		home:    h.home,
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *PathMaskerHandler) WithGroup(name string) slog.Handler {
	return &PathMaskerHandler{
		handler: h.handler.WithGroup(name),
		home:    h.home,
	}
}

// maskAttributeValue рекурсивно маскирует значения атрибутов
func (h *PathMaskerHandler) maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.maskPaths(value.String()))
	case slog.KindAny:
		// Ошибки часто несут пути внутри текста, поэтому они
		// преобразуются в строку и маскируются.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.maskPaths(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, attr := range group {
			maskedGroup[i] = slog.Attr{
				Key:   attr.Key,
				Value: h.maskAttributeValue(attr.Value),
			}
		}
		return slog.GroupValue(maskedGroup...)
	default:
		// Для других типов возвращаем оригинальное значение
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой путей
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewPathMaskerHandler(handler))
}
