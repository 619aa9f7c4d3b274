package pkg

import (
	"io"
	"log/slog"
)

// NewLogger создаёт JSON-логгер сервиса уведомлений. Атрибут service
// позволяет отличать его записи в общем потоке логов хост-системы.
func NewLogger(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, nil)
	return slog.New(handler).With("service", "forum-notify")
}
