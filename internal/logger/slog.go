package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// Slog exposes l to code that logs through log/slog, such as the client SDK.
// Records keep l's level, encoder and output.
func Slog(l *zap.Logger) *slog.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return slog.New(zapslog.NewHandler(l.Core()))
}
