// Package zap adapts a *zap.Logger to assetram.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/assetram"
)

var _ assetram.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "assetram" so cache notices are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("assetram")} }

func (z ZapLogger) Debug(msg string, f assetram.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f assetram.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f assetram.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f assetram.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f assetram.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
