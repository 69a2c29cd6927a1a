package alloc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuapare/memkit/internal/logger"
)

// Logging writes one structured record per operation and passes everything
// through unchanged. A nil *slog.Logger logs to the process-wide logger.L,
// resolved at call time so that logger.Init may run after construction.
type Logging struct {
	parent Allocator
	log    *slog.Logger
	level  slog.Level
}

// NewLogging wraps parent, logging at level.
func NewLogging(parent Allocator, log *slog.Logger, level slog.Level) *Logging {
	return &Logging{parent: parent, log: log, level: level}
}

func (l *Logging) sink() *slog.Logger {
	if l.log != nil {
		return l.log
	}
	return logger.L
}

func (l *Logging) emit(op string, err error, attrs ...slog.Attr) {
	lg := l.sink()
	if !lg.Enabled(context.Background(), l.level) {
		return
	}
	attrs = append(attrs, slog.String("op", op))
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	lg.LogAttrs(context.Background(), l.level, "alloc", attrs...)
}

func addrAttr(b []byte) slog.Attr {
	return slog.String("addr", fmt.Sprintf("%#x", Addr(b)))
}

// Alloc implements Allocator.
func (l *Logging) Alloc(n, align int) ([]byte, error) {
	b, err := l.parent.Alloc(n, align)
	if err != nil {
		l.emit("alloc", err, slog.Int("size", n), slog.Int("align", align))
		return nil, err
	}
	l.emit("alloc", nil, slog.Int("size", n), slog.Int("align", align), addrAttr(b))
	return b, nil
}

// Resize implements Allocator.
func (l *Logging) Resize(b []byte, n int) ([]byte, bool) {
	nb, ok := l.parent.Resize(b, n)
	l.emit("resize", nil, addrAttr(b), slog.Int("from", len(b)), slog.Int("size", n), slog.Bool("ok", ok))
	return nb, ok
}

// Remap implements Allocator.
func (l *Logging) Remap(b []byte, n int) ([]byte, error) {
	nb, err := l.parent.Remap(b, n)
	if err != nil {
		l.emit("remap", err, addrAttr(b), slog.Int("from", len(b)), slog.Int("size", n))
		return nil, err
	}
	l.emit("remap", nil, addrAttr(b), slog.Int("from", len(b)), slog.Int("size", n),
		slog.String("to", fmt.Sprintf("%#x", Addr(nb))))
	return nb, nil
}

// Free implements Allocator.
func (l *Logging) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	err := l.parent.Free(b)
	l.emit("free", err, addrAttr(b), slog.Int("size", len(b)))
	return err
}

var _ Allocator = (*Logging)(nil)
