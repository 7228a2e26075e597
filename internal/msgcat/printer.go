package msgcat

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Printer writes rendered operator notices to a console stream and mirrors
// them to the logger.
type Printer struct {
	mu     sync.Mutex
	cat    *Catalog
	out    io.Writer
	logger *zap.Logger
}

func NewPrinter(cat *Catalog, out io.Writer, logger *zap.Logger) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Printer{cat: cat, out: out, logger: logger}
}

// Notify renders key with data. A missing template falls back to the key.
func (p *Printer) Notify(key string, data map[string]any) {
	text, err := p.cat.Render(key, data)
	if err != nil {
		p.logger.Warn("message_render_failed", zap.String("key", key), zap.Error(err))
		text = key
	}
	p.mu.Lock()
	_, _ = fmt.Fprintln(p.out, text)
	p.mu.Unlock()
	p.logger.Info("notice", zap.String("key", key), zap.String("text", text))
}
