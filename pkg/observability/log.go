package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log through l. A nil logger uses log.Default().
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l.WithPrefix("hooks")}
}

func (h *LogHooks) OnFetchStart(_ context.Context, ticker string) {
	h.logger.Debug("fetch start", "ticker", ticker)
}

func (h *LogHooks) OnFetchComplete(_ context.Context, ticker string, points int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("fetch failed", "ticker", ticker, "duration", d, "err", err)
		return
	}
	h.logger.Debug("fetch complete", "ticker", ticker, "points", points, "duration", d)
}

func (h *LogHooks) OnLayoutStart(_ context.Context, ticker string, points int) {
	h.logger.Debug("layout start", "ticker", ticker, "points", points)
}

func (h *LogHooks) OnLayoutComplete(_ context.Context, ticker string, markers int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("layout failed", "ticker", ticker, "err", err)
		return
	}
	h.logger.Debug("layout complete", "ticker", ticker, "markers", markers, "duration", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("render start", "formats", formats)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("render failed", "formats", formats, "err", err)
		return
	}
	h.logger.Debug("render complete", "formats", formats, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
