package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// Poller re-fetches the first page of the watched conversation on a fixed
// interval so new inbound messages surface without a push channel. At most
// one conversation is watched at a time.
type Poller struct {
	engine   *Engine
	interval time.Duration
	logger   *zap.Logger

	mu       gosync.Mutex
	cancel   context.CancelFunc
	watching string
}

func NewPoller(engine *Engine, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{engine: engine, interval: interval, logger: logger}
}

// Watch starts polling conversationID, replacing any previous watch.
func (p *Poller) Watch(ctx context.Context, conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.watching = conversationID

	go p.loop(ctx, conversationID)
}

// Stop cancels the active watch, if any.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.watching = ""
	}
}

// Watching returns the id of the conversation currently being polled.
func (p *Poller) Watching() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watching
}

func (p *Poller) loop(ctx context.Context, conversationID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p.engine.monitor.Offline() {
				continue
			}
			if _, err := p.engine.LoadMessages(ctx, conversationID, 1); err != nil {
				p.logger.Debug("poll failed",
					zap.String("conversation_id", conversationID), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
