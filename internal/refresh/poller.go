package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/lexchat/internal/cache"
	"go.uber.org/zap"
)

// Poller periodically marks the conversation list and the visible thread
// stale, then asks the caller to re-read them.
type Poller struct {
	cache    *cache.Cache
	interval time.Duration
	visible  func() int64
	onTick   func(ctx context.Context)
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller. visible returns the conversation on screen,
// or 0; onTick re-reads whatever is displayed. A non-positive interval
// disables polling.
func NewPoller(c *cache.Cache, interval time.Duration, visible func() int64, onTick func(ctx context.Context), logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cache:    c,
		interval: interval,
		visible:  visible,
		onTick:   onTick,
		logger:   logger,
	}
}

// Start begins polling until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Info("polling disabled")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop stops the loop and waits for an in-progress tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one refresh immediately.
func (p *Poller) Tick(ctx context.Context) {
	tags := []cache.Tag{cache.ConversationListTag()}
	if p.visible != nil {
		if id := p.visible(); id != 0 {
			tags = append(tags, cache.MessagesTag(id))
		}
	}
	p.cache.Invalidate(tags...)
	if p.onTick != nil {
		p.onTick(ctx)
	}
}
