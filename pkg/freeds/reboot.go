package freeds

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRebootCooldown     = 90 * time.Second
	DefaultRebootPollInterval = time.Second
)

// RebootTarget is the part of the client the reboot flow needs.
type RebootTarget interface {
	Reboot(ctx context.Context) error
	Available() bool
}

// RebootGuard debounces reboot presses. While a reboot is outstanding further
// presses are ignored. The outstanding flag clears once the device is seen
// going offline and coming back, or when the cooldown runs out, whichever
// comes first.
type RebootGuard struct {
	target       RebootTarget
	cooldown     time.Duration
	pollInterval time.Duration
	logger       *zap.Logger

	mu      sync.Mutex
	pending bool
	gen     uint64
	cancel  context.CancelFunc
}

func NewRebootGuard(target RebootTarget, cooldown, pollInterval time.Duration, logger *zap.Logger) *RebootGuard {
	if cooldown <= 0 {
		cooldown = DefaultRebootCooldown
	}
	if pollInterval <= 0 {
		pollInterval = DefaultRebootPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebootGuard{
		target:       target,
		cooldown:     cooldown,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Press sends the reboot request unless one is already outstanding, in which
// case it returns false without touching the device.
func (g *RebootGuard) Press(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.pending {
		g.mu.Unlock()
		g.logger.Info("reboot already in progress, ignoring press")
		return false, nil
	}
	g.pending = true
	g.gen++
	gen := g.gen
	g.mu.Unlock()

	if err := g.target.Reboot(ctx); err != nil {
		g.clear(gen)
		return false, err
	}
	g.logger.Info("reboot requested")

	watchCtx, cancel := context.WithTimeout(context.Background(), g.cooldown)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	go g.watch(watchCtx, gen)
	return true, nil
}

func (g *RebootGuard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Close drops any outstanding reboot watch.
func (g *RebootGuard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *RebootGuard) watch(ctx context.Context, gen uint64) {
	defer g.clear(gen)

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	wentOffline := false
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("reboot cooldown elapsed, re-arming", zap.Bool("offline_seen", wentOffline))
			return
		case <-ticker.C:
			if !g.target.Available() {
				wentOffline = true
			} else if wentOffline {
				g.logger.Info("device back online after reboot")
				return
			}
		}
	}
}

func (g *RebootGuard) clear(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return
	}
	g.pending = false
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}
