package freeds

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// State is the supervisor state, exposed for diagnostics.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateActive
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateActive:
		return "active"
	case StateBackoff:
		return "backoff"
	default:
		return "idle"
	}
}

// Update is what consumers receive: a fresh snapshot, or the unavailable
// signal (Available false, nil Snapshot, Err set).
type Update struct {
	Snapshot  Snapshot
	Available bool
	Err       error
}

// Consumer is called from the acquisition goroutine, or from the websocket
// grace timer. Calls never overlap and follow the order of the state changes.
// It must not block and must not mutate the snapshot.
type Consumer func(Update)

type consumerEntry struct {
	id uint64
	fn Consumer
}

// Client is the acquisition supervisor for one device. The acquisition loop
// runs only while at least one consumer is registered.
type Client struct {
	device Device
	opts   *options
	logger *zap.Logger

	httpClient   *http.Client
	streamClient *http.Client
	dialer       *websocket.Dialer
	prober       *Prober

	ctx    context.Context
	cancel context.CancelFunc

	// deliverMu is held across a state change and its notification so
	// consumers see updates in the order the state changed.
	deliverMu sync.Mutex

	mu            sync.Mutex
	consumers     []consumerEntry
	nextID        uint64
	running       bool
	sessionCancel context.CancelFunc
	state         State
	mode          Mode
	info          DeviceInfo
	retries       int
	lastErr       error
	latest        Snapshot
	available     bool
	graceGen      uint64
	graceTimer    *time.Timer
}

func NewClient(device Device, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With(zap.String("freeds", device.Identity()))
	httpClient := &http.Client{Timeout: o.requestTimeout}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		device:       device,
		opts:         o,
		logger:       logger,
		httpClient:   httpClient,
		streamClient: &http.Client{Transport: newStreamTransport(o.requestTimeout, o.streamReadTimeout)},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: o.requestTimeout,
		},
		prober:  NewProber(device, httpClient, logger),
		ctx:     ctx,
		cancel:  cancel,
		mode:    o.mode,
		retries: 1,
	}
}

func (c *Client) Device() Device {
	return c.device
}

// RegisterConsumer adds a consumer and starts the acquisition loop if it is
// not running. The returned func unregisters the consumer, it is safe to call
// more than once. Unregistering the last consumer stops the loop.
func (c *Client) RegisterConsumer(fn Consumer) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.consumers = append(c.consumers, consumerEntry{id: id, fn: fn})
	start := !c.running && c.ctx.Err() == nil
	if start {
		c.running = true
	}
	c.mu.Unlock()

	if start {
		c.logger.Info("starting acquisition loop")
		go c.run()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.unregister(id)
		})
	}
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = lo.Reject(c.consumers, func(e consumerEntry, _ int) bool {
		return e.id == id
	})
	if len(c.consumers) == 0 && c.sessionCancel != nil {
		c.sessionCancel()
	}
}

// Probe detects the device protocol unless it is already known. The first
// successful result is kept for the life of the client.
func (c *Client) Probe(ctx context.Context) (ProbeResult, error) {
	c.mu.Lock()
	if c.mode != ModeUnknown {
		result := ProbeResult{Mode: c.mode, Info: c.info}
		c.mu.Unlock()
		return result, nil
	}
	c.mu.Unlock()

	result, err := c.prober.Probe(ctx)
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	if c.mode == ModeUnknown {
		c.mode = result.Mode
		c.info = result.Info
	}
	result = ProbeResult{Mode: c.mode, Info: c.info}
	c.mu.Unlock()

	c.logger.Info("protocol detected", zap.Stringer("mode", result.Mode),
		zap.String("version", result.Info.Version), zap.String("title", result.Info.Title))
	return result, nil
}

// ResetMode forgets the detected protocol, the next session probes again.
func (c *Client) ResetMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = c.opts.mode
	c.info = DeviceInfo{}
}

// Close stops the acquisition loop for good.
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	if c.sessionCancel != nil {
		c.sessionCancel()
	}
	c.stopGraceLocked()
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
}

func (c *Client) LatestSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Available reports whether the last refresh succeeded.
func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Client) DeviceInfo() DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

func (c *Client) ConsumerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.consumers)
}

func (c *Client) run() {
	for {
		ctx, ok := c.nextSession()
		if !ok {
			c.logger.Info("acquisition loop stopped, no consumers left")
			return
		}

		err := c.session(ctx)
		if err == nil || ctx.Err() != nil {
			// consumers gone or client closed, nextSession decides
			continue
		}

		delay := c.fail(err)
		c.setState(StateBackoff)
		c.logger.Info("reconnecting", zap.Duration("backoff", delay), zap.Error(err))
		sleep(ctx, delay)
	}
}

// nextSession returns the context of the next session, or false when the loop
// has to exit. The running flag is cleared under the same lock that checks
// the consumers so a concurrent registration either sees the loop alive or
// starts a new one.
func (c *Client) nextSession() (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	if len(c.consumers) == 0 || c.ctx.Err() != nil {
		c.running = false
		c.state = StateIdle
		c.stopGraceLocked()
		return nil, false
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.sessionCancel = cancel
	return ctx, true
}

func (c *Client) session(ctx context.Context) error {
	mode := c.Mode()
	if mode == ModeUnknown {
		c.setState(StateProbing)
		result, err := c.Probe(ctx)
		if err != nil {
			return err
		}
		mode = result.Mode
	}

	reader := newReader(mode, readerDeps{
		device: c.device,
		opts:   c.opts,
		http:   c.httpClient,
		stream: c.streamClient,
		dialer: c.dialer,
		logger: c.logger,
	})
	c.setState(StateActive)
	return reader.Run(ctx, c.emit, func() bool {
		return ctx.Err() == nil && c.ConsumerCount() > 0
	})
}

func (c *Client) emit(snapshot Snapshot) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.latest = snapshot
	c.available = true
	c.retries = 1
	c.lastErr = nil
	c.stopGraceLocked()
	consumers := c.consumerFuncsLocked()
	c.mu.Unlock()

	notify(consumers, Update{Snapshot: snapshot, Available: true})
}

// fail records a failed attempt and returns the backoff delay. Availability
// only drops on the second consecutive failure, or in websocket mode once the
// disconnect grace period runs out.
func (c *Client) fail(err error) time.Duration {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	retries := c.retries
	c.retries++
	c.lastErr = err
	mode := c.mode

	signal := false
	if mode == ModeWebSocket && c.opts.disconnectGrace > 0 {
		if c.available {
			c.armGraceLocked()
		}
	} else if retries > 1 {
		c.markUnavailableLocked(err)
		signal = true
	}
	consumers := c.consumerFuncsLocked()
	c.mu.Unlock()

	if signal {
		c.logger.Warn("device unavailable", zap.Int("failures", retries), zap.Error(err))
		notify(consumers, Update{Err: err})
	}

	unit := c.opts.backoffUnit
	if mode == ModePolledJSON {
		unit = c.opts.pollBackoffUnit
	}
	// no ceiling: a long outage keeps stretching the wait
	return unit * time.Duration(retries)
}

func (c *Client) armGraceLocked() {
	if c.graceTimer != nil {
		return
	}
	c.graceGen++
	gen := c.graceGen
	c.graceTimer = time.AfterFunc(c.opts.disconnectGrace, func() {
		c.graceExpired(gen)
	})
}

// graceExpired runs on the timer goroutine. The generation check happens
// under deliverMu, an emit that won the race has already bumped it.
func (c *Client) graceExpired(gen uint64) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if gen != c.graceGen || c.graceTimer == nil || !c.available {
		c.mu.Unlock()
		return
	}
	c.graceTimer = nil
	err := c.lastErr
	c.markUnavailableLocked(err)
	consumers := c.consumerFuncsLocked()
	c.mu.Unlock()

	c.logger.Warn("device unavailable, still disconnected after grace period", zap.Error(err))
	notify(consumers, Update{Err: err})
}

func (c *Client) stopGraceLocked() {
	c.graceGen++
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Client) markUnavailableLocked(err error) {
	c.latest = nil
	c.available = false
	c.lastErr = err
}

func (c *Client) consumerFuncsLocked() []Consumer {
	return lo.Map(c.consumers, func(e consumerEntry, _ int) Consumer {
		return e.fn
	})
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func notify(consumers []Consumer, update Update) {
	for _, fn := range consumers {
		fn(update)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
