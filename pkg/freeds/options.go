package freeds

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout    = 10 * time.Second
	DefaultStreamReadTimeout = 3 * time.Second
	DefaultWSReadTimeout     = 9 * time.Second
	DefaultPollInterval      = 5 * time.Second
	DefaultBackoffUnit       = 10 * time.Second
	DefaultPollBackoffUnit   = 60 * time.Second
	DefaultDisconnectGrace   = 20 * time.Second
)

type options struct {
	logger            *zap.Logger
	mode              Mode
	requestTimeout    time.Duration
	streamReadTimeout time.Duration
	wsReadTimeout     time.Duration
	pollInterval      time.Duration
	backoffUnit       time.Duration
	pollBackoffUnit   time.Duration
	disconnectGrace   time.Duration
}

type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger:            zap.NewNop(),
		requestTimeout:    DefaultRequestTimeout,
		streamReadTimeout: DefaultStreamReadTimeout,
		wsReadTimeout:     DefaultWSReadTimeout,
		pollInterval:      DefaultPollInterval,
		backoffUnit:       DefaultBackoffUnit,
		pollBackoffUnit:   DefaultPollBackoffUnit,
		disconnectGrace:   DefaultDisconnectGrace,
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMode skips probing and pins the protocol.
func WithMode(mode Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithTimeouts sets the full request timeout and the per read timeouts of
// the event stream and the websocket.
func WithTimeouts(request, streamRead, wsRead time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = request
		o.streamReadTimeout = streamRead
		o.wsReadTimeout = wsRead
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
	}
}

// WithBackoffUnits sets the per retry sleep unit of the stream readers and of
// the polled reader.
func WithBackoffUnits(stream, polled time.Duration) Option {
	return func(o *options) {
		o.backoffUnit = stream
		o.pollBackoffUnit = polled
	}
}

func WithDisconnectGrace(grace time.Duration) Option {
	return func(o *options) {
		o.disconnectGrace = grace
	}
}
