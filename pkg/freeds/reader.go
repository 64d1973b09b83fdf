package freeds

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxDocumentSize = 64 * 1024
	sseChunkSize    = 2048
)

// Reader runs one acquisition session in a given mode. Run returns nil once
// keepRunning reports false, or an error wrapping ErrReadFailure when the
// session broke and the supervisor should back off and retry.
type Reader interface {
	Mode() Mode
	Run(ctx context.Context, emit func(Snapshot), keepRunning func() bool) error
}

type readerDeps struct {
	device Device
	opts   *options
	http   *http.Client
	stream *http.Client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// newReader is the strategy selection, done once per session from the cached mode.
func newReader(mode Mode, deps readerDeps) Reader {
	switch mode {
	case ModePolledJSON:
		return &polledReader{deps: deps}
	case ModeSSE:
		return &sseReader{deps: deps}
	case ModeWebSocket:
		return &wsReader{deps: deps}
	}
	return nil
}
