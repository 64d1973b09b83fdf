package freeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsReader consumes the /jsonWeb push socket, every message is already a
// category keyed snapshot.
type wsReader struct {
	deps readerDeps
}

func (r *wsReader) Mode() Mode {
	return ModeWebSocket
}

func (r *wsReader) Run(ctx context.Context, emit func(Snapshot), keepRunning func() bool) error {
	conn, resp, err := r.deps.dialer.DialContext(ctx, r.deps.device.url("ws", pathWS, nil), r.deps.device.authHeader())
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrReadFailure, unexpectedStatus(pathWS, resp.StatusCode))
		}
		return fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	defer conn.Close()

	// unblock ReadMessage when the session is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	r.deps.logger.Debug("websocket: connected", zap.String("device", r.deps.device.Identity()))

	for keepRunning() {
		if err := conn.SetReadDeadline(time.Now().Add(r.deps.opts.wsReadTimeout)); err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		snapshot, err := decodeSnapshot(data)
		if err != nil {
			r.deps.logger.Debug("websocket: dropping malformed message", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		emit(snapshot)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}
