package freeds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// sseMarker prefixes every data chunk of the /events stream. Anything else
// (uptime heartbeats, partial writes) is ignored.
var sseMarker = []byte("event: jsonweb\r\ndata:")

// sseReader consumes the pseudo event stream. The firmware writes one event
// per socket write without real framing, so one read is treated as one chunk.
type sseReader struct {
	deps readerDeps
}

func (r *sseReader) Mode() Mode {
	return ModeSSE
}

func (r *sseReader) Run(ctx context.Context, emit func(Snapshot), keepRunning func() bool) error {
	req, err := r.deps.device.newRequest(ctx, http.MethodGet, pathEvents, nil)
	if err != nil {
		return err
	}
	resp, err := r.deps.stream.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %w", ErrReadFailure, unexpectedStatus(pathEvents, resp.StatusCode))
	}

	buf := make([]byte, sseChunkSize)
	for keepRunning() {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			r.handleChunk(buf[:n], emit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: event stream closed by device", ErrReadFailure)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
	}
	return nil
}

func (r *sseReader) handleChunk(chunk []byte, emit func(Snapshot)) {
	if !bytes.HasPrefix(chunk, sseMarker) {
		return
	}
	flat, err := parseFrame(chunk[len(sseMarker):])
	if err != nil {
		r.deps.logger.Debug("sse: dropping malformed frame", zap.Int("bytes", len(chunk)), zap.Error(err))
		return
	}
	emit(Reshape(flat))
}

func parseFrame(payload []byte) (map[string]any, error) {
	var flat map[string]any
	if err := json.Unmarshal(payload, &flat); err != nil {
		flat, err = rescueFrame(payload)
		if err != nil {
			return nil, err
		}
	}
	if flat == nil {
		return nil, fmt.Errorf("%w: empty frame", ErrParseFailure)
	}
	return flat, nil
}
