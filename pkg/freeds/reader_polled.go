package freeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type polledReader struct {
	deps readerDeps
}

func (r *polledReader) Mode() Mode {
	return ModePolledJSON
}

func (r *polledReader) Run(ctx context.Context, emit func(Snapshot), keepRunning func() bool) error {
	for keepRunning() {
		snapshot, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		emit(snapshot)

		timer := time.NewTimer(r.deps.opts.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
	return nil
}

func (r *polledReader) fetch(ctx context.Context) (Snapshot, error) {
	req, err := r.deps.device.newRequest(ctx, http.MethodGet, pathJSON, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.deps.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, unexpectedStatus(pathJSON, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	snapshot, err := decodeSnapshot(body)
	if err != nil {
		r.deps.logger.Debug("polled json: unrecoverable document", zap.Int("bytes", len(body)), zap.Error(err))
		// an unparseable poll counts as a failed read for backoff purposes
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return snapshot, nil
}
