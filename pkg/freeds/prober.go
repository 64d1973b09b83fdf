package freeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	pathRoot   = "/"
	pathCommon = "/api/common"
	pathEvents = "/events"
	pathJSON   = "/json"
	pathWS     = "/jsonWeb"
	pathReboot = "/reboot"
	// vendor spelling, the firmware only answers to this path
	pathToggleButtons = "/tooglebuttons"
)

// DeviceInfo is the /api/common document, only served by recent firmware.
type DeviceInfo struct {
	Version string `json:"version"`
	Title   string `json:"title"`
}

type ProbeResult struct {
	Mode Mode
	Info DeviceInfo
}

// Prober finds out which protocol a device speaks. It has no side effects
// besides the requests it issues.
type Prober struct {
	device Device
	client *http.Client
	logger *zap.Logger
}

func NewProber(device Device, client *http.Client, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		device: device,
		client: client,
		logger: logger,
	}
}

func (p *Prober) Probe(ctx context.Context) (ProbeResult, error) {
	var result ProbeResult

	// 1. the root page tells unreachable and rejected credentials apart
	status, _, err := p.get(ctx, pathRoot, false)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if !isSuccess(status) {
		return result, unexpectedStatus(pathRoot, status)
	}

	// 2. common info, version decides between polled json and websocket
	status, body, err := p.get(ctx, pathCommon, true)
	switch {
	case err != nil:
		p.logger.Debug("probe: common info unavailable", zap.Error(err))
	case status == http.StatusUnauthorized:
		return result, unexpectedStatus(pathCommon, status)
	case isSuccess(status):
		var info DeviceInfo
		if jerr := json.Unmarshal(body, &info); jerr == nil && info.Version != "" {
			result.Info = info
			if mode, ok := ModeForVersion(info.Version); ok {
				result.Mode = mode
				p.logger.Debug("probe: classified by version", zap.String("version", info.Version), zap.Stringer("mode", mode))
				return result, nil
			}
			p.logger.Debug("probe: version does not classify", zap.String("version", info.Version))
		}
	}

	// 3. event stream
	status, _, err = p.get(ctx, pathEvents, false)
	if err == nil && status == http.StatusOK {
		result.Mode = ModeSSE
		return result, nil
	}

	return result, fmt.Errorf("%w: %s", ErrProtocolUnrecognized, p.device.Identity())
}

// get issues a GET and optionally reads the body. When the body is not
// wanted the response is closed right after the headers, which matters for
// the never ending /events stream.
func (p *Prober) get(ctx context.Context, path string, readBody bool) (int, []byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := p.device.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if !readBody {
		return resp.StatusCode, nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
