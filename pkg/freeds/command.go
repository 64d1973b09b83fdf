package freeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// Toggle button ids understood by /tooglebuttons.
const (
	ButtonBacklight  = 5
	ButtonPWMEnabled = 6
	ButtonPWMManual  = 7
)

// SendCommand presses a device button. It issues exactly one request and
// never retries, the caller decides whether to try again. It does not
// coordinate with the acquisition loop.
func (c *Client) SendCommand(ctx context.Context, id int) error {
	query := url.Values{"data": []string{strconv.Itoa(id)}}
	req, err := c.device.newRequest(ctx, http.MethodPost, pathToggleButtons, query)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer drain(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return unexpectedStatus(pathToggleButtons, resp.StatusCode)
	}
	c.logger.Info("command sent", zap.Int("button", id), zap.Int("status", resp.StatusCode))
	return nil
}

// Reboot asks the device to restart, see RebootGuard for the debounced flow.
func (c *Client) Reboot(ctx context.Context) error {
	req, err := c.device.newRequest(ctx, http.MethodGet, pathReboot, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer drain(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return unexpectedStatus(pathReboot, resp.StatusCode)
	}
	return nil
}
