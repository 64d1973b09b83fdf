package freeds

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultPort = 80

// Device addresses a single FreeDS unit.
type Device struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Identity is the registry key of the device.
func (d Device) Identity() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.port()))
}

func (d Device) port() int {
	if d.Port <= 0 {
		return DefaultPort
	}
	return d.Port
}

func (d Device) url(scheme, path string, query url.Values) string {
	u := url.URL{
		Scheme: scheme,
		Host:   d.Identity(),
		Path:   path,
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (d Device) hasAuth() bool {
	return d.Username != ""
}

func (d Device) authHeader() http.Header {
	header := http.Header{}
	if d.hasAuth() {
		token := base64.StdEncoding.EncodeToString([]byte(d.Username + ":" + d.Password))
		header.Set("Authorization", "Basic "+token)
	}
	return header
}

func (d Device) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.url("http", path, query), nil)
	if err != nil {
		return nil, err
	}
	if d.hasAuth() {
		req.SetBasicAuth(d.Username, d.Password)
	}
	return req, nil
}

// deadlineConn bounds every single socket read, a hung stream then fails
// within readTimeout instead of blocking the session forever.
type deadlineConn struct {
	net.Conn
	readTimeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func newStreamTransport(dialTimeout, readTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, readTimeout: readTimeout}, nil
		},
		// each reconnect is a brand new request on a brand new socket
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: dialTimeout,
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func unexpectedStatus(path string, status int) error {
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s returned %d", ErrAuthFailed, path, status)
	}
	return fmt.Errorf("%w: %s returned %d", ErrUnreachable, path, status)
}
