package freeds

import (
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleJSON = `{"Web":{"error":0,"POn":1,"PwmMan":0,"Oled":1,"workingMode":25,"pwm":40},` +
	`"Relays":{"R01":0,"R02":1},"Inverter":{"wsolar":1500},"Meter":{"wgrid":-300},` +
	`"Energy":{"KwToday":"1.20"},"Temperature":{"tempTermo":"-127.0"}}`

func deviceFor(t *testing.T, srv *httptest.Server) Device {
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return Device{Host: u.Hostname(), Port: port}
}

// fastOptions keep the supervisor loops in the millisecond range.
func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithTimeouts(2*time.Second, 500*time.Millisecond, 500*time.Millisecond),
		WithPollInterval(10 * time.Millisecond),
		WithBackoffUnits(10*time.Millisecond, 10*time.Millisecond),
	}, extra...)
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *updateRecorder) consume(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *updateRecorder) snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Snapshot
	for _, u := range r.updates {
		if u.Snapshot != nil {
			out = append(out, u.Snapshot)
		}
	}
	return out
}

func (r *updateRecorder) unavailable() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.updates {
		if !u.Available {
			n++
		}
	}
	return n
}
