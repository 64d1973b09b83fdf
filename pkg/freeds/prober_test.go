package freeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeFirmware struct {
	rootStatus  int
	commonBody  string
	eventStatus int
}

func (f fakeFirmware) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		status := f.rootStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("/api/common", func(w http.ResponseWriter, r *http.Request) {
		if f.commonBody == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, f.commonBody)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if f.eventStatus != http.StatusOK {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	return mux
}

func probe(t *testing.T, fw fakeFirmware) (ProbeResult, error) {
	srv := httptest.NewServer(fw.handler())
	defer srv.Close()

	prober := NewProber(deviceFor(t, srv), &http.Client{Timeout: 2 * time.Second}, nil)
	return prober.Probe(context.Background())
}

func TestProbeRecentFirmwareIsPolled(t *testing.T) {

	assert := assert.New(t)

	result, err := probe(t, fakeFirmware{commonBody: `{"version":"2.1.0","title":"Garage FreeDS"}`})
	assert.NoError(err)
	assert.Equal(ModePolledJSON, result.Mode)
	assert.Equal("2.1.0", result.Info.Version)
	assert.Equal("Garage FreeDS", result.Info.Title)
}

func TestProbeOldFirmwareIsWebSocket(t *testing.T) {

	assert := assert.New(t)

	result, err := probe(t, fakeFirmware{commonBody: `{"version":"1.0.6"}`})
	assert.NoError(err)
	assert.Equal(ModeWebSocket, result.Mode)
}

func TestProbeFallsBackToEventStream(t *testing.T) {

	assert := assert.New(t)

	result, err := probe(t, fakeFirmware{eventStatus: http.StatusOK})
	assert.NoError(err)
	assert.Equal(ModeSSE, result.Mode)

	// a version that does not classify still falls through to the stream check
	result, err = probe(t, fakeFirmware{commonBody: `{"version":"beta"}`, eventStatus: http.StatusOK})
	assert.NoError(err)
	assert.Equal(ModeSSE, result.Mode)
	assert.Equal("beta", result.Info.Version)
}

func TestProbeUnrecognized(t *testing.T) {

	assert := assert.New(t)

	_, err := probe(t, fakeFirmware{})
	assert.True(errors.Is(err, ErrProtocolUnrecognized))
	assert.False(IsAuthError(err))
}

func TestProbeAuthFailure(t *testing.T) {

	assert := assert.New(t)

	_, err := probe(t, fakeFirmware{rootStatus: http.StatusUnauthorized})
	assert.True(IsAuthError(err))
	assert.False(IsConnectionError(err))
}

func TestProbeUnreachable(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	device := deviceFor(t, srv)
	srv.Close()

	_, err := NewProber(device, &http.Client{Timeout: time.Second}, nil).Probe(context.Background())
	assert.True(errors.Is(err, ErrUnreachable))
	assert.True(IsConnectionError(err))
	assert.False(IsAuthError(err))
}
