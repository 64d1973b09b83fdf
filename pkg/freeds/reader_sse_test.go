package freeds

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeChunk(w http.ResponseWriter, chunk string) {
	fmt.Fprint(w, chunk)
	w.(http.Flusher).Flush()
	time.Sleep(20 * time.Millisecond)
}

func TestSSEReaderFrames(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeChunk(w, "event: jsonweb\r\ndata: {\"wsolar\":1500,\"wgrid\":-300,\"R01\":1,\"tempTermo\":\"-127.0\"}\r\n\r\n")
		writeChunk(w, "event: uptime\r\ndata: 1234\r\n\r\n")
		writeChunk(w, "event: jsonweb\r\ndata: {\"wsolar\": 1")
		writeChunk(w, "event: jsonweb\r\ndata: {\"wsolar\":700}\r\n\r\n}HTTP")
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(deviceFor(t, srv), fastOptions(WithMode(ModeSSE), WithTimeouts(2*time.Second, 5*time.Second, time.Second))...)
	defer client.Close()

	recorder := &updateRecorder{}
	unregister := client.RegisterConsumer(recorder.consume)
	defer unregister()

	assert.Eventually(func() bool { return len(recorder.snapshots()) == 2 }, 2*time.Second, 10*time.Millisecond)

	snapshots := recorder.snapshots()
	solar, ok := snapshots[0].Float(CategoryInverter, "wsolar")
	assert.True(ok)
	assert.Equal(1500.0, solar)
	grid, _ := snapshots[0].Float(CategoryMeter, "wgrid")
	assert.Equal(-300.0, grid)
	relay, _ := snapshots[0].Bool(CategoryRelays, "R01")
	assert.True(relay)
	assert.Len(snapshots[0].Categories(), 6)

	solar, _ = snapshots[1].Float(CategoryInverter, "wsolar")
	assert.Equal(700.0, solar)
	assert.Equal(ModeSSE, client.Mode())
}

func TestSSEReaderReconnects(t *testing.T) {

	assert := assert.New(t)

	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		w.WriteHeader(http.StatusOK)
		writeChunk(w, "event: jsonweb\r\ndata: {\"wsolar\":100}\r\n\r\n")
	}))
	defer srv.Close()

	client := NewClient(deviceFor(t, srv), fastOptions(WithMode(ModeSSE))...)
	defer client.Close()

	recorder := &updateRecorder{}
	unregister := client.RegisterConsumer(recorder.consume)
	defer unregister()

	// every stream ends after one event, the reset on data keeps the device available
	assert.Eventually(func() bool { return connections.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(0, recorder.unavailable())
	assert.LessOrEqual(client.Retries(), 2)
}

func TestSSEReaderRejectedStream(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(deviceFor(t, srv), fastOptions(WithMode(ModeSSE))...)
	defer client.Close()

	recorder := &updateRecorder{}
	unregister := client.RegisterConsumer(recorder.consume)
	defer unregister()

	assert.Eventually(func() bool { return recorder.unavailable() > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(IsAuthError(client.LastError()))
	assert.False(client.Available())
}
