package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/metrics"
	"github.com/berfenger/freeds2mqtt/internal/util"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

func fakeMaster(healthy bool) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetSnapshotRequest:
			ctx.Respond(domain.GetSnapshotResponse{
				Snapshot:  freeds.Snapshot{freeds.CategoryInverter: {"wsolar": 1500.0}},
				Available: true,
				Mode:      freeds.ModePolledJSON,
				LastError: errors.New("last one failed"),
			})
		}
	}
}

func newTestServer(t *testing.T, healthy bool) (http.Handler, func()) {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromFunc(fakeMaster(healthy)))
	time.Sleep(50 * time.Millisecond)
	s := &Server{
		port:            util.LoadTestConfig().Port,
		healthTimeout:   time.Second,
		snapshotTimeout: time.Second,
		rootContext:     as.Root,
		masterActor:     pid,
	}
	return s.RegisterRoutes(), as.Shutdown
}

func TestHealthCheck(t *testing.T) {

	assert := assert.New(t)

	handler, stop := newTestServer(t, true)
	defer stop()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())

	unhealthy, stop2 := newTestServer(t, false)
	defer stop2()
	rec = httptest.NewRecorder()
	unhealthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotEndpoint(t *testing.T) {

	assert := assert.New(t)

	handler, stop := newTestServer(t, true)
	defer stop()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"available":true,"mode":"polled-json","error":"last one failed","snapshot":{"Inverter":{"wsolar":1500}}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {

	assert := assert.New(t)

	handler, stop := newTestServer(t, true)
	defer stop()

	metrics.ObserveUpdate(true)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "freeds_available")
}
