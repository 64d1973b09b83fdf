package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/freeds2mqtt/internal/adapter/actor"
	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/util"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	client := newStubDeviceClient()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(es *eventstream.EventStream) *adactor.FreeDSActor {
			return adactor.NewFreeDSActor(client, nil, es, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")

	client.emit(freeds.Update{Snapshot: freeds.Snapshot{
		freeds.CategoryWeb: {"POn": true},
	}, Available: true})
	time.Sleep(200 * time.Millisecond)

	res, err = context.RequestFuture(pid, domain.GetSnapshotRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	snap := res.(domain.GetSnapshotResponse)
	assert.True(t, snap.Available)
	assert.Equal(t, true, snap.Snapshot[freeds.CategoryWeb]["POn"])

	// MQTT command routed to the device, PWM off toggles button 6
	context.Send(pid, adactor.ParsedCommand{Command: parsedCommand("switch", domain.SWITCH_ID_PWM_ENABLED, "off")})
	// unknown entities are dropped
	context.Send(pid, adactor.ParsedCommand{Command: parsedCommand("switch", "nope", "off")})

	assert.Eventually(t, func() bool {
		return len(client.sentCommands()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []int{freeds.ButtonPWMEnabled}, client.sentCommands())

	context.Stop(pid)

	as.Shutdown()
}
