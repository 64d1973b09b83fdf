package actor

import (
	"testing"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/util"
	"github.com/berfenger/freeds2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "wsolar"},
		Value:                  1500,
	})
	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "tempTermo"},
		Decimals:               1,
		Unknown:                true,
	})
	es.Publish(domain.LightStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.LIGHT_ID_BACKLIGHT},
		On:                     true,
		Brightness:             103,
		HasBrightness:          true,
	})
	es.Publish(domain.DeviceAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.ACTOR_ID_FREEDS},
		Value:                  false,
	})
	// not an entity event, ignored
	es.Publish(domain.SnapshotUpdateEvent{Available: true})

	time.Sleep(500 * time.Millisecond)

	result, err = context.RequestFuture(pid, getPublishedRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	published := result.(getPublishedResponse).messages

	assert.Equal(t, []rawMessage{
		{topic: "freeds/sensor/wsolar/state", message: "1500"},
		{topic: "freeds/sensor/tempTermo/state", message: "None"},
		{topic: "freeds/light/Oled/state", message: "on", retain: true},
		{topic: "freeds/light/Oled/brightness", message: "103", retain: true},
		{topic: "freeds/device/state", message: "offline", retain: true},
	}, published)

	context.Stop(pid)

	time.Sleep(200 * time.Millisecond)

	as.Shutdown()
}

func TestEvent2MQTTMessages(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	state := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	as := actorutil.NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return state }))
	defer as.Root.Stop(pid)

	// the client is built on Started, the answer orders it before the reads below
	_, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)

	msgs := state.event2MQTTMessages(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "KwToday"},
		Value:                  1.2,
		Decimals:               2,
	})
	assert.Equal([]rawMessage{{topic: "freeds/sensor/KwToday/state", message: "1.20"}}, msgs)

	msgs = state.event2MQTTMessages(domain.SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SWITCH_ID_PWM_ENABLED},
		Value:                  false,
	})
	assert.Equal([]rawMessage{{topic: "freeds/switch/POn/state", message: "off", retain: true}}, msgs)

	msgs = state.event2MQTTMessages(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_WORKING_MODE},
		Value:                  "Solax Wifi v2",
	})
	assert.Equal("freeds/sensor/workingMode/state", msgs[0].topic)

	msgs = state.event2MQTTMessages(domain.LightStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.LIGHT_ID_BACKLIGHT},
		On:                     false,
	})
	assert.Len(msgs, 1)

	assert.Nil(state.event2MQTTMessages("unrelated"))
}
