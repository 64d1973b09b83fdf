package events

import (
	"testing"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/stretchr/testify/assert"
)

func eventsById(evs []any) map[string]any {
	out := map[string]any{}
	for _, ev := range evs {
		if e, ok := ev.(domain.SensorUpdateEvent); ok {
			out[e.SensorId()] = ev
		}
	}
	return out
}

func TestSnapshotToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	snapshot := freeds.Reshape(map[string]any{
		"wsolar":           float64(1520),
		"wgrid":            float64(-310),
		"tempTermo":        "-127.0",
		"tempTriac":        "41.5",
		"KwToday":          "3.25",
		"workingMode":      float64(25),
		"error":            float64(0),
		"R01":              float64(1),
		"POn":              float64(1),
		"PwmMan":           float64(0),
		"Oled":             float64(1),
		"screenBrightness": float64(50),
	})

	evs := eventsById(SnapshotToUpdateEvents(snapshot))

	assert.Equal(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "wsolar"},
		Value:                  1520,
	}, evs["wsolar"])

	heater := evs["tempTermo"].(domain.FloatSensorUpdateEvent)
	assert.True(heater.Unknown, "disconnected probe is unknown")

	triac := evs["tempTriac"].(domain.FloatSensorUpdateEvent)
	assert.False(triac.Unknown)
	assert.Equal(41.5, triac.Value)
	assert.Equal(uint(1), triac.Decimals)

	energy := evs["KwToday"].(domain.FloatSensorUpdateEvent)
	assert.Equal(3.25, energy.Value)

	voltage := evs["mvoltage"].(domain.FloatSensorUpdateEvent)
	assert.True(voltage.Unknown, "missing field is unknown")

	assert.Equal("Shelly EM", evs[domain.SENSOR_ID_WORKING_MODE].(domain.TextSensorUpdateEvent).Value)

	assert.False(evs[domain.BINARY_SENSOR_ID_ERROR].(domain.BinarySensorUpdateEvent).Value)
	assert.True(evs["R01"].(domain.BinarySensorUpdateEvent).Value)
	assert.NotContains(evs, "R02")

	assert.True(evs[domain.SWITCH_ID_PWM_ENABLED].(domain.SwitchSensorUpdateEvent).Value)
	assert.False(evs[domain.SWITCH_ID_PWM_MANUAL].(domain.SwitchSensorUpdateEvent).Value)

	light := evs[domain.LIGHT_ID_BACKLIGHT].(domain.LightStateUpdateEvent)
	assert.True(light.On)
	assert.True(light.HasBrightness)
	assert.Equal(128.0, light.Brightness)
}

func TestScaleBrightness(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(1.0, ScaleBrightness(0))
	assert.Equal(255.0, ScaleBrightness(100))
	assert.Equal(255.0, ScaleBrightness(140))
	assert.Equal(1.0, ScaleBrightness(-5))
}

func TestAvailabilityToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	evs := AvailabilityToUpdateEvents(false)
	assert.Len(evs, 1)
	assert.False(evs[0].(domain.DeviceAvailabilityUpdateEvent).Value)
}
