package events

import (
	"math"

	. "github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"
)

// disconnectedProbe is what the firmware reports for a missing DS18B20.
const disconnectedProbe = -127.0

// SnapshotToUpdateEvents turns one device snapshot into entity state events.
// Fields missing from the snapshot produce unknown sensor values and no
// binary, switch or light events.
func SnapshotToUpdateEvents(s freeds.Snapshot) []any {
	var events []any

	for _, sensor := range FreeDSSensorTable {
		if sensor.Id == SENSOR_ID_WORKING_MODE {
			if ev, ok := workingModeEvent(s, sensor.Source); ok {
				events = append(events, ev)
			}
			continue
		}
		events = append(events, floatEvent(s, sensor))
	}

	for _, sensor := range FreeDSBinarySensorTable {
		if value, ok := s.Bool(sensor.Source.Category, sensor.Source.Field); ok {
			events = append(events, BinarySensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: sensor.Id},
				Value:                  value,
			})
		}
	}

	for _, sw := range FreeDSSwitchTable {
		if value, ok := s.Bool(sw.Source.Category, sw.Source.Field); ok {
			events = append(events, SwitchSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: sw.Id},
				Value:                  value,
			})
		}
	}

	for _, light := range FreeDSLightTable {
		on, ok := s.Bool(light.Source.Category, light.Source.Field)
		if !ok {
			continue
		}
		ev := LightStateUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: light.Id},
			On:                     on,
		}
		if b, ok := s.Float(light.Brightness.Category, light.Brightness.Field); ok {
			ev.Brightness = ScaleBrightness(b)
			ev.HasBrightness = true
		}
		events = append(events, ev)
	}

	return events
}

func AvailabilityToUpdateEvents(available bool) []any {
	return []any{
		DeviceAvailabilityUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: ACTOR_ID_FREEDS},
			Value:                  available,
		},
	}
}

// ScaleBrightness maps the 0..100 screen brightness to the 1..255 range of a
// Home Assistant light.
func ScaleBrightness(percent float64) float64 {
	percent = math.Max(0, math.Min(100, percent))
	return math.Round(1 + percent*254/100)
}

func floatEvent(s freeds.Snapshot, sensor GenericSensor) FloatSensorUpdateEvent {
	ev := FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: sensor.Id},
		Decimals:               sensor.Decimals,
	}
	value, ok := s.Float(sensor.Source.Category, sensor.Source.Field)
	if !ok || (sensor.DeviceClass == DEVICE_CLASS_TEMPERATURE && value == disconnectedProbe) {
		ev.Unknown = true
		return ev
	}
	ev.Value = value
	return ev
}

func workingModeEvent(s freeds.Snapshot, source FieldRef) (TextSensorUpdateEvent, bool) {
	code, ok := s.Float(source.Category, source.Field)
	if !ok {
		return TextSensorUpdateEvent{}, false
	}
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_WORKING_MODE},
		Value:                  WorkingModeName(int(code)),
	}, true
}
