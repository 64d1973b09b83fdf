package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// FloatSensorUpdateEvent with Unknown set publishes the HA "None" state.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
	Unknown  bool
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// LightStateUpdateEvent carries the brightness already scaled to 1..255.
type LightStateUpdateEvent struct {
	SensorUpdateEventMixIn
	On            bool
	Brightness    float64
	HasBrightness bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// DeviceAvailabilityUpdateEvent drives the availability topic of every
// FreeDS entity.
type DeviceAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}
