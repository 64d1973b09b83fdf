package domain

import "fmt"

// DeviceCommandRequest is implemented by every request the freeds actor
// forwards to the device.
type DeviceCommandRequest interface {
	ActorRequest
	DeviceCommand() string
}

// SetEntityStateRequest drives a switch or light entity to On. The device
// only exposes toggles, so nothing is sent when it already is in that state.
type SetEntityStateRequest struct {
	ActorRequestMixIn
	EntityId string
	On       bool
}

func (r SetEntityStateRequest) DeviceCommand() string {
	return fmt.Sprintf("%s:%t", r.EntityId, r.On)
}

type SetEntityStateResponse struct {
	ActorResponseMixIn
	EntityId string
	Changed  bool
}

type PressButtonRequest struct {
	ActorRequestMixIn
	EntityId string
}

func (r PressButtonRequest) DeviceCommand() string {
	return r.EntityId
}

type PressButtonResponse struct {
	ActorResponseMixIn
	EntityId string
	Sent     bool
}

// ensure interface compliance
var (
	_ DeviceCommandRequest = SetEntityStateRequest{}
	_ DeviceCommandRequest = PressButtonRequest{}
)
