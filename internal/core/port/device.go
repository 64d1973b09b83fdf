package port

import (
	"context"

	"github.com/berfenger/freeds2mqtt/pkg/freeds"
)

// DeviceClient is the acquisition client as seen by the freeds actor.
// *freeds.Client implements it.
type DeviceClient interface {
	RegisterConsumer(fn freeds.Consumer) func()
	Probe(ctx context.Context) (freeds.ProbeResult, error)
	SendCommand(ctx context.Context, id int) error
	Reboot(ctx context.Context) error
	Available() bool
	LatestSnapshot() freeds.Snapshot
	LastError() error
	Mode() freeds.Mode
}

var _ DeviceClient = (*freeds.Client)(nil)

// RebootButton is the debounced reboot flow, see freeds.RebootGuard.
type RebootButton interface {
	Press(ctx context.Context) (bool, error)
}

var _ RebootButton = (*freeds.RebootGuard)(nil)
