package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/core/events"
	. "github.com/berfenger/freeds2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const telemetryRepublishInterval = 5 * time.Minute

// TelemetryActor turns device snapshots into entity update events. Only
// changed values are published, everything is republished on every
// republish tick.
type TelemetryActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	eventStream       *eventstream.EventStream
	eventStreamSub    *eventstream.Subscription
	republishInterval time.Duration
	last              map[string]any

	logger *zap.Logger
}

type onSnapshotUpdate struct {
	event domain.SnapshotUpdateEvent
}

type republishTick struct {
}

func NewTelemetryActor(eventStream *eventstream.EventStream, republishInterval time.Duration, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
		eventStream:       eventStream,
		republishInterval: republishInterval,
		last:              map[string]any{},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@starting started")

		system := ctx.ActorSystem()
		self := ctx.Self()
		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			if ev, ok := value.(domain.SnapshotUpdateEvent); ok {
				system.Root.Send(self, onSnapshotUpdate{event: ev})
			}
		})

		if state.republishInterval > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(state.republishInterval, ctx.Self(), republishTick{})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("telemetry@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: state.eventStreamSub != nil,
			State:   fmt.Sprintf("%d entities", len(state.last)),
		})
	case onSnapshotUpdate:
		state.onSnapshotUpdate(msg.event)
	case republishTick:
		state.logger.Debug("telemetry@default republish", zap.Int("entities", len(state.last)))
		for _, ev := range state.last {
			state.publish(ev)
		}
		state.scheduler.RequestOnce(state.republishInterval, ctx.Self(), republishTick{})
	case *actor.Stopping:
		if state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	default:
		state.logger.Debug("telemetry@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *TelemetryActor) onSnapshotUpdate(ev domain.SnapshotUpdateEvent) {
	evs := events.AvailabilityToUpdateEvents(ev.Available)
	if ev.Available {
		evs = append(evs, events.SnapshotToUpdateEvents(ev.Snapshot)...)
	} else {
		// entity states are stale, send them all again once the device is back
		for key := range state.last {
			if _, ok := state.last[key].(domain.DeviceAvailabilityUpdateEvent); !ok {
				delete(state.last, key)
			}
		}
	}
	for _, e := range evs {
		key := eventKey(e)
		if prev, ok := state.last[key]; ok && prev == e {
			continue
		}
		state.last[key] = e
		state.publish(e)
	}
}

func (state *TelemetryActor) publish(ev any) {
	state.eventStream.Publish(ev)
}

func eventKey(ev any) string {
	if e, ok := ev.(domain.SensorUpdateEvent); ok {
		return fmt.Sprintf("%T/%s", ev, e.SensorId())
	}
	return fmt.Sprintf("%T", ev)
}
