package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/core/port"
	"github.com/berfenger/freeds2mqtt/internal/metrics"
	"github.com/berfenger/freeds2mqtt/internal/util/actorutil"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	probeTimeout   = 10 * time.Second
	commandTimeout = 5 * time.Second
)

// FreeDSActor owns the device client registration. Every client update is
// republished on the event stream as a domain.SnapshotUpdateEvent, device
// commands are run off the actor goroutine one at a time.
type FreeDSActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	client      port.DeviceClient
	reboot      port.RebootButton
	eventStream *eventstream.EventStream
	unregister  func()
	available   bool
	logger      *zap.Logger
}

type deviceUpdate struct {
	update freeds.Update
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewFreeDSActor(client port.DeviceClient, reboot port.RebootButton, eventStream *eventstream.EventStream, logger *zap.Logger) *FreeDSActor {
	act := &FreeDSActor{
		client:      client,
		reboot:      reboot,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_FREEDS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *FreeDSActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *FreeDSActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("freeds@starting started")
		system := ctx.ActorSystem()
		self := ctx.Self()
		state.unregister = state.client.RegisterConsumer(func(update freeds.Update) {
			system.Root.Send(self, deviceUpdate{update: update})
		})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("freeds@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *FreeDSActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case deviceUpdate:
		state.onDeviceUpdate(msg.update)
	case domain.ActorHealthRequest:
		state.logger.Debug("freeds@default: ActorHealthRequest")
		ctx.Respond(state.health())
	case domain.GetSnapshotRequest:
		state.logger.Debug("freeds@default: GetSnapshotRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{
			Snapshot:  state.client.LatestSnapshot().Clone(),
			Available: state.client.Available(),
			Mode:      state.client.Mode(),
			LastError: state.client.LastError(),
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("freeds@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDeviceInfo),
			mapTaskResult[domain.GetDeviceInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ResponseWithError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(probeTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.SetEntityStateRequest:
		state.logger.Debug("freeds@default: SetEntityStateRequest", zap.String("entity", msg.EntityId), zap.Bool("on", msg.On))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetEntityStateResponse, error) {
			return state.setEntityState(msg)
		}), mapTaskResult[domain.SetEntityStateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			metrics.ObserveCommand(msg.EntityId, err, false)
			return backgroundTaskResult{
				message: domain.SetEntityStateResponse{
					ActorResponseMixIn: domain.ResponseWithError(err),
					EntityId:           msg.EntityId,
				},
				replyTo: sender,
			}
		}).WithTimeout(commandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.PressButtonRequest:
		state.logger.Debug("freeds@default: PressButtonRequest", zap.String("entity", msg.EntityId))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.PressButtonResponse, error) {
			return state.pressButton(msg)
		}), mapTaskResult[domain.PressButtonResponse](sender)).Recover(func(err error) backgroundTaskResult {
			metrics.ObserveReboot(false, err)
			return backgroundTaskResult{
				message: domain.PressButtonResponse{
					ActorResponseMixIn: domain.ResponseWithError(err),
					EntityId:           msg.EntityId,
				},
				replyTo: sender,
			}
		}).WithTimeout(commandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("freeds@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// WaitingDevice keeps serving updates and health checks while a device
// request is in flight, everything else waits.
func (state *FreeDSActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("freeds@WaitingDevice backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case deviceUpdate:
		state.onDeviceUpdate(msg.update)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health())
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	default:
		state.logger.Debug("freeds@WaitingDevice stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *FreeDSActor) onDeviceUpdate(update freeds.Update) {
	metrics.ObserveUpdate(update.Available)
	if update.Available != state.available {
		if update.Available {
			state.logger.Info("device available")
		} else {
			state.logger.Warn("device unavailable", zap.Error(update.Err))
		}
		state.available = update.Available
	}
	state.eventStream.Publish(domain.SnapshotUpdateEvent{
		Snapshot:  update.Snapshot,
		Available: update.Available,
		Err:       update.Err,
	})
}

func (state *FreeDSActor) health() domain.ActorHealthResponse {
	st := "unavailable"
	if state.available {
		st = "available"
	}
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_FREEDS,
		Healthy: state.unregister != nil,
		State:   st,
	}
}

func (state *FreeDSActor) stop() {
	if state.unregister != nil {
		state.unregister()
		state.unregister = nil
	}
}

func (state *FreeDSActor) getDeviceInfo() (*domain.GetDeviceInfoResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	result, err := state.client.Probe(ctx)
	if err != nil {
		state.logger.Error("probe failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetDeviceInfoResponse{
		Mode: result.Mode,
		Info: result.Info,
	}, nil
}

// setEntityState presses the toggle button only when the last snapshot shows
// the entity in the other state. An entity missing from the snapshot is
// toggled blindly.
func (state *FreeDSActor) setEntityState(req domain.SetEntityStateRequest) (*domain.SetEntityStateResponse, error) {
	entity, ok := domain.FindToggleEntity(req.EntityId)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", req.EntityId)
	}
	resp := &domain.SetEntityStateResponse{EntityId: req.EntityId}
	current, known := state.client.LatestSnapshot().Bool(entity.Source.Category, entity.Source.Field)
	if known && current == req.On {
		metrics.ObserveCommand(req.EntityId, nil, false)
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := state.client.SendCommand(ctx, entity.ButtonId); err != nil {
		state.logger.Error("command failed", zap.String("entity", req.EntityId), zap.Error(err))
		return nil, err
	}
	metrics.ObserveCommand(req.EntityId, nil, true)
	resp.Changed = true
	return resp, nil
}

func (state *FreeDSActor) pressButton(req domain.PressButtonRequest) (*domain.PressButtonResponse, error) {
	if req.EntityId != domain.BUTTON_ID_REBOOT {
		return nil, fmt.Errorf("unknown button %q", req.EntityId)
	}
	if state.reboot == nil {
		return nil, errors.New("reboot not supported")
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	sent, err := state.reboot.Press(ctx)
	if err != nil {
		state.logger.Error("reboot failed", zap.Error(err))
		return nil, err
	}
	metrics.ObserveReboot(sent, nil)
	if !sent {
		state.logger.Info("reboot already pending, press ignored")
	}
	return &domain.PressButtonResponse{
		EntityId: req.EntityId,
		Sent:     sent,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
