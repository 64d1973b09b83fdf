package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/config"
	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const discoveryRefreshJobName = "ha-discovery-refresh"

type HADiscoveryActor struct {
	config             *config.Config
	behavior           actor.Behavior
	stash              *actorutil.Stash
	freedsActor        *actor.PID
	mqttActor          *actor.PID
	freedsActorHealthy bool
	mqttActorHealthy   bool
	healthyRecv        int
	published          int
	refreshInterval    time.Duration
	scheduler          quartz.Scheduler
	schedulerCancel    context.CancelFunc

	logger *zap.Logger
}

type refreshDiscovery struct {
}

// discoveryRefreshJob is run by the quartz scheduler, it only pokes the actor.
type discoveryRefreshJob struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func (j *discoveryRefreshJob) Execute(_ context.Context) error {
	j.system.Root.Send(j.pid, refreshDiscovery{})
	return nil
}

func (j *discoveryRefreshJob) Description() string {
	return fmt.Sprintf("%s:%s", discoveryRefreshJobName, j.pid.Id)
}

func NewHADiscoveryActor(config *config.Config, freedsActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:          config,
		freedsActor:     freedsActor,
		mqttActor:       mqttActor,
		refreshInterval: config.MQTT.HADiscoveryRefresh(),
		behavior:        actor.NewBehavior(),
		stash:           &actorutil.Stash{},
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check FreeDS and MQTT actor healthy
		state.healthyRecv = 0
		state.freedsActorHealthy = false
		state.mqttActorHealthy = false
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.freedsActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_FREEDS,
				Healthy: false,
			}
		})
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
		state.stopScheduler()
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_FREEDS:
				state.freedsActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if state.freedsActorHealthy && state.mqttActorHealthy {
				state.requestDeviceInfo(ctx)
				state.behavior.Become(state.WaitingInfoReceive)
			} else {
				// the supervisor restarts us and the check runs again
				panic(errors.New("MQTT Actor or FreeDS Actor are not healthy"))
			}
		}
	case *actor.Restarting:
		state.stopScheduler()
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			// entities are still announced, sw_version and model fill in on the next refresh
			state.logger.Warn("hadiscovery@info: device info unavailable", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("hadiscovery@info: GetDeviceInfoResponse", zap.Any("response", msg))
		}
		ctx.Send(state.mqttActor, state.discoveryRequest(msg))
		state.published++

		if state.scheduler == nil {
			if err := state.startScheduler(ctx); err != nil {
				state.logger.Error("hadiscovery@info: refresh scheduler", zap.Error(err))
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case refreshDiscovery:
		// already on it
	case *actor.Restarting:
		state.stopScheduler()
	case *actor.Stopping:
		state.stopScheduler()
	default:
		state.logger.Debug("hadiscovery@info: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   fmt.Sprintf("published %d", state.published),
		})
	case refreshDiscovery:
		state.logger.Debug("hadiscovery@default refresh")
		state.requestDeviceInfo(ctx)
		state.behavior.Become(state.WaitingInfoReceive)
	case *actor.Restarting:
		state.stopScheduler()
	case *actor.Stopping:
		state.stopScheduler()
	default:
		state.logger.Debug("hadiscovery@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) requestDeviceInfo(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.freedsActor, domain.GetDeviceInfoRequest{}, 15*time.Second), func(err error) any {
		return domain.GetDeviceInfoResponse{
			ActorResponseMixIn: domain.ResponseWithError(err),
		}
	})
}

func (state *HADiscoveryActor) discoveryRequest(info domain.GetDeviceInfoResponse) domain.PublishDiscoveryRequest {
	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors := domain.BridgeSensors(bridgeDevice)

	freedsDevice := domain.FreeDSDevice(state.config.FreeDS.UniqueId, state.config.FreeDS.Name, info.Info)
	freedsDevice.ViaDevice = bridgeDevice.Id
	sensors = append(sensors, domain.FreeDSSensors(freedsDevice)...)
	sensors = append(sensors, domain.FreeDSBinarySensors(freedsDevice)...)

	return domain.PublishDiscoveryRequest{
		Sensors:  sensors,
		Switches: domain.FreeDSSwitches(freedsDevice),
		Lights:   domain.FreeDSLights(freedsDevice),
		Buttons:  domain.FreeDSButtons(freedsDevice),
	}
}

func (state *HADiscoveryActor) startScheduler(ctx actor.Context) error {
	interval := state.refreshInterval
	if interval <= 0 {
		return nil
	}
	sched := quartz.NewStdScheduler()
	schedCtx, cancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	job := &discoveryRefreshJob{system: ctx.ActorSystem(), pid: ctx.Self()}
	err := sched.ScheduleJob(quartz.NewJobDetail(job, quartz.NewJobKey(discoveryRefreshJobName)),
		quartz.NewSimpleTrigger(interval))
	if err != nil {
		cancel()
		sched.Stop()
		return err
	}
	state.scheduler = sched
	state.schedulerCancel = cancel
	state.logger.Info("hadiscovery: refresh scheduled", zap.Duration("interval", interval))
	return nil
}

func (state *HADiscoveryActor) stopScheduler() {
	if state.scheduler == nil {
		return
	}
	state.scheduler.Stop()
	state.schedulerCancel()
	state.scheduler = nil
	state.schedulerCancel = nil
}
