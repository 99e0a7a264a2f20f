package actor

import (
	"errors"
	"fmt"
	"time"

	"icomm2mqtt/internal/config"
	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/core/service"
	"icomm2mqtt/internal/metrics"
	. "icomm2mqtt/internal/util/actorutil"
	"icomm2mqtt/pkg/icomm"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the poll/mirror cycle: it asks the cloud actor for the
// device list, reconciles the result into entities, keeps Home Assistant
// discovery in sync with created and deleted devices, and executes validated
// user commands followed by an unconditional re-poll.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	cloudActor   *actor.PID
	mqttActor    *actor.PID
	registry     *service.Registry
	dispatcher   *service.Dispatcher
	bridgeDevice domain.Device

	repollPending bool

	logger *zap.Logger
}

type repollTick struct {
}

func NewPollerActor(cfg *config.Config, cloudActor, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	store := service.NewAttributeStore(eventStream)
	registry := service.NewRegistry(store, cfg.Poll.TemperatureUnitSymbol(), logger)
	act := &PollerActor{
		config:       cfg,
		cloudActor:   cloudActor,
		mqttActor:    mqttActor,
		registry:     registry,
		dispatcher:   service.NewDispatcher(registry, logger),
		bridgeDevice: domain.BridgeDevice(cfg.MQTT.BaseTopic),
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_POLLER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		if state.config.MQTT.HADiscoveryEnable {
			ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
				Sensors: domain.BridgeSensors(state.bridgeDevice),
			})
		}

		if !state.config.Account.HasCredentials() {
			state.registry.SetBridgeStatus(domain.STATUS_MISSING_CREDENTIALS)
		} else {
			// first poll right away, the external timer takes over afterwards
			ctx.Send(ctx.Self(), domain.RefreshRequest{})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("poller@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   "idle",
		})
	case domain.RefreshRequest:
		state.startPoll(ctx)
	case repollTick:
		state.repollPending = false
		state.startPoll(ctx)
	case domain.SetModeCommand:
		state.logger.Debug("poller@default SetModeCommand", zap.String("junctionId", msg.JunctionID), zap.String("mode", msg.Mode))
		req, err := state.dispatcher.SetMode(msg)
		if err != nil {
			state.logger.Warn("poller@default mode command rejected", zap.String("junctionId", msg.JunctionID), zap.Error(err))
			return
		}
		if req == nil {
			return
		}
		metrics.CommandsTotal.WithLabelValues("mode").Inc()
		state.sendCommand(ctx, *req)
	case domain.SetHeatingSetpointCommand:
		state.logger.Debug("poller@default SetHeatingSetpointCommand", zap.String("junctionId", msg.JunctionID))
		req, err := state.dispatcher.SetHeatingSetpoint(msg)
		if err != nil {
			state.logger.Warn("poller@default setpoint command rejected", zap.String("junctionId", msg.JunctionID), zap.Error(err))
			return
		}
		if req == nil {
			return
		}
		metrics.CommandsTotal.WithLabelValues("setpoint").Inc()
		state.sendCommand(ctx, *req)
	default:
		state.logger.Debug("poller@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) WaitingPoll(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceListResponse:
		if msg.HasResponseError() {
			state.logger.Error("poller@waitingPoll GetDeviceListResponse error", zap.Error(msg.GetResponseError()))
			if errors.Is(msg.GetResponseError(), icomm.ErrLoginFailed) {
				state.registry.SetBridgeStatus(domain.STATUS_LOGIN_FAILED)
			} else {
				state.registry.SetBridgeStatus(domain.STATUS_CONNECTION_FAILED)
			}
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("poller@waitingPoll GetDeviceListResponse", zap.Int("devices", len(msg.Devices)))

		result := state.registry.Reconcile(msg.Devices)

		if result.NoCompatible {
			state.registry.SetBridgeStatus(domain.STATUS_NO_DEVICES)
		} else {
			state.registry.SetBridgeStatus(domain.STATUS_CONNECTED)
		}

		if state.config.MQTT.HADiscoveryEnable {
			if len(result.Created) > 0 {
				waterHeaters, sensors := state.discoveryEntities(result.Created)
				ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
					WaterHeaters: waterHeaters,
					Sensors:      sensors,
				})
			}
			if len(result.Deleted) > 0 {
				waterHeaters, sensors := state.discoveryEntities(result.Deleted)
				ctx.Send(state.mqttActor, domain.RemoveDiscoveryRequest{
					WaterHeaters: waterHeaters,
					Sensors:      sensors,
				})
			}
		}

		// a pending server-side change clears fast, poll again early
		if result.PendingChange {
			state.scheduleRepoll(ctx, state.config.Poll.PendingRepollSeconds)
		}

		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("poller@waitingPoll stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) WaitingCommand(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.UpdateModeResponse:
		state.finishCommand(ctx, "mode", msg.GetResponseError(), msg.Confirmed)
	case domain.UpdateSetpointResponse:
		state.finishCommand(ctx, "setpoint", msg.GetResponseError(), msg.Confirmed)
	default:
		state.logger.Debug("poller@waitingCommand stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) startPoll(ctx actor.Context) {
	state.logger.Debug("poller@default poll")
	if !state.config.Account.HasCredentials() {
		state.registry.SetBridgeStatus(domain.STATUS_MISSING_CREDENTIALS)
		return
	}
	metrics.PollsTotal.Inc()
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.GetDeviceListRequest{
		ForceUpdate: state.config.Cloud.ForceDeviceUpdate,
	}, state.cloudCallTimeout()), func(err error) any {
		return domain.GetDeviceListResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.behavior.BecomeStacked(state.WaitingPoll)
}

func (state *PollerActor) sendCommand(ctx actor.Context, request any) {
	switch req := request.(type) {
	case domain.UpdateModeRequest:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, req, state.cloudCallTimeout()), func(err error) any {
			return domain.UpdateModeResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.UpdateSetpointRequest:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, req, state.cloudCallTimeout()), func(err error) any {
			return domain.UpdateSetpointResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	}
	state.behavior.BecomeStacked(state.WaitingCommand)
}

// finishCommand always schedules a re-poll: whether the mutation was
// confirmed or not, the device list is the only ground truth.
func (state *PollerActor) finishCommand(ctx actor.Context, command string, err error, confirmed bool) {
	if err != nil {
		state.logger.Error("poller@waitingCommand command failed", zap.String("command", command), zap.Error(err))
	} else if !confirmed {
		state.logger.Warn("poller@waitingCommand command not confirmed", zap.String("command", command))
	}
	state.scheduleRepoll(ctx, state.config.Poll.PostCommandRepollSeconds)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *PollerActor) scheduleRepoll(ctx actor.Context, seconds uint32) {
	if state.repollPending {
		return
	}
	if seconds == 0 {
		seconds = 1
	}
	state.repollPending = true
	state.scheduler.RequestOnce(time.Duration(seconds)*time.Second, ctx.Self(), repollTick{})
}

// cloudCallTimeout covers the cloud actor's worst case: the original call
// plus one delayed retry.
func (state *PollerActor) cloudCallTimeout() time.Duration {
	requestTimeout := time.Duration(state.config.Cloud.TimeoutSeconds) * time.Second
	if requestTimeout == 0 {
		requestTimeout = 15 * time.Second
	}
	retryDelay := time.Duration(state.config.Cloud.RetryDelayMillis) * time.Millisecond
	return 2*requestTimeout + retryDelay + 2*time.Second
}

func (state *PollerActor) discoveryEntities(devices []domain.RemoteDevice) ([]domain.GenericWaterHeater, []domain.GenericSensor) {
	var waterHeaters []domain.GenericWaterHeater
	var sensors []domain.GenericSensor
	for _, d := range devices {
		device := domain.WaterHeaterDevice(d, state.bridgeDevice.Id)
		waterHeaters = append(waterHeaters, domain.WaterHeaterEntity(device, d, service.MinSetpoint, state.config.Poll.TemperatureUnitSymbol()))
		sensors = append(sensors, domain.WaterHeaterSensors(domain.IdDevice(device), d)...)
	}
	return waterHeaters, sensors
}
