package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "icomm2mqtt/internal/adapter/actor"
	"icomm2mqtt/internal/config"
	"icomm2mqtt/internal/core/domain"
	. "icomm2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type CloudActorProvider func() *adactor.CloudActor

// MasterOfPuppetsActor supervises the three children (cloud, mqtt, poller),
// routes parsed MQTT commands and external refresh triggers to the poller,
// and aggregates health checks.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	cloudActor         *actor.PID
	mqttActor          *actor.PID
	pollerActor        *actor.PID
	cloudActorProvider CloudActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	cloudActorHealthy  bool
	mqttActorHealthy   bool
	pollerActorHealthy bool
	checksReceived     int
	respondTo          *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, cloudActorProvider CloudActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        &eventstream.EventStream{},
		cloudActorProvider: cloudActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start Cloud child
		cloudActorPID, err := state.startCloudActor(ctx)
		if err != nil {
			panic(err)
		}
		state.cloudActor = cloudActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Poller child
		pollerActorPID, err := state.startPollerActor(ctx)
		if err != nil {
			panic(err)
		}
		state.pollerActor = pollerActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Cloud Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cloudActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CLOUD,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Poller Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POLLER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.RefreshRequest:
		// external refresh trigger (timer or HTTP endpoint)
		state.logger.Debug("master@default RefreshRequest")
		ctx.Send(state.pollerActor, msg)
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.SetModeCommand:
					ctx.Send(state.pollerActor, pcmd)
				case domain.SetHeatingSetpointCommand:
					ctx.Send(state.pollerActor, pcmd)
				}
			}
		}
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt error")
			panic(errors.New("mqtt terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_CLOUD {
				state.currentHealthCheck.cloudActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_POLLER {
				state.currentHealthCheck.pollerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startCloudActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	cloudProps := actor.PropsFromProducer(func() actor.Actor {
		return state.cloudActorProvider()
	}, actor.WithSupervisor(supervisor))
	cloudActorPID, err := ctx.SpawnNamed(cloudProps, domain.ACTOR_ID_CLOUD)
	if err != nil {
		return nil, err
	}

	return cloudActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startPollerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, state.cloudActor, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	pollerActorPID, err := ctx.SpawnNamed(pollerProps, domain.ACTOR_ID_POLLER)
	if err != nil {
		return nil, err
	}

	return pollerActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.cloudActorHealthy = false
	state.mqttActorHealthy = false
	state.pollerActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.cloudActorHealthy && state.mqttActorHealthy && state.pollerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
