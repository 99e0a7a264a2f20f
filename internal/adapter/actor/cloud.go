package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"icomm2mqtt/internal/config"
	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/core/service"
	"icomm2mqtt/internal/metrics"
	"icomm2mqtt/internal/util/actorutil"
	"icomm2mqtt/pkg/icomm"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// CloudActor serializes access to the iCOMM API. Calls run as background
// tasks so the mailbox never blocks on HTTP; while one call is in flight the
// actor stashes everything else. An unauthorized result invalidates the
// session and retries once after a fresh login; a timeout retries once
// as-is.
type CloudActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler

	config  *config.Config
	client  icomm.Service
	session *service.SessionManager

	logger *zap.Logger
}

type apiCall struct {
	request        any
	replyTo        *actor.PID
	retriedAuth    bool
	retriedTimeout bool
}

type apiCallOutcome struct {
	call    apiCall
	message any
	err     error
}

type retryAPICall struct {
	call apiCall
}

type startupLoginResult struct {
	err error
}

func NewCloudActor(cfg *config.Config, client icomm.Service, logger *zap.Logger) *CloudActor {
	act := &CloudActor{
		config:   cfg,
		client:   client,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_CLOUD, logger),
	}
	act.session = service.NewSessionManager(client, cfg.Account.Email, cfg.Account.Password, act.logger)
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *CloudActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CloudActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("cloud@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)

		if !state.config.Account.HasCredentials() {
			state.logger.Warn("cloud@starting no account credentials configured")
			state.behavior.Become(state.DefaultReceive)
			state.stash.UnstashAll(ctx)
			return
		}

		// warm up the session so the first poll does not pay for login
		actorutil.NewBackgroundTask(ctx, func() (*startupLoginResult, error) {
			_, err := state.session.EnsureSession(context.Background())
			return &startupLoginResult{err: err}, nil
		}).Recover(func(err error) startupLoginResult {
			return startupLoginResult{err: err}
		}).WithTimeout(state.requestTimeout()).PipeTo(ctx.Self())
	case startupLoginResult:
		if msg.err != nil {
			// not fatal: the first poll retries through the normal path
			state.logger.Warn("cloud@starting login failed", zap.Error(msg.err))
		} else {
			state.logger.Info("cloud@starting login successful")
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("cloud@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CloudActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("cloud@default ActorHealthRequest")
		healthState := "no_session"
		if state.session.HasSession() {
			healthState = "session"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CLOUD,
			Healthy: true,
			State:   healthState,
		})
	case domain.GetDeviceListRequest:
		state.logger.Debug("cloud@default GetDeviceListRequest")
		state.execute(ctx, apiCall{request: msg, replyTo: actorutil.ForRequest(msg).ReplyTo(ctx)})
	case domain.UpdateModeRequest:
		state.logger.Debug("cloud@default UpdateModeRequest", zap.String("junctionId", msg.JunctionID), zap.String("mode", msg.Mode))
		state.execute(ctx, apiCall{request: msg, replyTo: actorutil.ForRequest(msg).ReplyTo(ctx)})
	case domain.UpdateSetpointRequest:
		state.logger.Debug("cloud@default UpdateSetpointRequest", zap.String("junctionId", msg.JunctionID), zap.Int("value", msg.Value))
		state.execute(ctx, apiCall{request: msg, replyTo: actorutil.ForRequest(msg).ReplyTo(ctx)})
	case retryAPICall:
		state.logger.Debug("cloud@default retryAPICall", zap.String("type", fmt.Sprintf("%T", msg.call.request)))
		state.execute(ctx, msg.call)
	default:
		state.logger.Debug("cloud@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CloudActor) WaitingCloud(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case apiCallOutcome:
		state.handleOutcome(ctx, msg)
	default:
		state.logger.Debug("cloud@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CloudActor) execute(ctx actor.Context, call apiCall) {
	actorutil.NewBackgroundTask(ctx, func() (*apiCallOutcome, error) {
		message, err := state.performCall(call.request)
		return &apiCallOutcome{call: call, message: message, err: err}, nil
	}).Recover(func(err error) apiCallOutcome {
		return apiCallOutcome{call: call, err: err}
	}).WithTimeout(state.requestTimeout() + 1*time.Second).PipeTo(ctx.Self())

	state.behavior.BecomeStacked(state.WaitingCloud)
}

// performCall runs on a background goroutine. It resolves the session first,
// so a call after an invalidation transparently re-logs in.
func (state *CloudActor) performCall(request any) (any, error) {
	callCtx, cancel := context.WithTimeout(context.Background(), state.requestTimeout())
	defer cancel()

	token, err := state.session.EnsureSession(callCtx)
	if err != nil {
		return nil, err
	}

	switch req := request.(type) {
	case domain.GetDeviceListRequest:
		devices, err := state.client.GetDevices(callCtx, token, req.ForceUpdate, nil)
		if err != nil {
			return nil, err
		}
		return domain.GetDeviceListResponse{Devices: domain.RemoteDevicesFromAPI(devices)}, nil
	case domain.UpdateModeRequest:
		confirmed, err := state.client.UpdateMode(callCtx, token, req.JunctionID, icomm.ModeInput{
			Mode: req.Mode,
			Days: req.Days,
		})
		if err != nil {
			return nil, err
		}
		return domain.UpdateModeResponse{Confirmed: confirmed}, nil
	case domain.UpdateSetpointRequest:
		confirmed, err := state.client.UpdateSetpoint(callCtx, token, req.JunctionID, req.Value)
		if err != nil {
			return nil, err
		}
		return domain.UpdateSetpointResponse{Confirmed: confirmed}, nil
	default:
		return nil, fmt.Errorf("unexpected request type %T", request)
	}
}

func (state *CloudActor) handleOutcome(ctx actor.Context, outcome apiCallOutcome) {
	call := outcome.call

	if outcome.err != nil {
		switch {
		case icomm.IsUnauthorized(outcome.err) && !call.retriedAuth:
			// stale token: drop the session, retry once after a fresh login
			state.logger.Info("cloud@waiting unauthorized, invalidating session and retrying", zap.String("type", fmt.Sprintf("%T", call.request)))
			metrics.ReloginsTotal.Inc()
			state.session.Invalidate()
			call.retriedAuth = true
			state.scheduleRetry(ctx, call)
		case icomm.IsTimeout(outcome.err) && !call.retriedTimeout:
			state.logger.Warn("cloud@waiting timeout, retrying", zap.String("type", fmt.Sprintf("%T", call.request)))
			call.retriedTimeout = true
			state.scheduleRetry(ctx, call)
		default:
			state.logger.Error("cloud@waiting call failed", zap.String("type", fmt.Sprintf("%T", call.request)), zap.Error(outcome.err))
			metrics.APIErrorsTotal.WithLabelValues(errorKind(outcome.err)).Inc()
			ctx.Send(call.replyTo, errorResponse(call.request, outcome.err))
		}
	} else {
		ctx.Send(call.replyTo, outcome.message)
	}

	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *CloudActor) scheduleRetry(ctx actor.Context, call apiCall) {
	delay := time.Duration(state.config.Cloud.RetryDelayMillis) * time.Millisecond
	state.scheduler.RequestOnce(delay, ctx.Self(), retryAPICall{call: call})
}

func (state *CloudActor) requestTimeout() time.Duration {
	if state.config.Cloud.TimeoutSeconds == 0 {
		return 15 * time.Second
	}
	return time.Duration(state.config.Cloud.TimeoutSeconds) * time.Second
}

func errorResponse(request any, err error) any {
	mixin := domain.ActorResponseMixIn{ResponseError: err}
	switch request.(type) {
	case domain.GetDeviceListRequest:
		return domain.GetDeviceListResponse{ActorResponseMixIn: mixin}
	case domain.UpdateModeRequest:
		return domain.UpdateModeResponse{ActorResponseMixIn: mixin}
	case domain.UpdateSetpointRequest:
		return domain.UpdateSetpointResponse{ActorResponseMixIn: mixin}
	default:
		return mixin
	}
}

func errorKind(err error) string {
	switch {
	case icomm.IsUnauthorized(err):
		return metrics.ErrorKindUnauthorized
	case icomm.IsTimeout(err):
		return metrics.ErrorKindTimeout
	case errors.Is(err, icomm.ErrLoginFailed):
		return metrics.ErrorKindLogin
	default:
		return metrics.ErrorKindOther
	}
}
