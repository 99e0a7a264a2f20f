package actorutil

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a parsed MQTT command topic payload to a
// domain command. Mode payloads accept an optional day count suffix
// ("VACATION:30") for modes that take one.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (any, error) {
	switch cmd.Command {
	case mqtt.COMMAND_MODE:
		mode := strings.TrimSpace(cmd.Payload)
		var days *int
		if idx := strings.IndexByte(mode, ':'); idx >= 0 {
			value, err := strconv.Atoi(strings.TrimSpace(mode[idx+1:]))
			if err != nil {
				return nil, err
			}
			days = &value
			mode = strings.TrimSpace(mode[:idx])
		}
		return domain.SetModeCommand{
			JunctionID: cmd.DeviceId,
			Mode:       strings.ToUpper(mode),
			Days:       days,
		}, nil
	case mqtt.COMMAND_SETPOINT:
		value, err := strconv.ParseFloat(strings.TrimSpace(cmd.Payload), 64)
		if err != nil {
			return nil, err
		}
		temp := int(value)
		return domain.SetHeatingSetpointCommand{
			JunctionID:  cmd.DeviceId,
			Temperature: &temp,
		}, nil
	}
	return nil, nil
}
