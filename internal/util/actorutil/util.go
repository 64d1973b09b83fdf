package actorutil

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/mqtt"

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
	case zap.ErrorLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an entity command topic to the request the
// freeds actor understands.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_SWITCH, mqtt.COMMAND_LIGHT:
		if _, ok := domain.FindToggleEntity(cmd.DeviceId); !ok {
			return nil, fmt.Errorf("unknown entity %q", cmd.DeviceId)
		}
		var on bool
		switch strings.ToLower(strings.TrimSpace(cmd.Payload)) {
		case mqtt.MQTT_PAYLOAD_ON:
			on = true
		case mqtt.MQTT_PAYLOAD_OFF:
			on = false
		default:
			return nil, fmt.Errorf("invalid payload %q for %s", cmd.Payload, cmd.DeviceId)
		}
		return domain.SetEntityStateRequest{
			EntityId: cmd.DeviceId,
			On:       on,
		}, nil
	case mqtt.COMMAND_BUTTON:
		if cmd.DeviceId != domain.BUTTON_ID_REBOOT {
			return nil, fmt.Errorf("unknown button %q", cmd.DeviceId)
		}
		return domain.PressButtonRequest{
			EntityId: cmd.DeviceId,
		}, nil
	}
	return nil, fmt.Errorf("unsupported command %q", cmd.Command)
}
