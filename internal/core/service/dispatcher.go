package service

import (
	"errors"

	"icomm2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

const (
	// MinSetpoint is the lowest temperature the API accepts on updateSetpoint.
	MinSetpoint = 95
	// DefaultVacationDays is the sentinel the vendor app sends when vacation
	// mode is selected without a day count.
	DefaultVacationDays = 100
	MinVacationDays     = 1
	MaxVacationDays     = 100
)

var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrUnsupportedMode = errors.New("mode not supported by device")
)

// Dispatcher validates user commands against the mirrored entity state and
// turns them into API requests. A nil request with a nil error means the
// command is a no-op against current state.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With(zap.String("component", "dispatcher")),
	}
}

func (d *Dispatcher) SetMode(cmd domain.SetModeCommand) (*domain.UpdateModeRequest, error) {
	entity, ok := d.registry.Entity(cmd.JunctionID)
	if !ok {
		return nil, ErrUnknownDevice
	}
	mode, ok := entity.SupportedMode(cmd.Mode)
	if !ok {
		d.logger.Warn("dispatcher: unsupported mode", zap.String("junctionId", cmd.JunctionID), zap.String("mode", cmd.Mode))
		return nil, ErrUnsupportedMode
	}

	var days *int
	if mode.RequiresDays() {
		value := DefaultVacationDays
		if cmd.Days != nil {
			value = clampDays(d.logger, cmd.JunctionID, *cmd.Days)
		}
		days = &value
	} else if cmd.Days != nil {
		d.logger.Warn("dispatcher: mode takes no day count, dropping", zap.String("junctionId", cmd.JunctionID), zap.String("mode", cmd.Mode), zap.Int("days", *cmd.Days))
	}

	// a repeated plain mode is a no-op, but a day-counted mode always goes
	// through since the remaining days are not mirrored locally
	if days == nil && mode.Mode == entity.CurrentMode {
		d.logger.Debug("dispatcher: mode unchanged, skipping", zap.String("junctionId", cmd.JunctionID), zap.String("mode", cmd.Mode))
		return nil, nil
	}

	return &domain.UpdateModeRequest{
		JunctionID: cmd.JunctionID,
		Mode:       mode.Mode,
		Days:       days,
	}, nil
}

func (d *Dispatcher) SetHeatingSetpoint(cmd domain.SetHeatingSetpointCommand) (*domain.UpdateSetpointRequest, error) {
	entity, ok := d.registry.Entity(cmd.JunctionID)
	if !ok {
		return nil, ErrUnknownDevice
	}

	value := MinSetpoint
	if cmd.Temperature != nil {
		value = *cmd.Temperature
	}
	if value < MinSetpoint {
		d.logger.Warn("dispatcher: setpoint below minimum, clamping", zap.String("junctionId", cmd.JunctionID), zap.Int("value", value))
		value = MinSetpoint
	}
	if entity.MaxSetpoint > 0 && value > entity.MaxSetpoint {
		d.logger.Warn("dispatcher: setpoint above maximum, clamping", zap.String("junctionId", cmd.JunctionID), zap.Int("value", value), zap.Int("max", entity.MaxSetpoint))
		value = entity.MaxSetpoint
	}

	if value == entity.CurrentSetpoint {
		d.logger.Debug("dispatcher: setpoint unchanged, skipping", zap.String("junctionId", cmd.JunctionID), zap.Int("value", value))
		return nil, nil
	}

	return &domain.UpdateSetpointRequest{
		JunctionID: cmd.JunctionID,
		Value:      value,
	}, nil
}

func clampDays(logger *zap.Logger, junctionID string, days int) int {
	if days < MinVacationDays {
		logger.Warn("dispatcher: day count below minimum, clamping", zap.String("junctionId", junctionID), zap.Int("days", days))
		return MinVacationDays
	}
	if days > MaxVacationDays {
		logger.Warn("dispatcher: day count above maximum, clamping", zap.String("junctionId", junctionID), zap.Int("days", days))
		return MaxVacationDays
	}
	return days
}
