package domain

import (
	"fmt"
	"strings"

	"icomm2mqtt/pkg/icomm"
)

const (
	MODE_ELECTRIC  = "ELECTRIC"
	MODE_HEAT_PUMP = "HEAT_PUMP"
	MODE_HYBRID    = "HYBRID"
	MODE_VACATION  = "VACATION"
)

// SupportedMode is one entry of the per-device mode table, cached on the
// local entity to validate command requests.
type SupportedMode struct {
	Mode     string
	Controls string
}

func (m SupportedMode) RequiresDays() bool {
	return m.Controls == icomm.ControlSelectDays
}

// RemoteDevice is the poll-sourced record for one water heater, keyed by
// the vendor's stable junction id. It is rebuilt from scratch on every
// poll; field-level diffing happens in the attribute store.
type RemoteDevice struct {
	JunctionID      string
	Brand           string
	Model           string
	DeviceType      string
	DSN             string
	Name            string
	Serial          string
	InstallLocation string

	TemperatureSetpoint        int
	TemperatureSetpointMax     int
	TemperatureSetpointPending bool
	Mode                       string
	ModePending                bool
	IsOnline                   bool
	FirmwareVersion            string
	HotWaterStatus             icomm.HotWaterStatus
	SupportedModes             []SupportedMode
}

// IsWaterHeater filters the raw device list to the known compatible
// device-type tags.
func (d RemoteDevice) IsWaterHeater() bool {
	switch d.DeviceType {
	case icomm.DeviceTypeNextGenHeatPump, icomm.DeviceTypeRE3Connected:
		return true
	default:
		return false
	}
}

// HasPendingChange reports a server-side transient state: a just-submitted
// mode or setpoint change not yet confirmed applied.
func (d RemoteDevice) HasPendingChange() bool {
	return d.ModePending || d.TemperatureSetpointPending
}

// DisplayName is the device name, falling back to a label composed from
// the install location.
func (d RemoteDevice) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.InstallLocation != "" {
		return fmt.Sprintf("%s Water Heater", d.InstallLocation)
	}
	return fmt.Sprintf("Water Heater %s", d.JunctionID)
}

// WaterLevelPercent maps the vendor's hot water status to a remaining-hot-
// water percentage. The numeric form grows as hot water is depleted, so it
// is inverted. Unknown or missing values default to full.
func WaterLevelPercent(status icomm.HotWaterStatus) int {
	if status.Numeric != nil {
		level := 100 - *status.Numeric
		if level < 0 {
			return 0
		}
		if level > 100 {
			return 100
		}
		return level
	}
	switch strings.ToUpper(status.Label) {
	case icomm.HotWaterLow:
		return 0
	case icomm.HotWaterMedium:
		return 50
	case icomm.HotWaterHigh:
		return 100
	default:
		return 100
	}
}

func RemoteDeviceFromAPI(dev icomm.Device) RemoteDevice {
	modes := make([]SupportedMode, 0, len(dev.Data.Modes))
	for _, m := range dev.Data.Modes {
		modes = append(modes, SupportedMode{Mode: m.Mode, Controls: m.Controls})
	}
	return RemoteDevice{
		JunctionID:                 dev.JunctionID,
		Brand:                      dev.Brand,
		Model:                      dev.Model,
		DeviceType:                 dev.DeviceType,
		DSN:                        dev.DSN,
		Name:                       dev.Name,
		Serial:                     dev.Serial,
		InstallLocation:            dev.Install.Location,
		TemperatureSetpoint:        dev.Data.TemperatureSetpoint,
		TemperatureSetpointMax:     dev.Data.TemperatureSetpointMaximum,
		TemperatureSetpointPending: dev.Data.TemperatureSetpointPending,
		Mode:                       dev.Data.Mode,
		ModePending:                dev.Data.ModePending,
		IsOnline:                   dev.Data.IsOnline,
		FirmwareVersion:            dev.Data.FirmwareVersion,
		HotWaterStatus:             dev.Data.HotWaterStatus,
		SupportedModes:             modes,
	}
}

func RemoteDevicesFromAPI(devices []icomm.Device) []RemoteDevice {
	out := make([]RemoteDevice, 0, len(devices))
	for _, dev := range devices {
		out = append(out, RemoteDeviceFromAPI(dev))
	}
	return out
}
