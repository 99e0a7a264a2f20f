package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	ENTITY_ID_BRIDGE = "bridge"

	ATTR_STATUS           = "status"
	ATTR_LABEL            = "label"
	ATTR_BRAND            = "brand"
	ATTR_MODEL            = "model"
	ATTR_DEVICE_TYPE      = "device_type"
	ATTR_DSN              = "dsn"
	ATTR_SERIAL           = "serial_number"
	ATTR_INSTALL_LOCATION = "install_location"
	ATTR_MODE             = "mode"
	ATTR_FIRMWARE_VERSION = "firmware_version"
	ATTR_IS_ONLINE        = "is_online"
	ATTR_SETPOINT         = "setpoint"
	ATTR_HEATING_SETPOINT = "heating_setpoint"
	ATTR_MAX_SETPOINT     = "max_heating_setpoint"
	ATTR_WATER_LEVEL      = "hot_water_level"

	STATUS_CONNECTED           = "Connected"
	STATUS_LOGIN_FAILED        = "Login failed"
	STATUS_NO_DEVICES          = "No compatible water heaters found"
	STATUS_CONNECTION_FAILED   = "Connection failed"
	STATUS_MISSING_CREDENTIALS = "Account credentials not configured"

	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
)

// Sensor model for Home Assistant discovery.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	EntityID          string
	Attribute         string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string
	DeviceClass       string
	EntityCategory    string
	Icon              string
}

// GenericWaterHeater describes one HA water_heater entity: current mode and
// setpoint state plus the mode/setpoint command surface.
type GenericWaterHeater struct {
	Device          Device
	EntityID        string
	Name            string
	UniqueId        string
	Modes           []string
	MinTemp         float64
	MaxTemp         float64
	TemperatureUnit string
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("icomm2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Name:         "icomm2mqtt bridge",
		Manufacturer: "icomm2mqtt",
		Model:        "icomm2mqtt bridge",
		Version:      versioninfo.Short(),
	}
}

func BridgeSensors(device Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:      device,
			EntityID:    ENTITY_ID_BRIDGE,
			Attribute:   "state",
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Bridge connected",
			UniqueId:    fmt.Sprintf("%s_state", device.Id),
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,
		},
		{
			Device:         device,
			EntityID:       ENTITY_ID_BRIDGE,
			Attribute:      ATTR_STATUS,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Account status",
			UniqueId:       fmt.Sprintf("%s_status", device.Id),
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
	}
}

func WaterHeaterDevice(d RemoteDevice, viaDevice string) Device {
	manufacturer := d.Brand
	if manufacturer == "" {
		manufacturer = "A. O. Smith"
	}
	return Device{
		Id:           fmt.Sprintf("icomm_wh_%s", md5HashShort(d.JunctionID)),
		Name:         d.DisplayName(),
		Version:      d.FirmwareVersion,
		Model:        d.Model,
		Manufacturer: manufacturer,
		ViaDevice:    viaDevice,
	}
}

// IdDevice strips a device down to its identifier. HA only needs the full
// device record once per device.
func IdDevice(d Device) Device {
	return Device{Id: d.Id}
}

func WaterHeaterEntity(device Device, d RemoteDevice, minTemp int, unit string) GenericWaterHeater {
	modes := make([]string, 0, len(d.SupportedModes))
	for _, m := range d.SupportedModes {
		modes = append(modes, m.Mode)
	}
	maxTemp := d.TemperatureSetpointMax
	if maxTemp <= 0 {
		maxTemp = minTemp
	}
	return GenericWaterHeater{
		Device:          device,
		EntityID:        d.JunctionID,
		Name:            d.DisplayName(),
		UniqueId:        fmt.Sprintf("%s_water_heater", device.Id),
		Modes:           modes,
		MinTemp:         float64(minTemp),
		MaxTemp:         float64(maxTemp),
		TemperatureUnit: unit,
	}
}

func WaterHeaterSensors(device Device, d RemoteDevice) []GenericSensor {
	return []GenericSensor{
		{
			Device:            device,
			EntityID:          d.JunctionID,
			Attribute:         ATTR_WATER_LEVEL,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Hot water level",
			UniqueId:          fmt.Sprintf("%s_hot_water_level", device.Id),
			UnitOfMeasurement: "%",
			StateClass:        STATE_CLASS_MEASUREMENT,
			Icon:              "mdi:water-percent",
		},
		{
			Device:      device,
			EntityID:    d.JunctionID,
			Attribute:   ATTR_IS_ONLINE,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Online",
			UniqueId:    fmt.Sprintf("%s_is_online", device.Id),
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,

			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
		{
			Device:         device,
			EntityID:       d.JunctionID,
			Attribute:      ATTR_FIRMWARE_VERSION,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Firmware version",
			UniqueId:       fmt.Sprintf("%s_firmware_version", device.Id),
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
		{
			Device:         device,
			EntityID:       d.JunctionID,
			Attribute:      ATTR_MODE,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Operating mode",
			UniqueId:       fmt.Sprintf("%s_mode", device.Id),
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
	}
}

func md5HashShort(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])[0:8]
}
