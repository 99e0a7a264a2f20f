package mqtt

import (
	"fmt"

	"icomm2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`

	// water_heater platform fields
	Modes                   []string `json:"modes,omitempty"`
	ModeStateTopic          string   `json:"mode_state_topic,omitempty"`
	ModeCommandTopic        string   `json:"mode_command_topic,omitempty"`
	TemperatureStateTopic   string   `json:"temperature_state_topic,omitempty"`
	TemperatureCommandTopic string   `json:"temperature_command_topic,omitempty"`
	MinTemp                 float64  `json:"min_temp,omitempty"`
	MaxTemp                 float64  `json:"max_temp,omitempty"`
	TemperatureUnit         string   `json:"temperature_unit,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoverySensorTopic(discoveryTopic string, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s", discoveryTopic, sensor.SensorType, sensor.Device.Id, configObject(sensor.Attribute))
}

func HADiscoveryWaterHeaterTopic(discoveryTopic string, wh domain.GenericWaterHeater) string {
	return fmt.Sprintf("%s/water_heater/%s/%s", discoveryTopic, wh.Device.Id, configObject("water_heater"))
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	dev := device(sensor.Device)
	var topic string
	if sensor.EntityID == domain.ENTITY_ID_BRIDGE && sensor.Attribute == "state" {
		topic = client.BridgeStateTopic()
	} else {
		topic = client.AttributeStateTopic(sensor.EntityID, sensor.Attribute)
	}
	disConfig := HADiscoveryConfig{
		Device:            dev,
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		Platform:          "mqtt",
	}
	if sensor.EntityID != domain.ENTITY_ID_BRIDGE {
		disConfig.AvTopic = client.BridgeStateTopic()
	}
	if sensor.SensorType == domain.SENSOR_TYPE_BINARY {
		if sensor.EntityID == domain.ENTITY_ID_BRIDGE {
			disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
			disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
		} else {
			disConfig.PayloadOn = "true"
			disConfig.PayloadOff = "false"
		}
	}
	return disConfig
}

func GenericWaterHeaterToHADiscoveryMessage(client *MQTTClient, wh domain.GenericWaterHeater) HADiscoveryConfig {
	dev := device(wh.Device)
	return HADiscoveryConfig{
		Device:                  dev,
		AvTopic:                 client.BridgeStateTopic(),
		Name:                    wh.Name,
		UniqueId:                wh.UniqueId,
		Platform:                "mqtt",
		Modes:                   wh.Modes,
		ModeStateTopic:          client.AttributeStateTopic(wh.EntityID, domain.ATTR_MODE),
		ModeCommandTopic:        client.ModeCommandTopic(wh.EntityID),
		TemperatureStateTopic:   client.AttributeStateTopic(wh.EntityID, domain.ATTR_HEATING_SETPOINT),
		TemperatureCommandTopic: client.SetpointCommandTopic(wh.EntityID),
		MinTemp:                 wh.MinTemp,
		MaxTemp:                 wh.MaxTemp,
		TemperatureUnit:         temperatureUnitLetter(wh.TemperatureUnit),
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}

func configObject(attribute string) string {
	return fmt.Sprintf("%s/config", attribute)
}

// HA wants the bare letter here, not the degree symbol used on sensors.
func temperatureUnitLetter(unit string) string {
	if unit == "°C" || unit == "C" {
		return "C"
	}
	return "F"
}
