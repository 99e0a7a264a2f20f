package util

import (
	"icomm2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Account: config.AccountConfig{
			Email:    "test@example.com",
			Password: "secret",
			Brand:    "aosmith",
		},
		Cloud: config.CloudConfig{
			TimeoutSeconds:   2,
			RetryDelayMillis: 10,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "icomm2mqtt",
			HADiscoveryTopic: "homeassistant",
		},
		Poll: config.PollConfig{
			IntervalSeconds:          30,
			PendingRepollSeconds:     1,
			PostCommandRepollSeconds: 1,
			TemperatureUnit:          "F",
		},
		Port: 8080,
	}
}
