package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Account  AccountConfig `mapstructure:"account"`
	Cloud    CloudConfig   `mapstructure:"cloud"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Poll     PollConfig    `mapstructure:"poll"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type AccountConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Brand    string `mapstructure:"brand"`
}

type CloudConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	TimeoutSeconds    uint32 `mapstructure:"timeout_seconds"`
	RetryDelayMillis  uint32 `mapstructure:"retry_delay_millis"`
	ForceDeviceUpdate bool   `mapstructure:"force_device_update"`
}

type PollConfig struct {
	IntervalSeconds          uint32 `mapstructure:"interval_seconds"`
	PendingRepollSeconds     uint32 `mapstructure:"pending_repoll_seconds"`
	PostCommandRepollSeconds uint32 `mapstructure:"post_command_repoll_seconds"`
	// TemperatureUnit is attached to setpoint attributes: "F" or "C".
	TemperatureUnit string `mapstructure:"temperature_unit"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// HasCredentials reports whether the account is configured at all. A poll
// without credentials fails fast with a status update instead of hitting
// the network.
func (c AccountConfig) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// TemperatureUnitSymbol renders the configured unit the way Home Assistant
// expects it ("°F"/"°C").
func (c PollConfig) TemperatureUnitSymbol() string {
	if strings.EqualFold(c.TemperatureUnit, "C") {
		return "°C"
	}
	return "°F"
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
