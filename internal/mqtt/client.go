package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"icomm2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	COMMAND_MODE     = "mode"
	COMMAND_SETPOINT = "setpoint"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("icomm2mqtt_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                mqtt.NewClient(opts),
		cfg:                   cfg.MQTT,
		modeCommandRegexp:     modeCommandExtractor(cfg.MQTT.BaseTopic),
		setpointCommandRegexp: setpointCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                mqtt.Client
	cfg                   config.MQTTConfig
	modeCommandRegexp     *regexp.Regexp
	setpointCommandRegexp *regexp.Regexp
}

// ParsedMQTTCommand is a device command extracted from a command topic:
// a mode change or a setpoint change for one junction id.
type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) AttributeStateTopic(entityId, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/state", c.baseTopic(), entityId, attribute)
}

func (c *MQTTClient) ModeCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/%s/mode/set", c.baseTopic(), entityId)
}

func (c *MQTTClient) SetpointCommandTopic(entityId string) string {
	return fmt.Sprintf("%s/%s/setpoint/set", c.baseTopic(), entityId)
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	modeCmd, err := c.parseModeMQTTCommand(msg)
	if err == nil {
		return modeCmd, nil
	}
	setpointCmd, err := c.parseSetpointMQTTCommand(msg)
	if err == nil {
		return setpointCmd, nil
	}
	return nil, err
}

func (c *MQTTClient) parseModeMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	topic := msg.Topic()
	matches := c.modeCommandRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 {
		return nil, errors.New("invalid command")
	}
	if len(matches[0]) != 2 {
		return nil, errors.New("invalid mode command")
	}
	return &ParsedMQTTCommand{
		DeviceId: matches[0][1],
		Command:  COMMAND_MODE,
		Payload:  string(msg.Payload()),
	}, nil
}

func (c *MQTTClient) parseSetpointMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	topic := msg.Topic()
	matches := c.setpointCommandRegexp.FindAllStringSubmatch(topic, 1)
	if len(matches) == 0 {
		return nil, errors.New("invalid command")
	}
	if len(matches[0]) != 2 {
		return nil, errors.New("invalid setpoint command")
	}
	return &ParsedMQTTCommand{
		DeviceId: matches[0][1],
		Command:  COMMAND_SETPOINT,
		Payload:  string(msg.Payload()),
	}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func modeCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/([a-zA-Z0-9_-]+)/mode/set", baseTopic))
}

func setpointCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/([a-zA-Z0-9_-]+)/setpoint/set", baseTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
