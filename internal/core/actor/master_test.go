package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "icomm2mqtt/internal/adapter/actor"
	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/mqtt"
	"icomm2mqtt/internal/util"
	"icomm2mqtt/pkg/icomm"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var mqttModeCommand = mqtt.ParsedMQTTCommand{
	DeviceId: "test-junction-1",
	Command:  mqtt.COMMAND_MODE,
	Payload:  "electric",
}

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	svc := icomm.NewTestService()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.CloudActor {
			return adactor.NewCloudActor(&cfg, svc, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// commands parsed from MQTT topics end up at the cloud API
	context.Send(pid, adactor.ParsedCommand{Command: &mqttModeCommand})

	time.Sleep(2 * time.Second)

	_, _, modeCalls, _ := svc.Counts()
	assert.Equal(t, 1, modeCalls)
	assert.Equal(t, domain.MODE_ELECTRIC, svc.LastMode.Mode)

	context.Stop(pid)

	as.Shutdown()
}
