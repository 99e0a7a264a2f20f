package actor

import (
	"testing"
	"time"

	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/util"
	"icomm2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(2 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.NotNil(t, resp)

	es.Publish(domain.AttributeUpdateEvent{
		EntityID:  "test-junction-1",
		Attribute: domain.ATTR_MODE,
		Value:     domain.MODE_HEAT_PUMP,
	})
	es.Publish(domain.AttributeUpdateEvent{
		EntityID:  "test-junction-1",
		Attribute: domain.ATTR_HEATING_SETPOINT,
		Value:     "120",
		Unit:      "°F",
	})

	time.Sleep(1 * time.Second)

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}
