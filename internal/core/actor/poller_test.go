package actor

import (
	"sync"
	"testing"
	"time"

	adactor "icomm2mqtt/internal/adapter/actor"
	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/util"
	"icomm2mqtt/pkg/icomm"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.AttributeUpdateEvent
}

func (r *eventRecorder) record(value any) {
	if ev, ok := value.(domain.AttributeUpdateEvent); ok {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	}
}

func (r *eventRecorder) count(entityID, attribute string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.EntityID == entityID && ev.Attribute == attribute {
			n++
		}
	}
	return n
}

func (r *eventRecorder) find(entityID, attribute string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// last write wins
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EntityID == entityID && r.events[i].Attribute == attribute {
			return r.events[i].Value, true
		}
	}
	return "", false
}

func spawnPoller(t *testing.T, svc *icomm.TestService) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *eventRecorder) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actor.NewActorSystem()
	context := as.Root

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	es.Subscribe(recorder.record)

	cloudPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewCloudActor(&cfg, svc, logger)
	}))
	mqttPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, es, logger)
	}))
	pollerPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, cloudPID, mqttPID, es, logger)
	}))
	return as, context, pollerPID, recorder
}

func TestPollerMirrorsDevices(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid, recorder := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	status, ok := recorder.find(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS)
	require.True(ok)
	require.Equal(domain.STATUS_CONNECTED, status)

	mode, ok := recorder.find("test-junction-1", domain.ATTR_MODE)
	require.True(ok)
	require.Equal(domain.MODE_HEAT_PUMP, mode)

	setpoint, ok := recorder.find("test-junction-1", domain.ATTR_HEATING_SETPOINT)
	require.True(ok)
	require.Equal("120", setpoint)

	level, ok := recorder.find("test-junction-1", domain.ATTR_WATER_LEVEL)
	require.True(ok)
	require.Equal("100", level)

	context.Stop(pid)
}

func TestPollerRedundantCommandsSkipAPI(t *testing.T) {

	svc := icomm.NewTestService()
	as, context, pid, _ := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	// device is already in HEAT_PUMP at 120: both commands are no-ops
	context.Send(pid, domain.SetModeCommand{JunctionID: "test-junction-1", Mode: domain.MODE_HEAT_PUMP})
	setpoint := 120
	context.Send(pid, domain.SetHeatingSetpointCommand{JunctionID: "test-junction-1", Temperature: &setpoint})

	time.Sleep(1 * time.Second)

	_, _, modeCalls, setpointCalls := svc.Counts()
	assert.Equal(t, 0, modeCalls)
	assert.Equal(t, 0, setpointCalls)

	context.Stop(pid)
}

func TestPollerCommandTriggersRepoll(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid, _ := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	_, devicesBefore, _, _ := svc.Counts()

	context.Send(pid, domain.SetModeCommand{JunctionID: "test-junction-1", Mode: domain.MODE_ELECTRIC})

	// post-command re-poll fires after one second in the test config
	time.Sleep(3 * time.Second)

	_, devicesAfter, modeCalls, _ := svc.Counts()
	require.Equal(1, modeCalls)
	assert.Greater(t, devicesAfter, devicesBefore, "command must be followed by a re-poll")

	context.Stop(pid)
}

func TestPollerLoginFailureStatus(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	// covers the startup warm-up login and the poll's login
	svc.LoginErrs = []error{icomm.ErrLoginFailed, icomm.ErrLoginFailed, icomm.ErrLoginFailed}

	as, context, pid, recorder := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	status, ok := recorder.find(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS)
	require.True(ok)
	require.Equal(domain.STATUS_LOGIN_FAILED, status)

	context.Stop(pid)
}

func TestPollerIncompatibleDevicesStatus(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid, recorder := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	status, ok := recorder.find(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS)
	require.True(ok)
	require.Equal(domain.STATUS_CONNECTED, status)

	// the account now only reports a device type this bridge does not handle
	legacy := icomm.TestWaterHeater("test-junction-1", "Test Heater")
	legacy.DeviceType = "LEGACY_TANK"
	svc.SetDevices(legacy)

	context.Send(pid, domain.RefreshRequest{})
	time.Sleep(2 * time.Second)

	status, ok = recorder.find(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS)
	require.True(ok)
	require.Equal(domain.STATUS_NO_DEVICES, status)

	// a suspect read keeps the entity: when the device comes back unchanged
	// its attributes are still cached and nothing is republished
	modeEvents := recorder.count("test-junction-1", domain.ATTR_MODE)
	svc.SetDevices(icomm.TestWaterHeater("test-junction-1", "Test Heater"))

	context.Send(pid, domain.RefreshRequest{})
	time.Sleep(2 * time.Second)

	assert.Equal(t, modeEvents, recorder.count("test-junction-1", domain.ATTR_MODE))

	status, ok = recorder.find(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS)
	require.True(ok)
	require.Equal(domain.STATUS_CONNECTED, status)

	context.Stop(pid)
}

func TestPollerHealthCheck(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid, _ := spawnPoller(t, svc)
	defer as.Shutdown()

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.ActorHealthResponse)
	require.True(ok)
	require.Equal(domain.ACTOR_ID_POLLER, resp.Id)
	require.True(resp.Healthy)

	context.Stop(pid)
}
