package actor

import (
	"testing"
	"time"

	"icomm2mqtt/internal/core/domain"
	"icomm2mqtt/internal/util"
	"icomm2mqtt/pkg/icomm"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnCloudActor(t *testing.T, svc *icomm.TestService) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	t.Helper()

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actor.NewActorSystem()
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCloudActor(&cfg, svc, logger)
	})
	pid := context.Spawn(props)
	return as, context, pid
}

func TestCloudActorDeviceList(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetDeviceListRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.GetDeviceListResponse)
	require.True(ok)
	require.False(resp.HasResponseError())
	require.Len(resp.Devices, 1)
	require.Equal("test-junction-1", resp.Devices[0].JunctionID)

	login, devices, _, _ := svc.Counts()
	assert.Equal(t, 1, login, "startup login must be reused")
	assert.Equal(t, 1, devices)

	context.Stop(pid)
}

func TestCloudActorUnauthorizedRetriesOnce(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.DeviceErrs = []error{icomm.ErrUnauthorized}
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetDeviceListRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.GetDeviceListResponse)
	require.True(ok)
	require.False(resp.HasResponseError(), "retry after relogin must succeed")
	require.Len(resp.Devices, 1)

	login, devices, _, _ := svc.Counts()
	assert.Equal(t, 2, login, "one startup login plus one relogin")
	assert.Equal(t, 2, devices, "original call plus exactly one retry")

	context.Stop(pid)
}

func TestCloudActorUnauthorizedTwiceFails(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.DeviceErrs = []error{icomm.ErrUnauthorized, icomm.ErrUnauthorized}
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetDeviceListRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.GetDeviceListResponse)
	require.True(ok)
	require.True(resp.HasResponseError(), "second unauthorized must not retry again")
	require.True(icomm.IsUnauthorized(resp.GetResponseError()))

	_, devices, _, _ := svc.Counts()
	assert.Equal(t, 2, devices)

	context.Stop(pid)
}

func TestCloudActorTimeoutRetriesOnce(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.DeviceErrs = []error{icomm.ErrTimeout}
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetDeviceListRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.GetDeviceListResponse)
	require.True(ok)
	require.False(resp.HasResponseError())

	_, devices, _, _ := svc.Counts()
	assert.Equal(t, 2, devices)

	context.Stop(pid)
}

func TestCloudActorTimeoutTwiceFails(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.DeviceErrs = []error{icomm.ErrTimeout, icomm.ErrTimeout}
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.GetDeviceListRequest{}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.GetDeviceListResponse)
	require.True(ok)
	require.True(resp.HasResponseError())
	require.True(icomm.IsTimeout(resp.GetResponseError()))

	context.Stop(pid)
}

func TestCloudActorUpdateMode(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	days := 30
	result, err := context.RequestFuture(pid, domain.UpdateModeRequest{
		JunctionID: "test-junction-1",
		Mode:       domain.MODE_VACATION,
		Days:       &days,
	}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.UpdateModeResponse)
	require.True(ok)
	require.False(resp.HasResponseError())
	require.True(resp.Confirmed)

	assert.Equal(t, domain.MODE_VACATION, svc.LastMode.Mode)
	require.NotNil(svc.LastMode.Days)
	assert.Equal(t, 30, *svc.LastMode.Days)

	context.Stop(pid)
}

func TestCloudActorUpdateSetpointUnconfirmed(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.SetpointConfirmed = false
	as, context, pid := spawnCloudActor(t, svc)
	defer as.Shutdown()

	result, err := context.RequestFuture(pid, domain.UpdateSetpointRequest{
		JunctionID: "test-junction-1",
		Value:      125,
	}, 5*time.Second).Result()
	require.NoError(err)

	resp, ok := result.(domain.UpdateSetpointResponse)
	require.True(ok)
	require.False(resp.HasResponseError())
	require.False(resp.Confirmed)
	assert.Equal(t, 125, svc.LastSetpoint)

	context.Stop(pid)
}
