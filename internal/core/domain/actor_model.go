package domain

const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_CLOUD  = "cloud"
	ACTOR_ID_MQTT   = "mqtt"
	ACTOR_ID_POLLER = "poller"
)

// RefreshRequest triggers a poll cycle. Sent by the quartz job, the HTTP
// refresh endpoint, pending-state re-polls and post-command re-polls.
type RefreshRequest struct {
	ActorRequestMixIn
}

type GetDeviceListRequest struct {
	ActorRequestMixIn
	ForceUpdate bool
}

type GetDeviceListResponse struct {
	ActorResponseMixIn
	Devices []RemoteDevice
}

type UpdateModeRequest struct {
	ActorRequestMixIn
	JunctionID string
	Mode       string
	Days       *int
}

type UpdateModeResponse struct {
	ActorResponseMixIn
	Confirmed bool
}

type UpdateSetpointRequest struct {
	ActorRequestMixIn
	JunctionID string
	Value      int
}

type UpdateSetpointResponse struct {
	ActorResponseMixIn
	Confirmed bool
}

// SetModeCommand is a user-issued mode change, parsed from the MQTT command
// topic and validated by the dispatcher before it becomes an UpdateModeRequest.
type SetModeCommand struct {
	JunctionID string
	Mode       string
	Days       *int
}

// SetHeatingSetpointCommand is a user-issued setpoint change. A nil
// temperature normalizes to the minimum allowed setpoint.
type SetHeatingSetpointCommand struct {
	JunctionID  string
	Temperature *int
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	WaterHeaters []GenericWaterHeater
	Sensors      []GenericSensor
}

// RemoveDiscoveryRequest retracts previously published discovery configs by
// publishing empty payloads to the same topics.
type RemoveDiscoveryRequest struct {
	ActorRequestMixIn
	WaterHeaters []GenericWaterHeater
	Sensors      []GenericSensor
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
