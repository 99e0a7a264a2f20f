package service

import (
	"strconv"
	"sync"

	"icomm2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// Entity is the locally mirrored state of one water heater, used to validate
// commands without a round trip and to rebuild discovery payloads on
// removal.
type Entity struct {
	JunctionID      string
	SupportedModes  []domain.SupportedMode
	CurrentMode     string
	CurrentSetpoint int
	MaxSetpoint     int
	LastSeen        domain.RemoteDevice
}

func (e Entity) SupportedMode(mode string) (domain.SupportedMode, bool) {
	for _, m := range e.SupportedModes {
		if m.Mode == mode {
			return m, true
		}
	}
	return domain.SupportedMode{}, false
}

// ReconcileResult reports what one poll changed: entities created on first
// appearance, entities deleted on disappearance, and whether any device
// still carries an unapplied mode or setpoint change.
type ReconcileResult struct {
	Created       []domain.RemoteDevice
	Deleted       []domain.RemoteDevice
	PendingChange bool
	NoCompatible  bool
}

// Registry mirrors the account's water heaters into entities and projects
// their state into the attribute store.
type Registry struct {
	mu              sync.Mutex
	store           *AttributeStore
	entities        map[string]*Entity
	temperatureUnit string
	logger          *zap.Logger
}

func NewRegistry(store *AttributeStore, temperatureUnit string, logger *zap.Logger) *Registry {
	return &Registry{
		store:           store,
		entities:        make(map[string]*Entity),
		temperatureUnit: temperatureUnit,
		logger:          logger.With(zap.String("component", "registry")),
	}
}

// Reconcile applies one poll result. Devices that are not water heaters are
// ignored. An empty compatible list with entities already mirrored is
// treated as a suspect read: nothing is deleted.
func (r *Registry) Reconcile(devices []domain.RemoteDevice) ReconcileResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result ReconcileResult

	heaters := make([]domain.RemoteDevice, 0, len(devices))
	for _, d := range devices {
		if d.IsWaterHeater() {
			heaters = append(heaters, d)
		}
	}
	if len(heaters) == 0 {
		result.NoCompatible = true
		if len(r.entities) > 0 {
			r.logger.Warn("registry: poll returned no compatible devices, keeping entities")
		}
		return result
	}

	seen := make(map[string]bool, len(heaters))
	for _, d := range heaters {
		seen[d.JunctionID] = true
		entity, ok := r.entities[d.JunctionID]
		if !ok {
			r.logger.Info("registry: new device", zap.String("junctionId", d.JunctionID), zap.String("name", d.DisplayName()))
			entity = &Entity{JunctionID: d.JunctionID}
			r.entities[d.JunctionID] = entity
			result.Created = append(result.Created, d)
		}
		entity.SupportedModes = d.SupportedModes
		entity.CurrentMode = d.Mode
		entity.CurrentSetpoint = d.TemperatureSetpoint
		entity.MaxSetpoint = d.TemperatureSetpointMax
		entity.LastSeen = d

		r.projectAttributes(d)

		if d.HasPendingChange() {
			result.PendingChange = true
		}
	}

	for id, entity := range r.entities {
		if !seen[id] {
			r.logger.Info("registry: device disappeared", zap.String("junctionId", id))
			result.Deleted = append(result.Deleted, entity.LastSeen)
			delete(r.entities, id)
			r.store.Drop(id)
		}
	}

	return result
}

func (r *Registry) Entity(junctionID string) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entity, ok := r.entities[junctionID]
	if !ok {
		return Entity{}, false
	}
	return *entity, true
}

func (r *Registry) Entities() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entity, 0, len(r.entities))
	for _, entity := range r.entities {
		out = append(out, *entity)
	}
	return out
}

// SetBridgeStatus publishes the account connection status on the bridge
// entity, deduplicated like any other attribute.
func (r *Registry) SetBridgeStatus(status string) {
	r.store.Set(domain.ENTITY_ID_BRIDGE, domain.ATTR_STATUS, status)
}

func (r *Registry) projectAttributes(d domain.RemoteDevice) {
	id := d.JunctionID
	r.store.Set(id, domain.ATTR_LABEL, d.DisplayName())
	r.store.Set(id, domain.ATTR_BRAND, d.Brand)
	r.store.Set(id, domain.ATTR_MODEL, d.Model)
	r.store.Set(id, domain.ATTR_DEVICE_TYPE, d.DeviceType)
	r.store.Set(id, domain.ATTR_DSN, d.DSN)
	r.store.Set(id, domain.ATTR_SERIAL, d.Serial)
	r.store.Set(id, domain.ATTR_INSTALL_LOCATION, d.InstallLocation)
	r.store.Set(id, domain.ATTR_MODE, d.Mode)
	r.store.Set(id, domain.ATTR_FIRMWARE_VERSION, d.FirmwareVersion)
	r.store.Set(id, domain.ATTR_IS_ONLINE, strconv.FormatBool(d.IsOnline))
	// one source value mirrored under both setpoint names
	r.store.SetWithUnit(id, domain.ATTR_SETPOINT, strconv.Itoa(d.TemperatureSetpoint), r.temperatureUnit)
	r.store.SetWithUnit(id, domain.ATTR_HEATING_SETPOINT, strconv.Itoa(d.TemperatureSetpoint), r.temperatureUnit)
	r.store.SetWithUnit(id, domain.ATTR_MAX_SETPOINT, strconv.Itoa(d.TemperatureSetpointMax), r.temperatureUnit)
	r.store.SetWithUnit(id, domain.ATTR_WATER_LEVEL, strconv.Itoa(domain.WaterLevelPercent(d.HotWaterStatus)), "%")
}
