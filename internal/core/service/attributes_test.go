package service

import (
	"testing"

	"icomm2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
)

func collectEvents(es *eventstream.EventStream) *[]domain.AttributeUpdateEvent {
	events := []domain.AttributeUpdateEvent{}
	es.Subscribe(func(value any) {
		if ev, ok := value.(domain.AttributeUpdateEvent); ok {
			events = append(events, ev)
		}
	})
	return &events
}

func TestAttributeStoreSuppressesUnchanged(t *testing.T) {

	assert := assert.New(t)

	es := &eventstream.EventStream{}
	events := collectEvents(es)
	store := NewAttributeStore(es)

	assert.True(store.Set("wh1", domain.ATTR_MODE, "HEAT_PUMP"))
	assert.False(store.Set("wh1", domain.ATTR_MODE, "HEAT_PUMP"), "unchanged value must not publish")
	assert.True(store.Set("wh1", domain.ATTR_MODE, "ELECTRIC"))

	assert.Len(*events, 2)
	assert.Equal("HEAT_PUMP", (*events)[0].Value)
	assert.Equal("ELECTRIC", (*events)[1].Value)
}

func TestAttributeStoreUnit(t *testing.T) {

	assert := assert.New(t)

	es := &eventstream.EventStream{}
	events := collectEvents(es)
	store := NewAttributeStore(es)

	assert.True(store.SetWithUnit("wh1", domain.ATTR_HEATING_SETPOINT, "120", "°F"))

	assert.Len(*events, 1)
	assert.Equal("°F", (*events)[0].Unit)

	value, ok := store.Get("wh1", domain.ATTR_HEATING_SETPOINT)
	assert.True(ok)
	assert.Equal("120", value)
}

func TestAttributeStoreDropRepublishes(t *testing.T) {

	assert := assert.New(t)

	es := &eventstream.EventStream{}
	events := collectEvents(es)
	store := NewAttributeStore(es)

	store.Set("wh1", domain.ATTR_MODE, "HEAT_PUMP")
	store.Drop("wh1")

	_, ok := store.Get("wh1", domain.ATTR_MODE)
	assert.False(ok)

	assert.True(store.Set("wh1", domain.ATTR_MODE, "HEAT_PUMP"), "dropped entity must republish")
	assert.Len(*events, 2)
}
