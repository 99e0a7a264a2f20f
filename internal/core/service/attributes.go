package service

import (
	"sync"

	"icomm2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/eventstream"
)

// AttributeStore holds the last published value of every entity attribute.
// Set only publishes an AttributeUpdateEvent when the value actually
// changed, so repeated polls with identical data produce no MQTT traffic.
type AttributeStore struct {
	mu     sync.Mutex
	values map[string]map[string]string
	stream *eventstream.EventStream
}

func NewAttributeStore(stream *eventstream.EventStream) *AttributeStore {
	return &AttributeStore{
		values: make(map[string]map[string]string),
		stream: stream,
	}
}

func (s *AttributeStore) Set(entityID, attribute, value string) bool {
	return s.SetWithUnit(entityID, attribute, value, "")
}

func (s *AttributeStore) SetWithUnit(entityID, attribute, value, unit string) bool {
	s.mu.Lock()
	attrs, ok := s.values[entityID]
	if !ok {
		attrs = make(map[string]string)
		s.values[entityID] = attrs
	}
	if current, ok := attrs[attribute]; ok && current == value {
		s.mu.Unlock()
		return false
	}
	attrs[attribute] = value
	s.mu.Unlock()

	s.stream.Publish(domain.AttributeUpdateEvent{
		EntityID:  entityID,
		Attribute: attribute,
		Value:     value,
		Unit:      unit,
	})
	return true
}

func (s *AttributeStore) Get(entityID, attribute string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.values[entityID]
	if !ok {
		return "", false
	}
	value, ok := attrs[attribute]
	return value, ok
}

// Drop forgets every attribute of an entity. Used when a device disappears
// from the account so a re-created entity republishes from scratch.
func (s *AttributeStore) Drop(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, entityID)
}
