package domain

// AttributeUpdateEvent is published on the event stream whenever the
// attribute store accepts a changed value. It is the sole write path from
// the core toward the host platform.
type AttributeUpdateEvent struct {
	EntityID  string
	Attribute string
	Value     string
	Unit      string
}
