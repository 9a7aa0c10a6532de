package service

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingAssigned      = "booking.assigned"
)

// EventPublisher pushes live events to connected consoles. Publish must not block.
type EventPublisher interface {
	Publish(event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// NoopPublisher discards every event
func NoopPublisher() EventPublisher { return noopPublisher{} }
