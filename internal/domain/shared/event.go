package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something an aggregate records for handlers to react to
// after the transaction that raised it commits
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent carries the envelope every madrasa event shares. Concrete
// events embed it and add their own payload fields.
type BaseDomainEvent struct {
	EventUUID    uuid.UUID `json:"event_id"`
	Topic        string    `json:"event_type"`
	At           time.Time `json:"occurred_at"`
	SourceID     uuid.UUID `json:"aggregate_id"`
	SourceKind   string    `json:"aggregate_type"`
	Organization uuid.UUID `json:"tenant_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.EventUUID }
func (e *BaseDomainEvent) EventType() string      { return e.Topic }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.SourceID }
func (e *BaseDomainEvent) AggregateType() string  { return e.SourceKind }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.Organization }

// NewBaseDomainEvent stamps a fresh event ID and the current UTC time
func NewBaseDomainEvent(name, sourceKind string, sourceID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		EventUUID:    uuid.New(),
		Topic:        name,
		At:           time.Now().UTC(),
		SourceID:     sourceID,
		SourceKind:   sourceKind,
		Organization: tenantID,
	}
}
