package entity

import "time"

type EventType string

const (
	EventDoubtCreated    EventType = "doubt.created"
	EventDoubtAssigned   EventType = "doubt.assigned"
	EventDoubtResolved   EventType = "doubt.resolved"
	EventRatingSubmitted EventType = "rating.submitted"
)

// DomainEvent is published for downstream consumers such as SLA warning and
// faculty performance reports.
type DomainEvent struct {
	Type       EventType `json:"type"`
	DoubtID    string    `json:"doubt_id"`
	PaperID    string    `json:"paper_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	FacultyID  string    `json:"faculty_id,omitempty"`
	Rating     int       `json:"rating,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
