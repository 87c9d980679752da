package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Matching events
	EventJobMatched EventType = "matching.job_matched"

	// Admission events
	EventApplicationStatusChanged EventType = "admission.status_changed"

	// Notification events
	EventNotificationCreated EventType = "notification.created"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Matching Events
// ═══════════════════════════════════════════════════════════════════════════

// JobMatchedEvent is emitted after a job's ranked candidate list is persisted.
type JobMatchedEvent struct {
	BaseEvent
	JobID               string  `json:"job_id"`
	CompanyID           string  `json:"company_id"`
	ScannedStudents     int     `json:"scanned_students"`
	QualifiedCandidates int     `json:"qualified_candidates"`
	NotificationsSent   int     `json:"notifications_sent"`
	TopScore            float64 `json:"top_score"`
}

// Payload implements Event interface.
func (e JobMatchedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"job_id":               e.JobID,
		"company_id":           e.CompanyID,
		"scanned_students":     e.ScannedStudents,
		"qualified_candidates": e.QualifiedCandidates,
		"notifications_sent":   e.NotificationsSent,
		"top_score":            e.TopScore,
	}
}

// NewJobMatchedEvent creates a new JobMatchedEvent.
func NewJobMatchedEvent(jobID, companyID string, scanned, qualified, notified int, topScore float64) JobMatchedEvent {
	return JobMatchedEvent{
		BaseEvent:           NewBaseEvent(EventJobMatched, jobID),
		JobID:               jobID,
		CompanyID:           companyID,
		ScannedStudents:     scanned,
		QualifiedCandidates: qualified,
		NotificationsSent:   notified,
		TopScore:            topScore,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Admission Events
// ═══════════════════════════════════════════════════════════════════════════

// ApplicationStatusChangedEvent is emitted after an allocator transition commits.
type ApplicationStatusChangedEvent struct {
	BaseEvent
	ApplicationID  string `json:"application_id"`
	InstitutionID  string `json:"institution_id"`
	StudentID      string `json:"student_id"`
	CourseID       string `json:"course_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	AvailableSeats int    `json:"available_seats"`
}

// Payload implements Event interface.
func (e ApplicationStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id":  e.ApplicationID,
		"institution_id":  e.InstitutionID,
		"student_id":      e.StudentID,
		"course_id":       e.CourseID,
		"previous_status": e.PreviousStatus,
		"new_status":      e.NewStatus,
		"available_seats": e.AvailableSeats,
	}
}

// SeatReleased reports whether the transition gave a seat back to the course.
func (e ApplicationStatusChangedEvent) SeatReleased() bool {
	return e.PreviousStatus == "admitted" && e.NewStatus != "admitted"
}

// NewApplicationStatusChangedEvent creates a new ApplicationStatusChangedEvent.
func NewApplicationStatusChangedEvent(applicationID, institutionID, studentID, courseID, previous, next string, availableSeats int) ApplicationStatusChangedEvent {
	return ApplicationStatusChangedEvent{
		BaseEvent:      NewBaseEvent(EventApplicationStatusChanged, applicationID),
		ApplicationID:  applicationID,
		InstitutionID:  institutionID,
		StudentID:      studentID,
		CourseID:       courseID,
		PreviousStatus: previous,
		NewStatus:      next,
		AvailableSeats: availableSeats,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Events
// ═══════════════════════════════════════════════════════════════════════════

// NotificationCreatedEvent is emitted when a notification record is stored.
type NotificationCreatedEvent struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	JobID          string `json:"job_id,omitempty"`
}

// Payload implements Event interface.
func (e NotificationCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"notification_id": e.NotificationID,
		"user_id":         e.UserID,
		"type":            e.Type,
		"job_id":          e.JobID,
	}
}

// NewNotificationCreatedEvent creates a new NotificationCreatedEvent.
func NewNotificationCreatedEvent(notificationID, userID, notificationType, jobID string) NotificationCreatedEvent {
	return NotificationCreatedEvent{
		BaseEvent:      NewBaseEvent(EventNotificationCreated, notificationID),
		NotificationID: notificationID,
		UserID:         userID,
		Type:           notificationType,
		JobID:          jobID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
