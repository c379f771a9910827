package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Appointment lifecycle event types.
const (
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
	EventAppointmentDeleted = "appointment.deleted"
)

type OutboxEvent struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrganizationID uuid.UUID       `db:"organization_id" json:"organization_id"`
	EventType      string          `db:"event_type" json:"event_type"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	Status         string          `db:"status" json:"status"`
	ErrorMessage   *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount     int             `db:"retry_count" json:"retry_count"`
	RetryAt        *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt    *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// AppointmentEvent is the outbox payload for appointment lifecycle events.
type AppointmentEvent struct {
	Type        string       `json:"type"`
	Appointment *Appointment `json:"appointment"`
	// Previous is set on updates.
	Previous  *Appointment `json:"previous,omitempty"`
	ActorID   uuid.UUID    `json:"actor_id"`
	Timestamp time.Time    `json:"timestamp"`
}
