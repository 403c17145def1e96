package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes,omitempty" db:"changes"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Reason     string          `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionOverride = "override"
	AuditActionArchive  = "archive"

	// Entity types
	AuditEntityMedicine           = "medicine"
	AuditEntityPatient            = "patient"
	AuditEntityPrescription       = "prescription"
	AuditEntityAppointment        = "appointment"
	AuditEntitySafetyNotification = "safety_notification"
)
