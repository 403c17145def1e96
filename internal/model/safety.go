package model

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

type NotificationType string

const (
	NotificationInteraction      NotificationType = "interaction"
	NotificationContraindication NotificationType = "contraindication"
	NotificationDuplicate        NotificationType = "duplicate"
	NotificationAgeForbidden     NotificationType = "age_forbidden"
	NotificationIncompatibility  NotificationType = "incompatibility"
)

// SafetyNotification is derived state: recomputed from scratch on every
// change to the patient or the item list. The ID is deterministic for
// locally evaluated rules, which is what makes suppression and override
// bookkeeping survive re-evaluation.
type SafetyNotification struct {
	ID          string           `json:"id"`
	Severity    Severity         `json:"severity"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	ItemID      string           `json:"item_id,omitempty"`
	CanOverride bool             `json:"can_override"`
	FromAI      bool             `json:"from_ai,omitempty"`
}

// OverrideRecord is the audit-facing record of an override decision.
type OverrideRecord struct {
	NotificationID string `json:"notification_id"`
	ItemID         string `json:"item_id,omitempty"`
	Reason         string `json:"reason"`
}

type OverrideRequest struct {
	Reason string `json:"reason" binding:"required"`
}
