package model

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionItem is a single line of a prescription. MedicineName is
// free text and may or may not resolve to a registry record. Items are
// mutable while the prescription is a draft and frozen once saved.
type PrescriptionItem struct {
	ID                 string     `json:"id" db:"id"`
	MedicineName       string     `json:"medicine_name" db:"medicine_name"`
	Dosage             string     `json:"dosage" db:"dosage"`
	Timing             MealTiming `json:"timing" db:"timing"`
	InteractionGroup   string     `json:"interaction_group,omitempty" db:"interaction_group"`
	OverriddenByDoctor bool       `json:"overridden_by_doctor" db:"overridden_by_doctor"`
	OverrideReason     string     `json:"override_reason,omitempty" db:"override_reason"`
}

// Prescription is the saved, immutable aggregate.
type Prescription struct {
	Base
	PatientID     uuid.UUID          `json:"patient_id" db:"patient_id"`
	PatientName   string             `json:"patient_name" db:"patient_name"`
	Date          time.Time          `json:"date" db:"date"`
	Items         []PrescriptionItem `json:"items"`
	Amount        float64            `json:"amount" db:"amount"`
	PatientType   PatientType        `json:"patient_type" db:"patient_type"`
	PatientAge    *int               `json:"patient_age,omitempty" db:"patient_age"`
	PatientWeight string             `json:"patient_weight,omitempty" db:"patient_weight"`
}

type AddItemRequest struct {
	MedicineName     string     `json:"medicine_name" binding:"required"`
	Dosage           string     `json:"dosage"`
	Timing           MealTiming `json:"timing"`
	InteractionGroup string     `json:"interaction_group"`
}

type UpdateItemRequest struct {
	Dosage *string     `json:"dosage"`
	Timing *MealTiming `json:"timing"`
}

type SetDraftPatientRequest struct {
	PatientID *uuid.UUID   `json:"patient_id"`
	Name      *string      `json:"name"`
	Age       *int         `json:"age" binding:"omitempty,gte=0"`
	Type      *PatientType `json:"type" binding:"omitempty,oneof=adult child woman"`
	Weight    *string      `json:"weight"`
}

type SaveDraftRequest struct {
	Amount float64 `json:"amount" binding:"gte=0"`
}

type PrescriptionFilters struct {
	PatientID uuid.UUID `form:"patient_id"`
	Date      string    `form:"date"`
}
