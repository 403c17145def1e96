package model

import (
	"time"

	"github.com/lib/pq"
)

type PatientType string

const (
	PatientTypeAdult PatientType = "adult"
	PatientTypeChild PatientType = "child"
	PatientTypeWoman PatientType = "woman"
)

// Patient is the clinical profile attached to queue entries and
// prescriptions. Age is a pointer: nil means unknown, and an unknown age
// exempts the patient from age-based safety rules instead of being
// conflated with a newborn.
type Patient struct {
	Base
	Name            string         `json:"name" db:"name"`
	Age             *int           `json:"age,omitempty" db:"age"`
	Sex             string         `json:"sex" db:"sex"`
	Type            PatientType    `json:"type" db:"type"`
	Phone           string         `json:"phone,omitempty" db:"phone"`
	Weight          string         `json:"weight,omitempty" db:"weight"`
	Allergies       string         `json:"allergies,omitempty" db:"allergies"`
	Pathologies     string         `json:"pathologies,omitempty" db:"pathologies"`
	ChronicDiseases pq.StringArray `json:"chronic_diseases,omitempty" db:"chronic_diseases"`
	ConsultationFee float64        `json:"consultation_fee,omitempty" db:"consultation_fee"`
	RegisteredDate  *time.Time     `json:"registered_date,omitempty" db:"registered_date"`
}

// KnownAge returns the patient's age and whether it is known.
func (p *Patient) KnownAge() (int, bool) {
	if p == nil || p.Age == nil {
		return 0, false
	}
	return *p.Age, true
}

type CreatePatientRequest struct {
	Name            string      `json:"name" binding:"required"`
	Age             *int        `json:"age" binding:"omitempty,gte=0"`
	Sex             string      `json:"sex" binding:"omitempty,oneof=M F"`
	Type            PatientType `json:"type" binding:"required,oneof=adult child woman"`
	Phone           string      `json:"phone"`
	Weight          string      `json:"weight"`
	Allergies       string      `json:"allergies"`
	Pathologies     string      `json:"pathologies"`
	ChronicDiseases []string    `json:"chronic_diseases"`
	ConsultationFee float64     `json:"consultation_fee"`
}

type UpdatePatientRequest struct {
	Age             *int         `json:"age" binding:"omitempty,gte=0"`
	Sex             *string      `json:"sex"`
	Type            *PatientType `json:"type"`
	Phone           *string      `json:"phone"`
	Weight          *string      `json:"weight"`
	Allergies       *string      `json:"allergies"`
	Pathologies     *string      `json:"pathologies"`
	ChronicDiseases []string     `json:"chronic_diseases"`
	ConsultationFee *float64     `json:"consultation_fee"`
}

type PatientFilters struct {
	Search string `form:"search"`
	Limit  int    `form:"limit"`
}
