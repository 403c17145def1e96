package model

import (
	"strings"

	"github.com/lib/pq"
)

type MedicineCategory string

const (
	CategoryAntibiotic       MedicineCategory = "antibiotic"
	CategoryVitamin          MedicineCategory = "vitamin"
	CategoryAnalgesic        MedicineCategory = "analgesic"
	CategoryAntiInflammatory MedicineCategory = "anti_inflammatory"
	CategorySyrup            MedicineCategory = "syrup"
	CategoryOther            MedicineCategory = "other"
)

type MealTiming string

const (
	TimingBeforeMeal  MealTiming = "before_meal"
	TimingDuringMeal  MealTiming = "during_meal"
	TimingAfterMeal   MealTiming = "after_meal"
	TimingIndifferent MealTiming = "indifferent"
)

type RestrictionStatus string

const (
	RestrictionForbidden RestrictionStatus = "forbidden"
	RestrictionCaution   RestrictionStatus = "caution"
	RestrictionAllowed   RestrictionStatus = "allowed"
)

// MedicineRestriction carries an age-based prohibition attached to a medicine.
// MinAge, when set, is the lower bound below which the medicine is forbidden.
type MedicineRestriction struct {
	Status RestrictionStatus `json:"status" db:"restriction_status"`
	MinAge *int              `json:"min_age,omitempty" db:"restriction_min_age"`
	MaxAge *int              `json:"max_age,omitempty" db:"restriction_max_age"`
	Reason string            `json:"reason,omitempty" db:"restriction_reason"`
}

type Medicine struct {
	Base
	Name             string               `json:"name" db:"name"`
	Category         MedicineCategory     `json:"category" db:"category"`
	DefaultDosage    string               `json:"default_dosage" db:"default_dosage"`
	DefaultTiming    MealTiming           `json:"default_timing" db:"default_timing"`
	InteractionGroup string               `json:"interaction_group,omitempty" db:"interaction_group"`
	Restriction      *MedicineRestriction `json:"restriction,omitempty"`
	IncompatibleWith pq.StringArray       `json:"incompatible_with,omitempty" db:"incompatible_with"`
}

// MatchesName reports whether the medicine's display name equals the
// given name, compared case-insensitively.
func (m *Medicine) MatchesName(name string) bool {
	return strings.EqualFold(m.Name, name)
}

type CreateMedicineRequest struct {
	Name             string               `json:"name" binding:"required"`
	Category         MedicineCategory     `json:"category" binding:"required"`
	DefaultDosage    string               `json:"default_dosage"`
	DefaultTiming    MealTiming           `json:"default_timing"`
	InteractionGroup string               `json:"interaction_group"`
	Restriction      *MedicineRestriction `json:"restriction"`
	IncompatibleWith []string             `json:"incompatible_with"`
}

type UpdateMedicineRequest struct {
	Name             *string              `json:"name"`
	Category         *MedicineCategory    `json:"category"`
	DefaultDosage    *string              `json:"default_dosage"`
	DefaultTiming    *MealTiming          `json:"default_timing"`
	InteractionGroup *string              `json:"interaction_group"`
	Restriction      *MedicineRestriction `json:"restriction"`
	IncompatibleWith []string             `json:"incompatible_with"`
}

type ImportMedicinesRequest struct {
	Medicines []CreateMedicineRequest `json:"medicines" binding:"required,dive"`
}

type ImportMedicinesResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type MedicineFilters struct {
	Search   string           `form:"search"`
	Category MedicineCategory `form:"category"`
	Limit    int              `form:"limit"`
}

// CategoryPosology holds the fallback dosage and timing applied when a
// medicine record omits its own defaults.
type CategoryPosology struct {
	Dosage string
	Timing MealTiming
}

var DefaultPosology = map[MedicineCategory]CategoryPosology{
	CategoryAntibiotic:       {Dosage: "1 cp x 2/j", Timing: TimingDuringMeal},
	CategoryVitamin:          {Dosage: "1 cp/j", Timing: TimingBeforeMeal},
	CategoryAnalgesic:        {Dosage: "1 cp si douleur", Timing: TimingAfterMeal},
	CategoryAntiInflammatory: {Dosage: "1 cp x 3/j", Timing: TimingDuringMeal},
	CategorySyrup:            {Dosage: "1 càs x 3/j", Timing: TimingIndifferent},
	CategoryOther:            {Dosage: "", Timing: TimingIndifferent},
}
