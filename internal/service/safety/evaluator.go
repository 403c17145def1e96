package safety

import (
	"fmt"
	"strings"

	"github.com/meddoc/clinic-api/internal/model"
)

// Evaluator derives safety notifications from a draft prescription. It
// is pure and stateless: every pass recomputes the full notification set
// from the current items and patient, and identical input always yields
// identical notification ids. That determinism is what lets an override
// recorded against an id survive later re-evaluations.
type Evaluator struct {
	childThreshold int
}

func NewEvaluator(childThreshold int) *Evaluator {
	if childThreshold <= 0 {
		childThreshold = 15
	}
	return &Evaluator{childThreshold: childThreshold}
}

// Input is one evaluation pass. Resolve maps a free-text medicine name
// to its registry record, nil when the name is unknown; unresolved items
// skip the registry-backed rules but still feed the name heuristics.
// Suppressed ids are never emitted.
type Input struct {
	Items      []model.PrescriptionItem
	Age        *int
	Resolve    func(name string) *model.Medicine
	Suppressed map[string]struct{}
}

func (e *Evaluator) Evaluate(in Input) []model.SafetyNotification {
	resolve := in.Resolve
	if resolve == nil {
		resolve = func(string) *model.Medicine { return nil }
	}

	var out []model.SafetyNotification
	seen := make(map[string]struct{})
	emit := func(n model.SafetyNotification) {
		if _, ok := in.Suppressed[n.ID]; ok {
			return
		}
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}

	age, ageKnown := 0, false
	if in.Age != nil {
		age, ageKnown = *in.Age, true
	}

	// Age-forbidden restrictions from the registry. An unknown age is
	// not treated as a newborn: the rule simply does not fire.
	if ageKnown {
		for _, item := range in.Items {
			med := resolve(item.MedicineName)
			if med == nil || med.Restriction == nil || med.Restriction.Status != model.RestrictionForbidden {
				continue
			}
			minAge := e.childThreshold
			if med.Restriction.MinAge != nil {
				minAge = *med.Restriction.MinAge
			}
			if age >= minAge {
				continue
			}
			msg := fmt.Sprintf("%s est interdit avant %d ans (patient: %d ans)", med.Name, minAge, age)
			if med.Restriction.Reason != "" {
				msg += " - " + med.Restriction.Reason
			}
			emit(model.SafetyNotification{
				ID:          "enfant-" + item.ID,
				Severity:    model.SeverityCritical,
				Type:        model.NotificationAgeForbidden,
				Title:       "Médicament interdit chez l'enfant",
				Message:     msg,
				ItemID:      item.ID,
				CanOverride: true,
			})
		}
	}

	// Pairwise incompatibilities declared on registry records. The id is
	// built from the sorted item ids so both directions collapse to one
	// notification per pair.
	for i, a := range in.Items {
		for j, b := range in.Items {
			if i == j {
				continue
			}
			med := resolve(b.MedicineName)
			if med == nil {
				continue
			}
			for _, incompatible := range med.IncompatibleWith {
				if !NamesLikelyMatch(a.MedicineName, incompatible) {
					continue
				}
				emit(model.SafetyNotification{
					ID:          "incomp-" + pairID(a.ID, b.ID),
					Severity:    model.SeverityCritical,
					Type:        model.NotificationIncompatibility,
					Title:       "Incompatibilité médicamenteuse",
					Message:     fmt.Sprintf("Association déconseillée: %s + %s", a.MedicineName, b.MedicineName),
					CanOverride: true,
				})
				break
			}
		}
	}

	// Adult-strength heuristic on the raw name. This one is a hard stop:
	// a child dose must be re-entered, not overridden.
	if ageKnown && age < e.childThreshold {
		for _, item := range in.Items {
			name := strings.ToLower(item.MedicineName)
			if !strings.Contains(name, "1g") && !strings.Contains(name, "fort") {
				continue
			}
			emit(model.SafetyNotification{
				ID:          "local-age-" + item.ID,
				Severity:    model.SeverityWarning,
				Type:        model.NotificationContraindication,
				Title:       "Dosage adulte probable",
				Message:     fmt.Sprintf("%s semble être un dosage adulte pour un patient de %d ans", item.MedicineName, age),
				ItemID:      item.ID,
				CanOverride: false,
			})
		}
	}

	// Interaction groups carried on the items themselves.
	for i, a := range in.Items {
		for j := i + 1; j < len(in.Items); j++ {
			b := in.Items[j]
			if !groupMatchesName(a.InteractionGroup, b.MedicineName) &&
				!groupMatchesName(b.InteractionGroup, a.MedicineName) {
				continue
			}
			emit(model.SafetyNotification{
				ID:          "local-int-" + pairID(a.ID, b.ID),
				Severity:    model.SeverityCritical,
				Type:        model.NotificationInteraction,
				Title:       "Interaction potentielle",
				Message:     fmt.Sprintf("Interaction possible entre %s et %s", a.MedicineName, b.MedicineName),
				CanOverride: true,
			})
		}
	}

	return out
}

func pairID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}
