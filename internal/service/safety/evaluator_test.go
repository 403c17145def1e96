package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddoc/clinic-api/internal/model"
)

func intPtr(v int) *int { return &v }

func testRegistry() func(name string) *model.Medicine {
	doliprane := &model.Medicine{
		Name: "Doliprane 1000mg",
		Restriction: &model.MedicineRestriction{
			Status: model.RestrictionForbidden,
			MinAge: intPtr(15),
			Reason: "Dosage adulte",
		},
	}
	ibuprofene := &model.Medicine{
		Name:             "Ibuprofène 400mg",
		IncompatibleWith: []string{"Aspirine"},
	}
	aspirine := &model.Medicine{
		Name:             "Aspirine 500mg",
		IncompatibleWith: []string{"Ibuprofène"},
	}
	sirop := &model.Medicine{
		Name: "Sirop antitussif",
		Restriction: &model.MedicineRestriction{
			Status: model.RestrictionForbidden,
		},
	}
	return func(name string) *model.Medicine {
		switch {
		case NamesLikelyMatch(name, "doliprane"):
			return doliprane
		case NamesLikelyMatch(name, "ibuprofène"):
			return ibuprofene
		case NamesLikelyMatch(name, "aspirine"):
			return aspirine
		case NamesLikelyMatch(name, "sirop"):
			return sirop
		default:
			return nil
		}
	}
}

func ids(notifications []model.SafetyNotification) []string {
	out := make([]string, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, n.ID)
	}
	return out
}

func TestEvaluateAgeForbidden(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: testRegistry(),
	})

	require.Len(t, out, 1)
	n := out[0]
	assert.Equal(t, "enfant-i1", n.ID)
	assert.Equal(t, model.SeverityCritical, n.Severity)
	assert.Equal(t, model.NotificationAgeForbidden, n.Type)
	assert.Equal(t, "i1", n.ItemID)
	assert.True(t, n.CanOverride)
	assert.Contains(t, n.Message, "Doliprane 1000mg")
	assert.Contains(t, n.Message, "Dosage adulte")
}

func TestEvaluateAgeForbiddenRespectsMinAge(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(15),
		Resolve: testRegistry(),
	})
	assert.Empty(t, out)
}

func TestEvaluateAgeForbiddenDefaultThreshold(t *testing.T) {
	// A forbidden restriction without an explicit minimum uses the
	// configured child threshold.
	e := NewEvaluator(15)

	out := e.Evaluate(Input{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Sirop antitussif"}},
		Age:     intPtr(14),
		Resolve: testRegistry(),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "enfant-i1", out[0].ID)

	out = e.Evaluate(Input{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Sirop antitussif"}},
		Age:     intPtr(15),
		Resolve: testRegistry(),
	})
	assert.Empty(t, out)
}

func TestEvaluateUnknownAgeSkipsAgeRules(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{
			{ID: "i1", MedicineName: "Doliprane 1000mg"},
			{ID: "i2", MedicineName: "Amoxicilline 1g"},
		},
		Age:     nil,
		Resolve: testRegistry(),
	})
	assert.Empty(t, out)
}

func TestEvaluateIncompatibilityDedupesPair(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{
			{ID: "b", MedicineName: "Ibuprofène 400mg"},
			{ID: "a", MedicineName: "Aspirine 500mg"},
		},
		Age:     intPtr(40),
		Resolve: testRegistry(),
	})

	// Both directions declare the incompatibility but the pair yields
	// one notification with a direction-independent id.
	require.Len(t, out, 1)
	n := out[0]
	assert.Equal(t, "incomp-a-b", n.ID)
	assert.Equal(t, model.SeverityCritical, n.Severity)
	assert.Equal(t, model.NotificationIncompatibility, n.Type)
	assert.Empty(t, n.ItemID)
	assert.True(t, n.CanOverride)
}

func TestEvaluateAdultStrengthHeuristic(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{
			{ID: "x", MedicineName: "Amoxicilline 1g"},
			{ID: "y", MedicineName: "Efferalgan FORT"},
		},
		Age: intPtr(10),
	})

	require.Len(t, out, 2)
	assert.ElementsMatch(t, []string{"local-age-x", "local-age-y"}, ids(out))
	for _, n := range out {
		assert.Equal(t, model.SeverityWarning, n.Severity)
		assert.Equal(t, model.NotificationContraindication, n.Type)
		assert.False(t, n.CanOverride, "adult-strength heuristic is a hard stop")
	}
}

func TestEvaluateAdultStrengthNotForAdults(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{{ID: "x", MedicineName: "Amoxicilline 1g"}},
		Age:   intPtr(30),
	})
	assert.Empty(t, out)
}

func TestEvaluateInteractionGroups(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{
			{ID: "p2", MedicineName: "Paracétamol 500mg", InteractionGroup: "paracetamol, doliprane"},
			{ID: "p1", MedicineName: "Doliprane sirop"},
		},
		Age: intPtr(40),
	})

	require.Len(t, out, 1)
	n := out[0]
	assert.Equal(t, "local-int-p1-p2", n.ID)
	assert.Equal(t, model.SeverityCritical, n.Severity)
	assert.Equal(t, model.NotificationInteraction, n.Type)
	assert.True(t, n.CanOverride)
}

func TestEvaluateSuppression(t *testing.T) {
	e := NewEvaluator(15)
	in := Input{
		Items: []model.PrescriptionItem{
			{ID: "b", MedicineName: "Ibuprofène 400mg"},
			{ID: "a", MedicineName: "Aspirine 500mg"},
		},
		Age:     intPtr(40),
		Resolve: testRegistry(),
	}

	out := e.Evaluate(in)
	require.Len(t, out, 1)

	in.Suppressed = map[string]struct{}{out[0].ID: {}}
	assert.Empty(t, e.Evaluate(in))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := NewEvaluator(15)
	in := Input{
		Items: []model.PrescriptionItem{
			{ID: "i1", MedicineName: "Doliprane 1000mg"},
			{ID: "i2", MedicineName: "Aspirine 500mg"},
			{ID: "i3", MedicineName: "Ibuprofène 400mg"},
		},
		Age:     intPtr(9),
		Resolve: testRegistry(),
	}

	first := e.Evaluate(in)
	second := e.Evaluate(in)
	assert.Equal(t, ids(first), ids(second))
	assert.NotEmpty(t, first)
}

func TestEvaluateUnresolvedNamesAreNotErrors(t *testing.T) {
	e := NewEvaluator(15)
	out := e.Evaluate(Input{
		Items: []model.PrescriptionItem{
			{ID: "i1", MedicineName: "Produit inconnu"},
			{ID: "i2", MedicineName: "Mystère fort"},
		},
		Age:     intPtr(10),
		Resolve: func(string) *model.Medicine { return nil },
	})

	// Registry rules skip unresolved names, the name heuristics still run.
	require.Len(t, out, 1)
	assert.Equal(t, "local-age-i2", out[0].ID)
}
