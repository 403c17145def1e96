package medicine

import "github.com/meddoc/clinic-api/internal/model"

func intPtr(v int) *int { return &v }

// defaultRegistry is the starter set installed on first run. Names and
// posologies follow the francophone dispensing conventions the clinic
// uses.
var defaultRegistry = []model.CreateMedicineRequest{
	{
		Name:          "Amoxicilline 500mg",
		Category:      model.CategoryAntibiotic,
		DefaultDosage: "1 gélule x 3/j",
		DefaultTiming: model.TimingDuringMeal,
	},
	{
		Name:          "Amoxicilline 1g",
		Category:      model.CategoryAntibiotic,
		DefaultDosage: "1 cp x 2/j",
		DefaultTiming: model.TimingDuringMeal,
		Restriction: &model.MedicineRestriction{
			Status: model.RestrictionForbidden,
			MinAge: intPtr(12),
			Reason: "Dosage adulte",
		},
	},
	{
		Name:             "Paracétamol 500mg",
		Category:         model.CategoryAnalgesic,
		DefaultDosage:    "1 cp si douleur, max 4/j",
		DefaultTiming:    model.TimingIndifferent,
		InteractionGroup: "paracetamol, doliprane, efferalgan",
	},
	{
		Name:             "Doliprane 1000mg",
		Category:         model.CategoryAnalgesic,
		DefaultDosage:    "1 cp si douleur, max 3/j",
		DefaultTiming:    model.TimingIndifferent,
		InteractionGroup: "paracetamol, doliprane, efferalgan",
		Restriction: &model.MedicineRestriction{
			Status: model.RestrictionForbidden,
			MinAge: intPtr(15),
			Reason: "Dosage adulte",
		},
	},
	{
		Name:             "Ibuprofène 400mg",
		Category:         model.CategoryAntiInflammatory,
		DefaultDosage:    "1 cp x 3/j",
		DefaultTiming:    model.TimingDuringMeal,
		InteractionGroup: "ains, ibuprofene, ketoprofene",
		IncompatibleWith: []string{"Aspirine"},
	},
	{
		Name:             "Aspirine 500mg",
		Category:         model.CategoryAnalgesic,
		DefaultDosage:    "1 cp x 2/j",
		DefaultTiming:    model.TimingAfterMeal,
		InteractionGroup: "ains, aspirine",
		IncompatibleWith: []string{"Ibuprofène"},
		Restriction: &model.MedicineRestriction{
			Status: model.RestrictionForbidden,
			MinAge: intPtr(16),
			Reason: "Risque de syndrome de Reye",
		},
	},
	{
		Name:          "Vitamine D3",
		Category:      model.CategoryVitamin,
		DefaultDosage: "1 ampoule/trimestre",
		DefaultTiming: model.TimingDuringMeal,
	},
	{
		Name:          "Sirop antitussif",
		Category:      model.CategorySyrup,
		DefaultDosage: "1 càs x 3/j",
		DefaultTiming: model.TimingIndifferent,
	},
}
