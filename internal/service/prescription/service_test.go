package prescription

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/service/safety"
	apperrors "github.com/meddoc/clinic-api/pkg/errors"
	"github.com/meddoc/clinic-api/pkg/logger"
)

func intPtr(v int) *int { return &v }

type fakeResolver struct {
	medicines map[string]*model.Medicine
}

func (f *fakeResolver) ResolveByName(_ context.Context, name string) *model.Medicine {
	return f.medicines[strings.ToLower(name)]
}

type fakeEngine struct {
	evaluations   []safety.EvaluationInput
	notifications []model.SafetyNotification
	overrideRec   *model.OverrideRecord
	overrideErr   error
	dismissErr    error
	ended         []string
}

func (f *fakeEngine) Evaluate(_ context.Context, _ string, in safety.EvaluationInput) []model.SafetyNotification {
	f.evaluations = append(f.evaluations, in)
	return f.notifications
}

func (f *fakeEngine) Notifications(string) []model.SafetyNotification { return f.notifications }

func (f *fakeEngine) Override(_ context.Context, _, _, _ string) (*model.OverrideRecord, error) {
	if f.overrideErr != nil {
		return nil, f.overrideErr
	}
	return f.overrideRec, nil
}

func (f *fakeEngine) Dismiss(_, _ string) error { return f.dismissErr }

func (f *fakeEngine) EndSession(draftID string) { f.ended = append(f.ended, draftID) }

type fakePatients struct {
	patients map[uuid.UUID]*model.Patient
	vitals   []uuid.UUID
	dequeued []uuid.UUID
}

func (f *fakePatients) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (f *fakePatients) RecordVitals(_ context.Context, id uuid.UUID, _ *int, _ string) error {
	f.vitals = append(f.vitals, id)
	return nil
}

func (f *fakePatients) RemoveFromQueue(_ context.Context, id uuid.UUID) error {
	f.dequeued = append(f.dequeued, id)
	return nil
}

type fakeRepo struct {
	created []*model.Prescription
}

func (f *fakeRepo) Create(_ context.Context, p *model.Prescription) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	for _, p := range f.created {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("prescription", nil)
}

func (f *fakeRepo) List(context.Context, *model.PrescriptionFilters) ([]*model.Prescription, error) {
	return f.created, nil
}

func (f *fakeRepo) ListByDate(context.Context, time.Time) ([]*model.Prescription, error) {
	return f.created, nil
}

func (f *fakeRepo) Count(context.Context) (int, error) { return len(f.created), nil }

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	engine   *fakeEngine
	patients *fakePatients
}

func newFixture() *fixture {
	repo := &fakeRepo{}
	engine := &fakeEngine{}
	patients := &fakePatients{patients: make(map[uuid.UUID]*model.Patient)}
	resolver := &fakeResolver{medicines: map[string]*model.Medicine{
		"amoxicilline 500mg": {
			Name:             "Amoxicilline 500mg",
			Category:         model.CategoryAntibiotic,
			DefaultDosage:    "1 cp x 2/j",
			DefaultTiming:    model.TimingDuringMeal,
			InteractionGroup: "penicillines",
		},
	}}
	svc := NewService(repo, resolver, patients, engine, nil, logger.NewLogger(nil))
	return &fixture{svc: svc, repo: repo, engine: engine, patients: patients}
}

func TestCreateDraftBlank(t *testing.T) {
	f := newFixture()

	draft, err := f.svc.CreateDraft(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, draft.ID)
	assert.Equal(t, model.PatientTypeAdult, draft.PatientType)
	assert.Empty(t, draft.Items)

	got, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Same(t, draft, got)
}

func TestCreateDraftPrefilledFromPatient(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	f.patients.patients[patientID] = &model.Patient{
		Base:        model.Base{ID: patientID},
		Name:        "Aïcha Benali",
		Type:        model.PatientTypeChild,
		Age:         intPtr(7),
		Weight:      "24kg",
		Allergies:   "pénicilline",
		Pathologies: "asthme",
	}

	draft, err := f.svc.CreateDraft(context.Background(), &patientID)
	require.NoError(t, err)
	assert.Equal(t, patientID, draft.PatientID)
	assert.Equal(t, "Aïcha Benali", draft.PatientName)
	assert.Equal(t, model.PatientTypeChild, draft.PatientType)
	assert.Equal(t, 7, *draft.Age)
	assert.Equal(t, "pénicilline", draft.Allergies)
}

func TestCreateDraftUnknownPatient(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	_, err := f.svc.CreateDraft(context.Background(), &id)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestGetDraftNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetDraft(uuid.New())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestAddItemFillsDefaultsFromRegistry(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{
		MedicineName: "  Amoxicilline 500mg  ",
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	item := updated.Items[0]
	assert.Equal(t, "Amoxicilline 500mg", item.MedicineName)
	assert.Equal(t, "1 cp x 2/j", item.Dosage)
	assert.Equal(t, model.TimingDuringMeal, item.Timing)
	assert.Equal(t, "penicillines", item.InteractionGroup)
	assert.NotEmpty(t, item.ID)

	require.Len(t, f.engine.evaluations, 1)
	assert.Len(t, f.engine.evaluations[0].Items, 1)
}

func TestAddItemExplicitValuesWin(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{
		MedicineName: "Amoxicilline 500mg",
		Dosage:       "500mg x 3/j",
		Timing:       model.TimingAfterMeal,
	})
	require.NoError(t, err)
	assert.Equal(t, "500mg x 3/j", updated.Items[0].Dosage)
	assert.Equal(t, model.TimingAfterMeal, updated.Items[0].Timing)
}

func TestAddItemUnknownMedicineDefaultsTiming(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{
		MedicineName: "Produit magistral",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TimingIndifferent, updated.Items[0].Timing)
	assert.Empty(t, updated.Items[0].Dosage)
}

func TestAddItemRejectsDuplicates(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	_, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)

	_, _, err = f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "AMOXICILLINE 500MG"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)

	// The rejected duplicate never reaches the safety engine.
	assert.Len(t, f.engine.evaluations, 1)
	got, _ := f.svc.GetDraft(draft.ID)
	assert.Len(t, got.Items, 1)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)
	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)
	itemID := updated.Items[0].ID

	dosage := "250mg x 2/j"
	updated, _, err = f.svc.UpdateItem(context.Background(), draft.ID, itemID, &model.UpdateItemRequest{Dosage: &dosage})
	require.NoError(t, err)
	assert.Equal(t, dosage, updated.Items[0].Dosage)
	assert.Equal(t, model.TimingDuringMeal, updated.Items[0].Timing, "unset fields stay untouched")
	assert.Len(t, f.engine.evaluations, 2)

	_, _, err = f.svc.UpdateItem(context.Background(), draft.ID, "missing", &model.UpdateItemRequest{Dosage: &dosage})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestRemoveItem(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)
	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)

	updated, _, err = f.svc.RemoveItem(context.Background(), draft.ID, updated.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.Len(t, f.engine.evaluations, 2, "removal re-evaluates")

	_, _, err = f.svc.RemoveItem(context.Background(), draft.ID, "missing")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestSetPatientReEvaluates(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	age := 9
	childType := model.PatientTypeChild
	name := "  Karim  "
	updated, _, err := f.svc.SetPatient(context.Background(), draft.ID, &model.SetDraftPatientRequest{
		Name: &name,
		Age:  &age,
		Type: &childType,
	})
	require.NoError(t, err)
	assert.Equal(t, "Karim", updated.PatientName)
	assert.Equal(t, 9, *updated.Age)
	assert.Equal(t, model.PatientTypeChild, updated.PatientType)

	require.Len(t, f.engine.evaluations, 1)
	assert.Equal(t, 9, *f.engine.evaluations[0].Age, "the new age reaches the safety rules")
}

func TestOverrideStampsItem(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)
	updated, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)
	itemID := updated.Items[0].ID

	f.engine.overrideRec = &model.OverrideRecord{
		NotificationID: "enfant-" + itemID,
		ItemID:         itemID,
		Reason:         "dose adaptée au poids",
	}

	_, err = f.svc.Override(context.Background(), draft.ID, "enfant-"+itemID, "dose adaptée au poids")
	require.NoError(t, err)

	got, _ := f.svc.GetDraft(draft.ID)
	assert.True(t, got.Items[0].OverriddenByDoctor)
	assert.Equal(t, "dose adaptée au poids", got.Items[0].OverrideReason)
}

func TestOverrideErrorMapping(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	f.engine.overrideErr = safety.ErrNotificationNotFound
	_, err := f.svc.Override(context.Background(), draft.ID, "x", "r")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)

	f.engine.overrideErr = safety.ErrNotOverridable
	_, err = f.svc.Override(context.Background(), draft.ID, "x", "r")
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	f.engine.overrideErr = safety.ErrReasonRequired
	_, err = f.svc.Override(context.Background(), draft.ID, "x", "")
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestSaveRejectsEmptyDraft(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	_, err := f.svc.Save(context.Background(), draft.ID, &model.SaveDraftRequest{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Empty(t, f.repo.created)
}

func TestSaveFreezesDraft(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	f.patients.patients[patientID] = &model.Patient{
		Base: model.Base{ID: patientID},
		Name: "Karim",
		Type: model.PatientTypeAdult,
		Age:  intPtr(34),
	}

	draft, err := f.svc.CreateDraft(context.Background(), &patientID)
	require.NoError(t, err)
	_, _, err = f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)

	saved, err := f.svc.Save(context.Background(), draft.ID, &model.SaveDraftRequest{Amount: 350})
	require.NoError(t, err)

	assert.Equal(t, draft.ID, saved.ID, "the saved prescription keeps the draft id")
	assert.Equal(t, patientID, saved.PatientID)
	assert.Equal(t, float64(350), saved.Amount)
	assert.Len(t, saved.Items, 1)

	require.Len(t, f.repo.created, 1)
	assert.Equal(t, []uuid.UUID{patientID}, f.patients.vitals)
	assert.Equal(t, []uuid.UUID{patientID}, f.patients.dequeued)
	assert.Equal(t, []string{draft.ID.String()}, f.engine.ended)

	_, err = f.svc.GetDraft(draft.ID)
	assert.Error(t, err, "the draft is gone once saved")
}

func TestSaveWalkInSkipsPatientUpdates(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)
	_, _, err := f.svc.AddItem(context.Background(), draft.ID, &model.AddItemRequest{MedicineName: "Amoxicilline 500mg"})
	require.NoError(t, err)

	_, err = f.svc.Save(context.Background(), draft.ID, &model.SaveDraftRequest{})
	require.NoError(t, err)
	assert.Empty(t, f.patients.vitals)
	assert.Empty(t, f.patients.dequeued)
}

func TestDiscardDraft(t *testing.T) {
	f := newFixture()
	draft, _ := f.svc.CreateDraft(context.Background(), nil)

	require.NoError(t, f.svc.DiscardDraft(draft.ID))
	assert.Equal(t, []string{draft.ID.String()}, f.engine.ended)

	_, err := f.svc.GetDraft(draft.ID)
	assert.Error(t, err)

	err = f.svc.DiscardDraft(draft.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}
