package prescription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	"github.com/meddoc/clinic-api/internal/service/safety"
	apperrors "github.com/meddoc/clinic-api/pkg/errors"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/messaging"
)

const draftTTL = 12 * time.Hour

// MedicineResolver maps free-text item names to registry records.
type MedicineResolver interface {
	ResolveByName(ctx context.Context, name string) *model.Medicine
}

// SafetyEngine is the review pipeline a draft mutation feeds.
type SafetyEngine interface {
	Evaluate(ctx context.Context, draftID string, in safety.EvaluationInput) []model.SafetyNotification
	Notifications(draftID string) []model.SafetyNotification
	Override(ctx context.Context, draftID, notificationID, reason string) (*model.OverrideRecord, error)
	Dismiss(draftID, notificationID string) error
	EndSession(draftID string)
}

// PatientDirectory is the slice of the patient service a saved
// prescription touches.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	RecordVitals(ctx context.Context, id uuid.UUID, age *int, weight string) error
	RemoveFromQueue(ctx context.Context, id uuid.UUID) error
}

// Service owns the draft lifecycle and the saved prescription history.
// Every draft mutation re-runs the safety engine with the session's
// suppression set; saving freezes the aggregate.
type Service struct {
	repo      repository.PrescriptionRepository
	medicines MedicineResolver
	patients  PatientDirectory
	safety    SafetyEngine
	broker    messaging.Broker
	logger    *logger.Logger
	drafts    *cache.Cache
}

func NewService(repo repository.PrescriptionRepository, medicines MedicineResolver, patients PatientDirectory, engine SafetyEngine, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		medicines: medicines,
		patients:  patients,
		safety:    engine,
		broker:    broker,
		logger:    log,
		drafts:    cache.New(draftTTL, draftTTL),
	}
}

// CreateDraft opens a new draft, prefilled from the patient profile
// when one is given.
func (s *Service) CreateDraft(ctx context.Context, patientID *uuid.UUID) (*Draft, error) {
	draft := &Draft{
		ID:          uuid.New(),
		PatientType: model.PatientTypeAdult,
		CreatedAt:   time.Now(),
	}
	if patientID != nil && *patientID != uuid.Nil {
		patient, err := s.patients.Get(ctx, *patientID)
		if err != nil {
			return nil, err
		}
		draft.PatientID = patient.ID
		draft.PatientName = patient.Name
		draft.PatientType = patient.Type
		draft.Age = patient.Age
		draft.Weight = patient.Weight
		draft.Allergies = patient.Allergies
		draft.Pathologies = patient.Pathologies
	}
	s.drafts.SetDefault(draft.ID.String(), draft)
	return draft, nil
}

func (s *Service) GetDraft(id uuid.UUID) (*Draft, error) {
	v, ok := s.drafts.Get(id.String())
	if !ok {
		return nil, apperrors.NotFound("draft", nil)
	}
	return v.(*Draft), nil
}

// AddItem appends an item to the draft. A medicine already on the list,
// compared case-insensitively, is rejected before any evaluation runs.
// Missing dosage, timing and interaction group are filled from the
// registry record or the category posology.
func (s *Service) AddItem(ctx context.Context, draftID uuid.UUID, req *model.AddItemRequest) (*Draft, []model.SafetyNotification, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, nil, err
	}

	name := strings.TrimSpace(req.MedicineName)
	item := model.PrescriptionItem{
		ID:               uuid.NewString(),
		MedicineName:     name,
		Dosage:           req.Dosage,
		Timing:           req.Timing,
		InteractionGroup: req.InteractionGroup,
	}
	if med := s.medicines.ResolveByName(ctx, name); med != nil {
		if item.Dosage == "" {
			item.Dosage = med.DefaultDosage
		}
		if item.Timing == "" {
			item.Timing = med.DefaultTiming
		}
		if item.InteractionGroup == "" {
			item.InteractionGroup = med.InteractionGroup
		}
	}
	if item.Timing == "" {
		item.Timing = model.TimingIndifferent
	}

	draft.mu.Lock()
	for _, existing := range draft.Items {
		if strings.EqualFold(existing.MedicineName, name) {
			draft.mu.Unlock()
			return nil, nil, apperrors.Conflict(fmt.Sprintf("%s is already on the prescription", name), nil)
		}
	}
	draft.Items = append(draft.Items, item)
	draft.mu.Unlock()

	return draft, s.evaluate(ctx, draft), nil
}

func (s *Service) UpdateItem(ctx context.Context, draftID uuid.UUID, itemID string, req *model.UpdateItemRequest) (*Draft, []model.SafetyNotification, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, nil, err
	}

	draft.mu.Lock()
	found := false
	for i := range draft.Items {
		if draft.Items[i].ID != itemID {
			continue
		}
		if req.Dosage != nil {
			draft.Items[i].Dosage = *req.Dosage
		}
		if req.Timing != nil {
			draft.Items[i].Timing = *req.Timing
		}
		found = true
		break
	}
	draft.mu.Unlock()
	if !found {
		return nil, nil, apperrors.NotFound("prescription item", nil)
	}

	return draft, s.evaluate(ctx, draft), nil
}

func (s *Service) RemoveItem(ctx context.Context, draftID uuid.UUID, itemID string) (*Draft, []model.SafetyNotification, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, nil, err
	}

	draft.mu.Lock()
	found := false
	for i := range draft.Items {
		if draft.Items[i].ID == itemID {
			draft.Items = append(draft.Items[:i], draft.Items[i+1:]...)
			found = true
			break
		}
	}
	draft.mu.Unlock()
	if !found {
		return nil, nil, apperrors.NotFound("prescription item", nil)
	}

	return draft, s.evaluate(ctx, draft), nil
}

// SetPatient updates the draft's patient fields and re-evaluates, since
// age and type feed the safety rules.
func (s *Service) SetPatient(ctx context.Context, draftID uuid.UUID, req *model.SetDraftPatientRequest) (*Draft, []model.SafetyNotification, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, nil, err
	}

	if req.PatientID != nil && *req.PatientID != uuid.Nil {
		patient, err := s.patients.Get(ctx, *req.PatientID)
		if err != nil {
			return nil, nil, err
		}
		draft.mu.Lock()
		draft.PatientID = patient.ID
		draft.PatientName = patient.Name
		draft.PatientType = patient.Type
		draft.Age = patient.Age
		draft.Weight = patient.Weight
		draft.Allergies = patient.Allergies
		draft.Pathologies = patient.Pathologies
		draft.mu.Unlock()
	}

	draft.mu.Lock()
	if req.Name != nil {
		draft.PatientName = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		draft.Age = req.Age
	}
	if req.Type != nil {
		draft.PatientType = *req.Type
	}
	if req.Weight != nil {
		draft.Weight = *req.Weight
	}
	draft.mu.Unlock()

	return draft, s.evaluate(ctx, draft), nil
}

func (s *Service) evaluate(ctx context.Context, draft *Draft) []model.SafetyNotification {
	draft.mu.Lock()
	in := safety.EvaluationInput{
		Items:       draft.snapshot(),
		Age:         draft.Age,
		PatientType: draft.PatientType,
		Allergies:   draft.Allergies,
		Pathologies: draft.Pathologies,
		Resolve: func(name string) *model.Medicine {
			return s.medicines.ResolveByName(ctx, name)
		},
	}
	draft.mu.Unlock()
	return s.safety.Evaluate(ctx, draft.ID.String(), in)
}

// Notifications returns the draft's active notifications.
func (s *Service) Notifications(draftID uuid.UUID) ([]model.SafetyNotification, error) {
	if _, err := s.GetDraft(draftID); err != nil {
		return nil, err
	}
	return s.safety.Notifications(draftID.String()), nil
}

// Override records an override decision and stamps the targeted item.
func (s *Service) Override(ctx context.Context, draftID uuid.UUID, notificationID, reason string) ([]model.SafetyNotification, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, err
	}

	record, err := s.safety.Override(ctx, draftID.String(), notificationID, reason)
	if err != nil {
		return nil, mapSafetyError(err)
	}

	if record.ItemID != "" {
		draft.mu.Lock()
		for i := range draft.Items {
			if draft.Items[i].ID == record.ItemID {
				draft.Items[i].OverriddenByDoctor = true
				draft.Items[i].OverrideReason = record.Reason
				break
			}
		}
		draft.mu.Unlock()
	}

	return s.safety.Notifications(draftID.String()), nil
}

// Dismiss suppresses a notification without an audit trail.
func (s *Service) Dismiss(draftID uuid.UUID, notificationID string) ([]model.SafetyNotification, error) {
	if _, err := s.GetDraft(draftID); err != nil {
		return nil, err
	}
	if err := s.safety.Dismiss(draftID.String(), notificationID); err != nil {
		return nil, mapSafetyError(err)
	}
	return s.safety.Notifications(draftID.String()), nil
}

func mapSafetyError(err error) error {
	switch {
	case errors.Is(err, safety.ErrNotificationNotFound):
		return apperrors.NotFound("notification", err)
	case errors.Is(err, safety.ErrNotOverridable), errors.Is(err, safety.ErrReasonRequired):
		return apperrors.BadRequest(err.Error(), err)
	default:
		return err
	}
}

// Save freezes the draft into an immutable prescription record, writes
// the captured age and weight back to the profile, and takes the
// patient out of today's queue.
func (s *Service) Save(ctx context.Context, draftID uuid.UUID, req *model.SaveDraftRequest) (*model.Prescription, error) {
	draft, err := s.GetDraft(draftID)
	if err != nil {
		return nil, err
	}

	draft.mu.Lock()
	if len(draft.Items) == 0 {
		draft.mu.Unlock()
		return nil, apperrors.BadRequest("prescription has no items", nil)
	}
	prescription := &model.Prescription{
		Base:          model.Base{ID: draft.ID},
		PatientID:     draft.PatientID,
		PatientName:   draft.PatientName,
		Date:          time.Now(),
		Items:         draft.snapshot(),
		Amount:        req.Amount,
		PatientType:   draft.PatientType,
		PatientAge:    draft.Age,
		PatientWeight: draft.Weight,
	}
	draft.mu.Unlock()

	if err := s.repo.Create(ctx, prescription); err != nil {
		return nil, fmt.Errorf("failed to save prescription: %w", err)
	}

	if prescription.PatientID != uuid.Nil {
		if err := s.patients.RecordVitals(ctx, prescription.PatientID, prescription.PatientAge, prescription.PatientWeight); err != nil {
			s.logger.Error(err, "failed to update patient vitals", "patient_id", prescription.PatientID.String())
		}
		if err := s.patients.RemoveFromQueue(ctx, prescription.PatientID); err != nil {
			s.logger.Error(err, "failed to dequeue patient", "patient_id", prescription.PatientID.String())
		}
	}

	s.safety.EndSession(draftID.String())
	s.drafts.Delete(draftID.String())
	s.publish(ctx, "create", prescription)
	return prescription, nil
}

// DiscardDraft abandons a draft and its review session.
func (s *Service) DiscardDraft(draftID uuid.UUID) error {
	if _, err := s.GetDraft(draftID); err != nil {
		return err
	}
	s.safety.EndSession(draftID.String())
	s.drafts.Delete(draftID.String())
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	prescription, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("prescription", err)
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return prescription, nil
}

func (s *Service) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) publish(ctx context.Context, operation string, prescription *model.Prescription) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "prescription", Operation: operation, Payload: prescription}
	if err := s.broker.Publish(ctx, messaging.ChannelPrescriptions, event); err != nil {
		s.logger.Warn("failed to publish prescription change", "operation", operation, "error", err.Error())
	}
}
