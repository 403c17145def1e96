package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	apperrors "github.com/meddoc/clinic-api/pkg/errors"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/messaging"
)

// Service manages patient profiles and the daily waiting queue.
// Profiles are keyed by case-insensitive name: registering a returning
// patient updates their record instead of creating a duplicate.
type Service struct {
	repo   repository.PatientRepository
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(repo repository.PatientRepository, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{repo: repo, broker: broker, logger: log}
}

// Register upserts the profile and puts the patient in today's queue.
func (s *Service) Register(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	now := time.Now()
	patient, err := s.repo.GetByName(ctx, req.Name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up patient: %w", err)
		}
		patient = &model.Patient{Base: model.Base{ID: uuid.New()}}
	}

	patient.Name = strings.TrimSpace(req.Name)
	patient.Age = req.Age
	patient.Sex = req.Sex
	patient.Type = req.Type
	patient.Phone = req.Phone
	patient.Weight = req.Weight
	patient.Allergies = req.Allergies
	patient.Pathologies = req.Pathologies
	patient.ChronicDiseases = req.ChronicDiseases
	patient.ConsultationFee = req.ConsultationFee
	patient.RegisteredDate = &now

	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}
	if err := s.repo.AddToQueue(ctx, patient.ID, now); err != nil {
		return nil, fmt.Errorf("failed to enqueue patient: %w", err)
	}

	s.publish(ctx, messaging.ChannelPatients, "upsert", patient)
	s.publish(ctx, messaging.ChannelQueue, "add", patient)
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Age != nil {
		patient.Age = req.Age
	}
	if req.Sex != nil {
		patient.Sex = *req.Sex
	}
	if req.Type != nil {
		patient.Type = *req.Type
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Weight != nil {
		patient.Weight = *req.Weight
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.Pathologies != nil {
		patient.Pathologies = *req.Pathologies
	}
	if req.ChronicDiseases != nil {
		patient.ChronicDiseases = req.ChronicDiseases
	}
	if req.ConsultationFee != nil {
		patient.ConsultationFee = *req.ConsultationFee
	}

	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	s.publish(ctx, messaging.ChannelPatients, "upsert", patient)
	return patient, nil
}

// RecordVitals stamps the age and weight captured while saving a
// prescription back onto the profile.
func (s *Service) RecordVitals(ctx context.Context, id uuid.UUID, age *int, weight string) error {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	changed := false
	if age != nil {
		patient.Age = age
		changed = true
	}
	if weight != "" {
		patient.Weight = weight
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.repo.Upsert(ctx, patient); err != nil {
		return fmt.Errorf("failed to record patient vitals: %w", err)
	}
	s.publish(ctx, messaging.ChannelPatients, "upsert", patient)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.publish(ctx, messaging.ChannelPatients, "delete", map[string]string{"id": id.String()})
	return nil
}

func (s *Service) Search(ctx context.Context, term string, limit int) ([]*model.Patient, error) {
	return s.repo.Search(ctx, term, limit)
}

func (s *Service) List(ctx context.Context) ([]*model.Patient, error) {
	return s.repo.List(ctx)
}

// Queue returns the patients waiting today, in registration order.
func (s *Service) Queue(ctx context.Context) ([]*model.Patient, error) {
	return s.repo.ListQueue(ctx, time.Now())
}

func (s *Service) RemoveFromQueue(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.RemoveFromQueue(ctx, id); err != nil {
		return fmt.Errorf("failed to remove patient from queue: %w", err)
	}
	s.publish(ctx, messaging.ChannelQueue, "remove", map[string]string{"id": id.String()})
	return nil
}

// ClearQueue empties the waiting queue, typically at end of day.
func (s *Service) ClearQueue(ctx context.Context) error {
	if err := s.repo.ClearQueue(ctx); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	s.publish(ctx, messaging.ChannelQueue, "clear", nil)
	return nil
}

func (s *Service) publish(ctx context.Context, channel, operation string, payload interface{}) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "patient", Operation: operation, Payload: payload}
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		s.logger.Warn("failed to publish patient change", "operation", operation, "error", err.Error())
	}
}
