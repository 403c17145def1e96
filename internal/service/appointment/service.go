package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	apperrors "github.com/meddoc/clinic-api/pkg/errors"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/messaging"
)

// PriorityClassifier ranks an appointment request from its note.
type PriorityClassifier interface {
	ClassifyAppointment(ctx context.Context, note string) (model.AppointmentPriority, string, error)
}

// Service manages appointment requests, per-date capacity and the AI
// priority triage. Classification failures never block a booking: the
// request just lands at routine priority.
type Service struct {
	repo       repository.AppointmentRepository
	classifier PriorityClassifier
	broker     messaging.Broker
	logger     *logger.Logger
}

func NewService(repo repository.AppointmentRepository, classifier PriorityClassifier, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{repo: repo, classifier: classifier, broker: broker, logger: log}
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	capacity, err := s.repo.GetCapacity(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	booked, err := s.repo.CountForDate(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if booked >= capacity {
		return nil, apperrors.Conflict(fmt.Sprintf("no slots left on %s", req.Date), nil)
	}

	appointment := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PatientName:    req.PatientName,
		Phone:          req.Phone,
		Date:           req.Date,
		Note:           req.Note,
		Priority:       model.PriorityRoutine,
		Status:         model.AppointmentPending,
		BookedByDoctor: req.BookedByDoctor,
	}
	if req.BookedByDoctor {
		appointment.Status = model.AppointmentConfirmed
	}

	appointment.Priority, appointment.AIClassification = s.classify(ctx, req.Note)

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.publish(ctx, "create", appointment)
	return appointment, nil
}

// Classify runs the AI triage over a note without booking anything,
// so the booking screen can preview the priority.
func (s *Service) Classify(ctx context.Context, note string) (model.AppointmentPriority, string) {
	return s.classify(ctx, note)
}

// classify asks the AI triage for a priority, falling back to routine
// on any failure.
func (s *Service) classify(ctx context.Context, note string) (model.AppointmentPriority, string) {
	if s.classifier == nil || note == "" {
		return model.PriorityRoutine, ""
	}
	priority, rationale, err := s.classifier.ClassifyAppointment(ctx, note)
	if err != nil {
		s.logger.Warn("appointment classification failed", "error", err.Error())
		return model.PriorityRoutine, ""
	}
	switch priority {
	case model.PriorityUrgent, model.PriorityInitial, model.PriorityRoutine:
		return priority, rationale
	default:
		return model.PriorityRoutine, rationale
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appointment, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		appointment.Date = *req.Date
	}
	if req.Note != nil {
		appointment.Note = *req.Note
	}
	if req.Priority != nil {
		appointment.Priority = *req.Priority
	}
	if req.Status != nil {
		appointment.Status = *req.Status
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	s.publish(ctx, "update", appointment)
	return appointment, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appointment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	s.publish(ctx, "delete", appointment)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Appointment, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]*model.Appointment, error) {
	return s.repo.ListByDate(ctx, date)
}

// Capacity reports the slot budget and usage for a date.
func (s *Service) Capacity(ctx context.Context, date string) (*model.DailyCapacity, int, error) {
	limit, err := s.repo.GetCapacity(ctx, date)
	if err != nil {
		return nil, 0, err
	}
	booked, err := s.repo.CountForDate(ctx, date)
	if err != nil {
		return nil, 0, err
	}
	return &model.DailyCapacity{Date: date, Limit: limit}, booked, nil
}

func (s *Service) SetCapacity(ctx context.Context, date string, limit int) error {
	if limit < 0 {
		return apperrors.BadRequest("capacity cannot be negative", nil)
	}
	if err := s.repo.SetCapacity(ctx, date, limit); err != nil {
		return err
	}
	s.publish(ctx, "capacity", &model.DailyCapacity{Date: date, Limit: limit})
	return nil
}

func (s *Service) publish(ctx context.Context, operation string, payload interface{}) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "appointment", Operation: operation, Payload: payload}
	if err := s.broker.Publish(ctx, messaging.ChannelAppointments, event); err != nil {
		s.logger.Warn("failed to publish appointment change", "operation", operation, "error", err.Error())
	}
}
