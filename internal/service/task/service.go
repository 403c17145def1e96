package task

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

type Service struct {
	repo   repository.TaskRepository
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(repo repository.TaskRepository, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{repo: repo, broker: broker, logger: log}
}

func (s *Service) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	task := &model.Task{
		Base:        model.Base{ID: uuid.New()},
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.publish(ctx, "create", task)
	return task, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("task", err)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTaskRequest) (*model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	s.publish(ctx, "update", task)
	return task, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.publish(ctx, "delete", map[string]string{"id": id.String()})
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Task, error) {
	return s.repo.List(ctx)
}

func (s *Service) publish(ctx context.Context, operation string, payload interface{}) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "task", Operation: operation, Payload: payload}
	if err := s.broker.Publish(ctx, messaging.ChannelTasks, event); err != nil {
		s.logger.Warn("failed to publish task change", "operation", operation, "error", err.Error())
	}
}
