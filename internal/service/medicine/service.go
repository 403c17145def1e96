package medicine

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

const (
	resolveCacheTTL     = 5 * time.Minute
	resolveCacheCleanup = 10 * time.Minute
)

// Service manages the medicine registry. Name resolution is on the hot
// path of every safety evaluation, so resolved lookups go through a
// short-lived cache that mutations invalidate.
type Service struct {
	repo    repository.MedicineRepository
	broker  messaging.Broker
	logger  *logger.Logger
	resolve *cache.Cache
}

func NewService(repo repository.MedicineRepository, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		broker:  broker,
		logger:  log,
		resolve: cache.New(resolveCacheTTL, resolveCacheCleanup),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateMedicineRequest) (*model.Medicine, error) {
	if existing, err := s.repo.GetByName(ctx, req.Name); err == nil && existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("medicine %q already exists", req.Name), nil)
	}

	medicine := &model.Medicine{
		Base:             model.Base{ID: uuid.New()},
		Name:             strings.TrimSpace(req.Name),
		Category:         req.Category,
		DefaultDosage:    req.DefaultDosage,
		DefaultTiming:    req.DefaultTiming,
		InteractionGroup: req.InteractionGroup,
		Restriction:      req.Restriction,
		IncompatibleWith: req.IncompatibleWith,
	}
	applyPosologyDefaults(medicine)

	if err := s.repo.Create(ctx, medicine); err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}
	s.invalidate(medicine.Name)
	s.publish(ctx, "create", medicine)
	return medicine, nil
}

// applyPosologyDefaults fills dosage and timing from the category
// posology table when the record omits them.
func applyPosologyDefaults(m *model.Medicine) {
	posology, ok := model.DefaultPosology[m.Category]
	if !ok {
		return
	}
	if m.DefaultDosage == "" {
		m.DefaultDosage = posology.Dosage
	}
	if m.DefaultTiming == "" {
		m.DefaultTiming = posology.Timing
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	medicine, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medicine", err)
		}
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return medicine, nil
}

// ResolveByName maps a free-text prescription item name to its registry
// record. A miss is not an error: unresolved names simply skip the
// registry-backed safety rules.
func (s *Service) ResolveByName(ctx context.Context, name string) *model.Medicine {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	if v, ok := s.resolve.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.(*model.Medicine)
	}

	medicine, err := s.repo.GetByName(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error(err, "failed to resolve medicine", "name", name)
		}
		s.resolve.SetDefault(key, nil)
		return nil
	}
	s.resolve.SetDefault(key, medicine)
	return medicine
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateMedicineRequest) (*model.Medicine, error) {
	medicine, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousName := medicine.Name

	if req.Name != nil {
		medicine.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		medicine.Category = *req.Category
	}
	if req.DefaultDosage != nil {
		medicine.DefaultDosage = *req.DefaultDosage
	}
	if req.DefaultTiming != nil {
		medicine.DefaultTiming = *req.DefaultTiming
	}
	if req.InteractionGroup != nil {
		medicine.InteractionGroup = *req.InteractionGroup
	}
	if req.Restriction != nil {
		medicine.Restriction = req.Restriction
	}
	if req.IncompatibleWith != nil {
		medicine.IncompatibleWith = req.IncompatibleWith
	}

	if err := s.repo.Update(ctx, medicine); err != nil {
		return nil, fmt.Errorf("failed to update medicine: %w", err)
	}
	s.invalidate(previousName)
	s.invalidate(medicine.Name)
	s.publish(ctx, "update", medicine)
	return medicine, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	medicine, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	s.invalidate(medicine.Name)
	s.publish(ctx, "delete", medicine)
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.MedicineFilters) ([]*model.Medicine, error) {
	return s.repo.List(ctx, filters)
}

// Import loads a batch of medicines, skipping names already present.
func (s *Service) Import(ctx context.Context, req *model.ImportMedicinesRequest) (*model.ImportMedicinesResult, error) {
	result := &model.ImportMedicinesResult{}
	for i := range req.Medicines {
		entry := req.Medicines[i]
		if _, err := s.repo.GetByName(ctx, entry.Name); err == nil {
			result.Skipped++
			continue
		}
		if _, err := s.Create(ctx, &entry); err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.ErrConflict {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to import medicine %q: %w", entry.Name, err)
		}
		result.Imported++
	}
	s.logger.Info("medicines imported", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// SeedDefaults installs the starter registry on an empty database.
func (s *Service) SeedDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count medicines: %w", err)
	}
	if count > 0 {
		return nil
	}
	result, err := s.Import(ctx, &model.ImportMedicinesRequest{Medicines: defaultRegistry})
	if err != nil {
		return err
	}
	s.logger.Info("seeded default medicine registry", "count", result.Imported)
	return nil
}

// CheckCompatibility runs the pairwise rules over a list of names
// without a draft, for the registry screen's quick check. Items carry
// the registry's interaction group, and two medicines sharing the exact
// same group are flagged even when the group tokens never appear in
// either name.
func (s *Service) CheckCompatibility(ctx context.Context, names []string) []model.SafetyNotification {
	items := make([]model.PrescriptionItem, 0, len(names))
	for i, name := range names {
		item := model.PrescriptionItem{
			ID:           fmt.Sprintf("check-%d", i),
			MedicineName: name,
		}
		if med := s.ResolveByName(ctx, name); med != nil {
			item.InteractionGroup = med.InteractionGroup
		}
		items = append(items, item)
	}

	evaluator := safety.NewEvaluator(0)
	out := evaluator.Evaluate(safety.Input{
		Items: items,
		Resolve: func(name string) *model.Medicine {
			return s.ResolveByName(ctx, name)
		},
	})

	seen := make(map[string]struct{}, len(out))
	for _, n := range out {
		seen[n.ID] = struct{}{}
	}
	for i := range items {
		group := strings.ToLower(strings.TrimSpace(items[i].InteractionGroup))
		if group == "" {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if strings.ToLower(strings.TrimSpace(items[j].InteractionGroup)) != group {
				continue
			}
			a, b := items[i].ID, items[j].ID
			if b < a {
				a, b = b, a
			}
			id := "local-int-" + a + "-" + b
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, model.SafetyNotification{
				ID:          id,
				Severity:    model.SeverityCritical,
				Type:        model.NotificationInteraction,
				Title:       "Interaction potentielle",
				Message:     fmt.Sprintf("%s et %s appartiennent au même groupe d'interaction", items[i].MedicineName, items[j].MedicineName),
				CanOverride: true,
			})
		}
	}
	return out
}

func (s *Service) invalidate(name string) {
	s.resolve.Delete(strings.ToLower(strings.TrimSpace(name)))
}

func (s *Service) publish(ctx context.Context, operation string, medicine *model.Medicine) {
	if s.broker == nil {
		return
	}
	event := messaging.ChangeEvent{Resource: "medicine", Operation: operation, Payload: medicine}
	if err := s.broker.Publish(ctx, messaging.ChannelMedicines, event); err != nil {
		s.logger.Warn("failed to publish medicine change", "operation", operation, "error", err.Error())
	}
}
