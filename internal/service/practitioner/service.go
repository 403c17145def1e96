package practitioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/repository"
	"github.com/meddoc/clinic-api/pkg/auth"
	apperrors "github.com/meddoc/clinic-api/pkg/errors"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/security"
)

// Service manages the single practitioner profile and the PIN lock.
// Unlocking issues a short-lived session token the middleware checks on
// mutating routes.
type Service struct {
	repo   repository.PractitionerRepository
	hasher security.PINHasher
	tokens auth.TokenService
	expiry time.Duration
	logger *logger.Logger
}

func NewService(repo repository.PractitionerRepository, hasher security.PINHasher, tokens auth.TokenService, expiry time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, expiry: expiry, logger: log}
}

// Get returns the profile, creating a blank one on first access.
func (s *Service) Get(ctx context.Context) (*model.Practitioner, error) {
	practitioner, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get practitioner: %w", err)
		}
		practitioner = &model.Practitioner{Base: model.Base{ID: uuid.New()}}
		if err := s.repo.Upsert(ctx, practitioner); err != nil {
			return nil, fmt.Errorf("failed to initialize practitioner: %w", err)
		}
	}
	return practitioner, nil
}

func (s *Service) Update(ctx context.Context, req *model.UpdatePractitionerRequest) (*model.Practitioner, error) {
	practitioner, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		practitioner.Name = *req.Name
	}
	if req.NameArabic != nil {
		practitioner.NameArabic = *req.NameArabic
	}
	if req.Specialty != nil {
		practitioner.Specialty = *req.Specialty
	}
	if req.Address != nil {
		practitioner.Address = *req.Address
	}
	if req.Phone != nil {
		practitioner.Phone = *req.Phone
	}
	if req.Email != nil {
		practitioner.Email = *req.Email
	}
	if req.Currency != nil {
		practitioner.Currency = *req.Currency
	}
	if req.PIN != nil {
		hash, err := s.hasher.Hash(*req.PIN)
		if err != nil {
			return nil, apperrors.BadRequest("invalid pin", err)
		}
		practitioner.PINHash = hash
	}
	if req.PINEnabled != nil {
		if *req.PINEnabled && practitioner.PINHash == "" {
			return nil, apperrors.BadRequest("cannot enable pin lock without a pin", nil)
		}
		practitioner.PINEnabled = *req.PINEnabled
	}

	if err := s.repo.Upsert(ctx, practitioner); err != nil {
		return nil, fmt.Errorf("failed to update practitioner: %w", err)
	}
	return practitioner, nil
}

// Unlock verifies the PIN and issues a session token.
func (s *Service) Unlock(ctx context.Context, req *model.UnlockRequest) (*model.UnlockResponse, error) {
	practitioner, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !practitioner.PINEnabled {
		return nil, apperrors.BadRequest("pin lock is not enabled", nil)
	}
	if err := s.hasher.Compare(practitioner.PINHash, req.PIN); err != nil {
		s.logger.Warn("failed unlock attempt")
		return nil, apperrors.Unauthorized(errors.New("incorrect pin"))
	}

	token, err := s.tokens.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &model.UnlockResponse{
		Token:     token,
		ExpiresIn: int(s.expiry.Seconds()),
	}, nil
}

// PINEnabled reports whether the lock is active, for the middleware.
func (s *Service) PINEnabled(ctx context.Context) bool {
	practitioner, err := s.repo.Get(ctx)
	if err != nil {
		return false
	}
	return practitioner.PINEnabled
}
