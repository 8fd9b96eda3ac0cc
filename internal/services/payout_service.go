package services

import (
	"context"
	"errors"
	"strings"

	"payout-service/internal/domain/payout"
	"payout-service/internal/pipeline"
	"payout-service/internal/repository"
	payout_errors "payout-service/pkg/errors"
	"payout-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaskEnqueuer hands the pipeline entry point to the task queue.
type TaskEnqueuer interface {
	EnqueueNow(ctx context.Context, name string, args ...string) error
}

type EventPublisher interface {
	PublishCreated(ctx context.Context, p payout.Payout) error
	PublishStatusChanged(ctx context.Context, p payout.Payout, previous payout.Status) error
	PublishDeleted(ctx context.Context, p payout.Payout) error
}

type CreatePayoutInput struct {
	Amount           decimal.Decimal
	Currency         string
	RecipientName    string
	RecipientAccount string
	Description      string
	CallbackURL      string
}

// UpdatePayoutInput carries a partial update; nil fields are left unchanged.
type UpdatePayoutInput struct {
	Amount           *decimal.Decimal
	Currency         *string
	RecipientName    *string
	RecipientAccount *string
	Description      *string
	CallbackURL      *string
	Status           *string
}

type PayoutService struct {
	repo      repository.PayoutRepository
	tasks     TaskEnqueuer
	publisher EventPublisher
	logger    *logger.Logger
}

func NewPayoutService(repo repository.PayoutRepository, tasks TaskEnqueuer, publisher EventPublisher, l *logger.Logger) *PayoutService {
	if l == nil {
		l = logger.NewNop()
	}
	return &PayoutService{repo: repo, tasks: tasks, publisher: publisher, logger: l}
}

// Create validates and stores a new PENDING payout, then enqueues
// process_payout for it once the record is committed.
func (s *PayoutService) Create(ctx context.Context, input CreatePayoutInput) (payout.Payout, error) {
	p := payout.Payout{
		ID:     uuid.New(),
		Status: payout.StatusPending,
	}
	var err error
	if p.Amount, err = payout.ValidateAmount(input.Amount); err != nil {
		return payout.Payout{}, err
	}
	if p.Currency, err = payout.NormalizeCurrency(input.Currency); err != nil {
		return payout.Payout{}, err
	}
	if p.RecipientName, err = payout.ValidateRecipientName(input.RecipientName); err != nil {
		return payout.Payout{}, err
	}
	if p.RecipientAccount, err = payout.NormalizeAccount(input.RecipientAccount); err != nil {
		return payout.Payout{}, err
	}
	if p.Description, err = payout.ValidateDescription(input.Description); err != nil {
		return payout.Payout{}, err
	}
	if p.CallbackURL, err = payout.ValidateCallbackURL(input.CallbackURL); err != nil {
		return payout.Payout{}, err
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return payout.Payout{}, err
	}

	log := s.logger.WithContext(ctx)
	// the sweeper re-enqueues PENDING payouts whose task was lost here
	if err := s.tasks.EnqueueNow(ctx, pipeline.TaskProcessPayout, p.ID.String()); err != nil {
		log.Errorf("Failed to enqueue %s for payout %s: %v", pipeline.TaskProcessPayout, p.ID, err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, p); err != nil {
			log.Warnf("Failed to publish creation of payout %s: %v", p.ID, err)
		}
	}
	log.Infof("Payout %s created (%s %s)", p.ID, p.Amount.StringFixed(payout.AmountScale), p.Currency)
	return p, nil
}

func (s *PayoutService) List(ctx context.Context, filter repository.PayoutFilter) ([]payout.Payout, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Status != "" {
		status := payout.Status(strings.ToLower(string(filter.Status)))
		if !status.Valid() {
			return nil, 0, payout_errors.NewValidationError("status", "\""+string(filter.Status)+"\" is not a valid choice")
		}
		filter.Status = status
	}
	if filter.Currency != "" {
		currency, err := payout.NormalizeCurrency(string(filter.Currency))
		if err != nil {
			return nil, 0, err
		}
		filter.Currency = currency
	}
	return s.repo.List(ctx, filter)
}

func (s *PayoutService) GetByID(ctx context.Context, id uuid.UUID) (payout.Payout, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies a partial update. Completed payouts are locked and the only
// status change allowed is cancelling a payout the pipeline has not finished.
func (s *PayoutService) Update(ctx context.Context, id uuid.UUID, input UpdatePayoutInput) (payout.Payout, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return payout.Payout{}, err
	}
	if current.Status == payout.StatusCompleted {
		return payout.Payout{}, payout_errors.ErrPayoutLocked
	}

	updated := current
	if input.Amount != nil {
		if updated.Amount, err = payout.ValidateAmount(*input.Amount); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.Currency != nil {
		if updated.Currency, err = payout.NormalizeCurrency(*input.Currency); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.RecipientName != nil {
		if updated.RecipientName, err = payout.ValidateRecipientName(*input.RecipientName); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.RecipientAccount != nil {
		if updated.RecipientAccount, err = payout.NormalizeAccount(*input.RecipientAccount); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.Description != nil {
		if updated.Description, err = payout.ValidateDescription(*input.Description); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.CallbackURL != nil {
		if updated.CallbackURL, err = payout.ValidateCallbackURL(*input.CallbackURL); err != nil {
			return payout.Payout{}, err
		}
	}
	if input.Status != nil {
		next := payout.Status(strings.ToLower(strings.TrimSpace(*input.Status)))
		if err := payout.ValidateStatusChange(current.Status, next); err != nil {
			return payout.Payout{}, err
		}
		updated.Status = next
	}

	if err := s.repo.Update(ctx, &updated, current.Status); err != nil {
		if errors.Is(err, payout_errors.ErrConflict) {
			s.logger.WithContext(ctx).Warnf("Payout %s changed status during update", id)
		}
		return payout.Payout{}, err
	}

	if updated.Status != current.Status && s.publisher != nil {
		if err := s.publisher.PublishStatusChanged(ctx, updated, current.Status); err != nil {
			s.logger.WithContext(ctx).Warnf("Failed to publish status change for payout %s: %v", id, err)
		}
	}
	return updated, nil
}

func (s *PayoutService) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, current); err != nil {
			s.logger.WithContext(ctx).Warnf("Failed to publish deletion of payout %s: %v", id, err)
		}
	}
	return nil
}
