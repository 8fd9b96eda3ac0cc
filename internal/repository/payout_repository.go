package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"payout-service/internal/domain/payout"
	payout_errors "payout-service/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var orderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"amount":      "amount ASC",
	"-amount":     "amount DESC",
	"status":      "status ASC",
	"-status":     "status DESC",
}

type PostgresPayoutRepository struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &PostgresPayoutRepository{
		db:    db,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresPayoutRepository) Create(ctx context.Context, p *payout.Payout) error {
	now := r.clock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	res := r.db.WithContext(ctx).Create(p)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return payout_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresPayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (payout.Payout, error) {
	return r.getByID(r.db.WithContext(ctx), id)
}

func (r *PostgresPayoutRepository) getByID(db *gorm.DB, id uuid.UUID) (payout.Payout, error) {
	var p payout.Payout
	err := db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return payout.Payout{}, payout_errors.ErrNotFound
		}
		return payout.Payout{}, err
	}
	return p, nil
}

func (r *PostgresPayoutRepository) List(ctx context.Context, filter PayoutFilter) ([]payout.Payout, int64, error) {
	var payouts []payout.Payout
	var total int64

	q := r.db.WithContext(ctx).Model(&payout.Payout{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Currency != "" {
		q = q.Where("currency = ?", filter.Currency)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		q = q.Where(
			`LOWER(recipient_name) LIKE ? ESCAPE '\' OR LOWER(recipient_account) LIKE ? ESCAPE '\' OR LOWER(currency) LIKE ? ESCAPE '\' OR LOWER(status) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}

	q = q.Session(&gorm.Session{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	order, ok := orderings[filter.Ordering]
	if !ok {
		order = orderings["-created_at"]
	}

	offset := (page - 1) * limit
	if err := q.Order(order).Order("id ASC").Offset(offset).Limit(limit).Find(&payouts).Error; err != nil {
		return nil, 0, err
	}

	return payouts, total, nil
}

func (r *PostgresPayoutRepository) Update(ctx context.Context, p *payout.Payout, expected payout.Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.clock()
		res := tx.Model(&payout.Payout{}).
			Where("id = ? AND status = ?", p.ID, expected).
			Updates(map[string]interface{}{
				"amount":            p.Amount,
				"currency":          p.Currency,
				"recipient_name":    p.RecipientName,
				"recipient_account": p.RecipientAccount,
				"status":            p.Status,
				"description":       p.Description,
				"callback_url":      p.CallbackURL,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := r.getByID(tx, p.ID); err != nil {
				return err
			}
			return payout_errors.ErrConflict
		}

		stored, err := r.getByID(tx, p.ID)
		if err != nil {
			return err
		}
		*p = stored
		return nil
	})
}

func (r *PostgresPayoutRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to payout.Status) (payout.Payout, bool, error) {
	var current payout.Payout
	var applied bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&payout.Payout{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":     to,
				"updated_at": r.clock(),
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		stored, err := r.getByID(tx, id)
		if err != nil {
			return err
		}
		current = stored
		return nil
	})
	if err != nil {
		return payout.Payout{}, false, err
	}
	return current, applied, nil
}

func (r *PostgresPayoutRepository) ListStale(ctx context.Context, status payout.Status, updatedBefore time.Time, limit int) ([]payout.Payout, error) {
	var payouts []payout.Payout
	_, limit = normalizePage(1, limit)
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, updatedBefore.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *PostgresPayoutRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&payout.Payout{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return payout_errors.ErrNotFound
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
