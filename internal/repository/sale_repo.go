package repository

import (
	"context"
	"strings"
	"time"

	"salesdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleFilter narrows List. Zero values mean "no constraint"; Limit 0 returns every row.
type SaleFilter struct {
	AgentID        *uuid.UUID
	Status         model.SaleStatus
	Matricule      string
	ExactMatricule bool
	Page           int
	Limit          int
}

// SaleRepository persists sales. State transitions are single conditional
// UPDATEs guarded on status = 'pending'; the boolean result reports whether
// the row was transitioned.
type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	FindByReceipt(ctx context.Context, receiptNumber string) (*model.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	MarkValidated(ctx context.Context, receiptNumber string, controllerID uuid.UUID, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, receiptNumber string, agentID uuid.UUID, at time.Time, reason model.CancellationReason, note *string) (bool, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale together with its items.
func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return translateError(GetDB(ctx, r.db).Create(sale).Error)
}

func (r *saleRepository) FindByReceipt(ctx context.Context, receiptNumber string) (*model.Sale, error) {
	var sale model.Sale
	if err := withDetails(GetDB(ctx, r.db)).First(&sale, "receipt_number = ?", receiptNumber).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyFilter(db.Model(&model.Sale{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := applyFilter(withDetails(db), filter).Order("created_at DESC").Order("receipt_number DESC")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}
	if err := query.Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

func (r *saleRepository) MarkValidated(ctx context.Context, receiptNumber string, controllerID uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("receipt_number = ? AND status = ?", receiptNumber, model.SaleStatusPending).
		Updates(map[string]interface{}{
			"status":       model.SaleStatusValidated,
			"validated_by": controllerID,
			"validated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepository) MarkCancelled(ctx context.Context, receiptNumber string, agentID uuid.UUID, at time.Time, reason model.CancellationReason, note *string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("receipt_number = ? AND agent_id = ? AND status = ?", receiptNumber, agentID, model.SaleStatusPending).
		Updates(map[string]interface{}{
			"status":              model.SaleStatusCancelled,
			"cancelled_by":        agentID,
			"cancelled_at":        at,
			"cancellation_reason": reason,
			"cancellation_note":   note,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// withDetails loads the display-name joins and priced lines.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Agent").
		Preload("Validator").
		Preload("Canceller").
		Preload("Items.Product")
}

func applyFilter(db *gorm.DB, filter SaleFilter) *gorm.DB {
	if filter.AgentID != nil {
		db = db.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if m := strings.TrimSpace(filter.Matricule); m != "" {
		if filter.ExactMatricule {
			db = db.Where("buyer_matricule = ?", m)
		} else {
			db = db.Where("LOWER(buyer_matricule) LIKE ?", "%"+strings.ToLower(m)+"%")
		}
	}
	return db
}
