package repository

import (
	"errors"
	"time"

	"github.com/reflink-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	WithTx(tx *gorm.DB) CommissionRepository

	Create(commission *models.Commission) error
	GetByID(id uint) (*models.Commission, error)
	GetByOrderAndEarner(orderID, earnerID uint) (*models.Commission, error)
	ListByOrder(orderID uint, statuses []string) ([]models.Commission, error)
	TransitionStatus(id uint, fromStatus, toStatus string, at time.Time, reason string) (bool, error)
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	SumByEarnerAndStatus(earnerID uint, status string) (decimal.Decimal, error)
	ListEarnerIDs() ([]uint, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// GetByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByOrderAndEarner 按订单与受益人获取佣金记录
func (r *GormCommissionRepository) GetByOrderAndEarner(orderID, earnerID uint) (*models.Commission, error) {
	if orderID == 0 || earnerID == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("order_id = ? AND earner_id = ?", orderID, earnerID).
		First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ListByOrder 按订单列出佣金记录（可按状态过滤）
func (r *GormCommissionRepository) ListByOrder(orderID uint, statuses []string) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	query := r.db.Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var commissions []models.Commission
	if err := query.Order("level asc").Find(&commissions).Error; err != nil {
		return nil, err
	}
	return commissions, nil
}

// TransitionStatus 条件更新佣金状态（from 不匹配时不生效，返回是否更新）
func (r *GormCommissionRepository) TransitionStatus(id uint, fromStatus, toStatus string, at time.Time, reason string) (bool, error) {
	if id == 0 {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     toStatus,
		"updated_at": at,
	}
	switch toStatus {
	case "approved":
		updates["approved_at"] = at
	case "cancelled":
		updates["cancelled_at"] = at
	}
	if reason != "" {
		updates["invalid_reason"] = reason
	}
	result := r.db.Model(&models.Commission{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 分页查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})
	if filter.EarnerID != 0 {
		query = query.Where("earner_id = ?", filter.EarnerID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var commissions []models.Commission
	if err := query.Order("id desc").Find(&commissions).Error; err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

// SumByEarnerAndStatus 统计受益人某状态下的佣金总额
func (r *GormCommissionRepository) SumByEarnerAndStatus(earnerID uint, status string) (decimal.Decimal, error) {
	if earnerID == 0 {
		return decimal.Zero, nil
	}
	var raw *string
	if err := r.db.Model(&models.Commission{}).
		Select("CAST(COALESCE(SUM(amount), 0) AS TEXT)").
		Where("earner_id = ? AND status = ?", earnerID, status).
		Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ListEarnerIDs 列出出现过佣金的受益人ID
func (r *GormCommissionRepository) ListEarnerIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Commission{}).
		Distinct("earner_id").
		Pluck("earner_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
