package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/reflink-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单镜像数据访问接口
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository

	GetByID(id uint) (*models.Order, error)
	GetByPlatformOrderID(platformOrderID int64) (*models.Order, error)
	Create(order *models.Order) error
	UpdateStatus(id uint, status string, at time.Time) error
	List(filter OrderListFilter) ([]models.Order, int64, error)
}

// GormOrderRepository GORM 订单仓储
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// GetByID 按ID获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByPlatformOrderID 按平台订单ID获取订单
func (r *GormOrderRepository) GetByPlatformOrderID(platformOrderID int64) (*models.Order, error) {
	if platformOrderID == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("platform_order_id = ?", platformOrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Create 创建订单镜像
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// UpdateStatus 更新订单状态及对应时间戳
func (r *GormOrderRepository) UpdateStatus(id uint, status string, at time.Time) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"status":     strings.TrimSpace(status),
		"updated_at": at,
	}
	switch strings.TrimSpace(status) {
	case "fulfilled":
		updates["fulfilled_at"] = at
	case "cancelled":
		updates["cancelled_at"] = at
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// List 分页查询订单镜像
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.AffiliateID != 0 {
		query = query.Where("buyer_affiliate_id = ?", filter.AffiliateID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no = ?", orderNo)
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

	var orders []models.Order
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
