package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/reflink-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AffiliateRepository 推广用户数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	GetByEmail(email string) (*models.Affiliate, error)
	GetByPlatformCustomerID(customerID int64) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	UpdateCommissionOverride(id uint, override *decimal.Decimal, updatedAt time.Time) error
	MarkPurchased(id uint, rate decimal.Decimal, updatedAt time.Time) (bool, error)
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)

	CreateAncestors(rows []models.AffiliateAncestor) error
	ListAncestors(affiliateID uint) ([]models.AffiliateAncestor, error)
	HasAncestors(affiliateID uint) (bool, error)
	CountDescendantsByLevel(ancestorID uint) (map[int]int64, error)

	CreateVisit(visit *models.ReferralVisit) error
	HasRecentVisit(affiliateID uint, visitorKey, landingPath string, since time.Time) (bool, error)
	CountVisits(affiliateID uint) (int64, error)
}

// GormAffiliateRepository GORM 推广用户仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广用户仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取推广档案
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推广短码获取档案
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("referral_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByEmail 按邮箱获取档案
func (r *GormAffiliateRepository) GetByEmail(email string) (*models.Affiliate, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("email = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByPlatformCustomerID 按平台客户ID获取档案
func (r *GormAffiliateRepository) GetByPlatformCustomerID(customerID int64) (*models.Affiliate, error) {
	if customerID == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("platform_customer_id = ?", customerID).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// Create 创建推广档案
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// UpdateStatus 更新推广档案状态
func (r *GormAffiliateRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// UpdateCommissionOverride 更新管理员覆写倍率（nil 表示清除）
func (r *GormAffiliateRepository) UpdateCommissionOverride(id uint, override *decimal.Decimal, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"commission_override": override,
			"updated_at":          updatedAt,
		}).Error
}

// MarkPurchased 标记推广用户已有效购买并提升标准倍率（已标记时为空操作）
func (r *GormAffiliateRepository) MarkPurchased(id uint, rate decimal.Decimal, updatedAt time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Affiliate{}).
		Where("id = ? AND has_purchased = ?", id, false).
		Updates(map[string]interface{}{
			"has_purchased":   true,
			"commission_rate": rate,
			"updated_at":      updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 分页查询推广档案
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := "%" + keyword + "%"
		query = query.Where("referral_code LIKE ? OR email LIKE ? OR display_name LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var affiliates []models.Affiliate
	if err := query.Order("id desc").Find(&affiliates).Error; err != nil {
		return nil, 0, err
	}
	return affiliates, total, nil
}

// CreateAncestors 批量写入闭包行
func (r *GormAffiliateRepository) CreateAncestors(rows []models.AffiliateAncestor) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Create(&rows).Error
}

// ListAncestors 按层级升序列出上级链
func (r *GormAffiliateRepository) ListAncestors(affiliateID uint) ([]models.AffiliateAncestor, error) {
	if affiliateID == 0 {
		return []models.AffiliateAncestor{}, nil
	}
	var rows []models.AffiliateAncestor
	if err := r.db.Where("affiliate_id = ?", affiliateID).
		Order("level asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// HasAncestors 判断是否已写入闭包行
func (r *GormAffiliateRepository) HasAncestors(affiliateID uint) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.AffiliateAncestor{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountDescendantsByLevel 统计各层级下级人数
func (r *GormAffiliateRepository) CountDescendantsByLevel(ancestorID uint) (map[int]int64, error) {
	result := make(map[int]int64)
	if ancestorID == 0 {
		return result, nil
	}
	type levelCount struct {
		Level int
		Count int64
	}
	var rows []levelCount
	if err := r.db.Model(&models.AffiliateAncestor{}).
		Select("level, count(*) as count").
		Where("ancestor_id = ?", ancestorID).
		Group("level").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Level] = row.Count
	}
	return result, nil
}

// CreateVisit 写入推广入口访问记录
func (r *GormAffiliateRepository) CreateVisit(visit *models.ReferralVisit) error {
	return r.db.Create(visit).Error
}

// HasRecentVisit 判断访客近期是否已记录过同一落地页
func (r *GormAffiliateRepository) HasRecentVisit(affiliateID uint, visitorKey, landingPath string, since time.Time) (bool, error) {
	if affiliateID == 0 || strings.TrimSpace(visitorKey) == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.ReferralVisit{}).
		Where("affiliate_id = ? AND visitor_key = ? AND landing_path = ? AND created_at >= ?",
			affiliateID, visitorKey, landingPath, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountVisits 统计推广入口访问次数
func (r *GormAffiliateRepository) CountVisits(affiliateID uint) (int64, error) {
	if affiliateID == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.Model(&models.ReferralVisit{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
