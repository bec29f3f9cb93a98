package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/reflink-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletRepository 钱包数据访问接口。
// 余额变更全部以原子增量 SQL 表达，不做读改写。
type WalletRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WalletRepository

	Create(wallet *models.Wallet) error
	GetByAffiliateID(affiliateID uint) (*models.Wallet, error)
	GetByAffiliateIDs(affiliateIDs []uint) ([]models.Wallet, error)

	AddPending(affiliateID uint, amount decimal.Decimal) (bool, error)
	ConfirmPending(affiliateID uint, amount decimal.Decimal) (bool, error)
	ConfirmPendingClamped(affiliateID uint, amount decimal.Decimal) error
	DeductPending(affiliateID uint, amount decimal.Decimal) (bool, error)
	DeductApproved(affiliateID uint, amount decimal.Decimal) (bool, error)
	DeductAvailable(affiliateID uint, amount decimal.Decimal) (bool, error)
	ClampPendingToZero(affiliateID uint, amount decimal.Decimal) error
	DeductApprovedClamped(affiliateID uint, amount decimal.Decimal) error

	CreateTransaction(txn *models.WalletTransaction) error
	GetTransactionByReference(reference string) (*models.WalletTransaction, error)
	ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error)
}

// GormWalletRepository GORM 钱包仓储实现
type GormWalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWalletRepository) WithTx(tx *gorm.DB) WalletRepository {
	if tx == nil {
		return r
	}
	return &GormWalletRepository{db: tx}
}

// Transaction 执行事务
func (r *GormWalletRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建钱包
func (r *GormWalletRepository) Create(wallet *models.Wallet) error {
	return r.db.Create(wallet).Error
}

// GetByAffiliateID 按推广用户ID获取钱包
func (r *GormWalletRepository) GetByAffiliateID(affiliateID uint) (*models.Wallet, error) {
	if affiliateID == 0 {
		return nil, nil
	}
	var wallet models.Wallet
	if err := r.db.Where("affiliate_id = ?", affiliateID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// GetByAffiliateIDs 批量获取钱包
func (r *GormWalletRepository) GetByAffiliateIDs(affiliateIDs []uint) ([]models.Wallet, error) {
	if len(affiliateIDs) == 0 {
		return []models.Wallet{}, nil
	}
	var wallets []models.Wallet
	if err := r.db.Where("affiliate_id IN ?", affiliateIDs).Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

// AddPending 待确认余额原子增加，返回是否命中钱包行
func (r *GormWalletRepository) AddPending(affiliateID uint, amount decimal.Decimal) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ?", affiliateID).
		Updates(map[string]interface{}{
			"pending_balance": gorm.Expr("pending_balance + ?", amount),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ConfirmPending 待确认转可提现并累计收益，余额充足时返回 true
func (r *GormWalletRepository) ConfirmPending(affiliateID uint, amount decimal.Decimal) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ? AND pending_balance >= ?", affiliateID, amount).
		Updates(map[string]interface{}{
			"pending_balance":   gorm.Expr("pending_balance - ?", amount),
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"lifetime_earnings": gorm.Expr("lifetime_earnings + ?", amount),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ConfirmPendingClamped 余额不足时的兜底：待确认清零，另两桶仍按全额入账
func (r *GormWalletRepository) ConfirmPendingClamped(affiliateID uint, amount decimal.Decimal) error {
	if affiliateID == 0 {
		return nil
	}
	return r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ?", affiliateID).
		Updates(map[string]interface{}{
			"pending_balance":   models.ZeroMoney(),
			"available_balance": gorm.Expr("available_balance + ?", amount),
			"lifetime_earnings": gorm.Expr("lifetime_earnings + ?", amount),
			"updated_at":        time.Now(),
		}).Error
}

// DeductPending 待确认余额原子扣减，余额充足时返回 true
func (r *GormWalletRepository) DeductPending(affiliateID uint, amount decimal.Decimal) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ? AND pending_balance >= ?", affiliateID, amount).
		Updates(map[string]interface{}{
			"pending_balance": gorm.Expr("pending_balance - ?", amount),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClampPendingToZero 扣减兜底：余额不足以扣减 amount 时直接清零
func (r *GormWalletRepository) ClampPendingToZero(affiliateID uint, amount decimal.Decimal) error {
	if affiliateID == 0 {
		return nil
	}
	return r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ? AND pending_balance < ?", affiliateID, amount).
		Updates(map[string]interface{}{
			"pending_balance": models.ZeroMoney(),
			"updated_at":      time.Now(),
		}).Error
}

// DeductApproved 可提现与累计收益同时原子扣减（已确认佣金冲销），余额充足时返回 true
func (r *GormWalletRepository) DeductApproved(affiliateID uint, amount decimal.Decimal) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ? AND available_balance >= ? AND lifetime_earnings >= ?", affiliateID, amount, amount).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance - ?", amount),
			"lifetime_earnings": gorm.Expr("lifetime_earnings - ?", amount),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeductAvailable 可提现余额原子扣减（提现），余额充足时返回 true
func (r *GormWalletRepository) DeductAvailable(affiliateID uint, amount decimal.Decimal) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ? AND available_balance >= ?", affiliateID, amount).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("available_balance - ?", amount),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeductApprovedClamped 冲销兜底：余额不足的桶清零，充足的桶照常扣减
func (r *GormWalletRepository) DeductApprovedClamped(affiliateID uint, amount decimal.Decimal) error {
	if affiliateID == 0 {
		return nil
	}
	return r.db.Model(&models.Wallet{}).
		Where("affiliate_id = ?", affiliateID).
		Updates(map[string]interface{}{
			"available_balance": gorm.Expr("CASE WHEN available_balance >= ? THEN available_balance - ? ELSE 0 END", amount, amount),
			"lifetime_earnings": gorm.Expr("CASE WHEN lifetime_earnings >= ? THEN lifetime_earnings - ? ELSE 0 END", amount, amount),
			"updated_at":        time.Now(),
		}).Error
}

// CreateTransaction 创建钱包流水
func (r *GormWalletRepository) CreateTransaction(txn *models.WalletTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按参考号获取流水
func (r *GormWalletRepository) GetTransactionByReference(reference string) (*models.WalletTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.WalletTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询钱包流水
func (r *GormWalletRepository) ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.Model(&models.WalletTransaction{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
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

	var txns []models.WalletTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
