package models

import (
	"time"
)

// Wallet 推广用户钱包（三桶余额）
type Wallet struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                           // 主键
	AffiliateID      uint      `gorm:"not null;uniqueIndex" json:"affiliate_id"`                       // 推广用户ID
	PendingBalance   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"pending_balance"`   // 待确认余额
	AvailableBalance Money     `gorm:"type:decimal(20,2);not null;default:0" json:"available_balance"` // 可提现余额
	LifetimeEarnings Money     `gorm:"type:decimal(20,2);not null;default:0" json:"lifetime_earnings"` // 累计已确认收益
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time `gorm:"index" json:"updated_at"`                                        // 更新时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广用户
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction 钱包流水（每次余额增减一行）
type WalletTransaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                  // 主键
	AffiliateID uint      `gorm:"not null;index" json:"affiliate_id"`                    // 推广用户ID
	Type        string    `gorm:"type:varchar(32);not null;index" json:"type"`           // 流水类型
	Direction   string    `gorm:"type:varchar(10);not null" json:"direction"`            // 方向 in/out
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`   // 金额
	Reference   string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"` // 幂等参考号
	Remark      string    `gorm:"type:varchar(255)" json:"remark"`                       // 备注
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
