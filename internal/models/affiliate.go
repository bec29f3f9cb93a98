package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Affiliate 推广用户档案
type Affiliate struct {
	ID                 uint             `gorm:"primarykey" json:"id"`                                   // 主键
	ReferralCode       string           `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`      // 推广短码
	ReferrerID         *uint            `gorm:"index" json:"referrer_id,omitempty"`                     // 邀请人ID（创建后不可变）
	Email              string           `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`    // 邮箱
	DisplayName        string           `gorm:"type:varchar(100)" json:"display_name"`                  // 展示名称
	PlatformCustomerID *int64           `gorm:"index" json:"platform_customer_id,omitempty"`            // 商城平台客户ID
	CommissionRate     decimal.Decimal  `gorm:"type:decimal(10,4);not null;default:0" json:"rate"`      // 标准佣金倍率（0~1）
	CommissionOverride *decimal.Decimal `gorm:"type:decimal(10,4)" json:"rate_override,omitempty"`      // 管理员覆写倍率
	HasPurchased       bool             `gorm:"not null;default:false" json:"has_purchased"`            // 是否已有效购买
	Status             string           `gorm:"type:varchar(20);not null;index" json:"status"`          // 状态
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt          time.Time        `gorm:"index" json:"updated_at"`                                // 更新时间
	DeletedAt          gorm.DeletedAt   `gorm:"index" json:"-"`                                         // 软删除时间

	Referrer *Affiliate `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"` // 邀请人
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// EffectiveRate 返回生效佣金倍率（覆写优先）
func (a *Affiliate) EffectiveRate() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	if a.CommissionOverride != nil {
		return *a.CommissionOverride
	}
	return a.CommissionRate
}

// AffiliateAncestor 推广关系闭包行（每个 (affiliate, ancestor, level) 一行）
type AffiliateAncestor struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                                                      // 主键
	AffiliateID uint      `gorm:"not null;index;uniqueIndex:idx_affiliate_ancestor_level;uniqueIndex:idx_affiliate_ancestor_pair" json:"affiliate_id"` // 推广用户ID
	AncestorID  uint      `gorm:"not null;index;uniqueIndex:idx_affiliate_ancestor_pair" json:"ancestor_id"`                                 // 上级ID
	Level       int       `gorm:"not null;uniqueIndex:idx_affiliate_ancestor_level" json:"level"`                                            // 层级（1=直接邀请人，最大4）
	CreatedAt   time.Time `gorm:"index;not null" json:"created_at"`                                                                          // 创建时间

	Ancestor Affiliate `gorm:"foreignKey:AncestorID" json:"ancestor,omitempty"` // 上级档案
}

// TableName 指定表名
func (AffiliateAncestor) TableName() string {
	return "affiliate_ancestors"
}
