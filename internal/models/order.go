package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 商城平台订单镜像（由 webhook 写入）
type Order struct {
	ID               uint           `gorm:"primarykey" json:"id"`                               // 主键
	PlatformOrderID  int64          `gorm:"not null;uniqueIndex" json:"platform_order_id"`      // 平台订单ID
	OrderNo          string         `gorm:"type:varchar(64);index" json:"order_no"`             // 平台订单编号
	BuyerAffiliateID *uint          `gorm:"index" json:"buyer_affiliate_id,omitempty"`          // 下单推广用户ID
	BuyerEmail       string         `gorm:"type:varchar(255);index" json:"buyer_email"`         // 买家邮箱
	TotalAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total"` // 订单总额
	Currency         string         `gorm:"type:varchar(10)" json:"currency"`                   // 币种
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"`      // 状态
	FulfilledAt      *time.Time     `json:"fulfilled_at,omitempty"`                             // 发货时间
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`                             // 取消时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	BuyerAffiliate *Affiliate `gorm:"foreignKey:BuyerAffiliateID" json:"buyer_affiliate,omitempty"` // 下单推广用户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
