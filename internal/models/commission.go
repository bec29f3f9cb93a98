package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 多级推广佣金记录
type Commission struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                          // 主键
	OrderID        uint           `gorm:"not null;index;uniqueIndex:idx_commission_order_earner" json:"order_id"`        // 订单ID
	EarnerID       uint           `gorm:"not null;index;uniqueIndex:idx_commission_order_earner" json:"earner_id"`       // 受益推广用户ID
	ReferredUserID uint           `gorm:"not null;index" json:"referred_user_id"`                                        // 下单推广用户ID
	Level          int            `gorm:"not null" json:"level"`                                                         // 层级（1~4）
	BasePercent    Money          `gorm:"type:decimal(10,2);not null;default:0" json:"base_percent"`                     // 层级基础比例（百分比）
	AppliedRate    Money          `gorm:"type:decimal(10,4);not null;default:0" json:"applied_rate"`                     // 生效倍率快照
	OrderAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`                     // 订单金额
	Amount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                           // 佣金金额
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`                                 // 状态
	ApprovedAt     *time.Time     `gorm:"index" json:"approved_at,omitempty"`                                            // 确认时间
	CancelledAt    *time.Time     `gorm:"index" json:"cancelled_at,omitempty"`                                           // 取消时间
	InvalidReason  string         `gorm:"type:varchar(255)" json:"invalid_reason"`                                       // 失效原因
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                                // 软删除时间

	Order  Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`   // 关联订单
	Earner Affiliate `gorm:"foreignKey:EarnerID" json:"earner,omitempty"` // 受益推广用户
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
