package constants

// 推广用户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 订单状态常量
const (
	OrderStatusCreated   = "created"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

// 佣金状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusApproved  = "approved"
	CommissionStatusCancelled = "cancelled"
)

// 佣金层级常量
const (
	CommissionMaxLevel = 4
)

// 钱包流水类型常量
const (
	WalletTxnTypeCommissionPending  = "commission_pending"
	WalletTxnTypeCommissionApprove  = "commission_approve"
	WalletTxnTypeCommissionRevoke   = "commission_revoke"
	WalletTxnTypeCommissionClawback = "commission_clawback"
	WalletTxnTypeWithdraw           = "withdraw"
)

// 钱包流水方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 订单事件类型常量（来自商城平台 webhook）
const (
	OrderEventCreated   = "orders/create"
	OrderEventFulfilled = "orders/fulfilled"
	OrderEventCancelled = "orders/cancelled"
)

// 异步任务名称常量
const (
	TaskOrderEvent      = "order:event"
	TaskWalletReconcile = "wallet:reconcile"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)
