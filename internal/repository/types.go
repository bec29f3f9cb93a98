package repository

import "time"

// AffiliateListFilter 查询推广用户列表的过滤条件
type AffiliateListFilter struct {
	Page       int
	PageSize   int
	ReferrerID uint
	Status     string
	Keyword    string
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	EarnerID    uint
	OrderID     uint
	Level       int
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单镜像列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
