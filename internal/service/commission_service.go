package service

import (
	"fmt"
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/shopify"

	"github.com/shopspring/decimal"
)

// CommissionService 佣金结算服务。
// 以订单事件驱动：创建记账（待确认）、发货确认、取消冲销。
// 判重交给 (order_id, earner_id) 唯一索引与钱包流水参考号，
// 事件重复投递整条链路都是空操作。
type CommissionService struct {
	affiliateRepo  repository.AffiliateRepository
	orderRepo      repository.OrderRepository
	commissionRepo repository.CommissionRepository
	walletRepo     repository.WalletRepository
	tree           *ReferralTreeService
	wallet         *WalletService
	qualifiedRate  decimal.Decimal
}

// NewCommissionService 创建佣金结算服务
func NewCommissionService(
	affiliateRepo repository.AffiliateRepository,
	orderRepo repository.OrderRepository,
	commissionRepo repository.CommissionRepository,
	walletRepo repository.WalletRepository,
	tree *ReferralTreeService,
	wallet *WalletService,
	qualifiedRate decimal.Decimal,
) *CommissionService {
	return &CommissionService{
		affiliateRepo:  affiliateRepo,
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
		walletRepo:     walletRepo,
		tree:           tree,
		wallet:         wallet,
		qualifiedRate:  qualifiedRate,
	}
}

// HandleOrderEvent 处理订单事件（webhook 投递，至少一次语义）
func (s *CommissionService) HandleOrderEvent(eventType string, event *shopify.OrderEvent) error {
	if event == nil {
		return ErrOrderNotFound
	}
	switch eventType {
	case constants.OrderEventCreated:
		return s.HandleOrderCreated(event)
	case constants.OrderEventFulfilled:
		return s.HandleOrderFulfilled(event)
	case constants.OrderEventCancelled:
		return s.HandleOrderCancelled(event)
	default:
		logger.Warnw("order_event_ignored", "event_type", eventType, "platform_order_id", event.ID)
		return nil
	}
}

// HandleOrderCreated 订单创建：落镜像并按上级链记待确认佣金
func (s *CommissionService) HandleOrderCreated(event *shopify.OrderEvent) error {
	order, err := s.upsertOrder(event)
	if err != nil {
		return err
	}
	if order.Status == constants.OrderStatusCancelled {
		// 取消事件先到，不再补记
		return nil
	}
	return s.RecordOrderCommissions(order)
}

// HandleOrderFulfilled 订单发货：待确认佣金转入可提现
func (s *CommissionService) HandleOrderFulfilled(event *shopify.OrderEvent) error {
	order, err := s.upsertOrder(event)
	if err != nil {
		return err
	}
	if order.Status == constants.OrderStatusCancelled {
		return nil
	}
	if order.Status != constants.OrderStatusFulfilled {
		if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusFulfilled, time.Now()); err != nil {
			return err
		}
	}
	// 创建事件可能丢失，先补记再确认
	if err := s.RecordOrderCommissions(order); err != nil {
		return err
	}
	return s.ApproveOrderCommissions(order.ID)
}

// HandleOrderCancelled 订单取消：冲销该订单全部佣金
func (s *CommissionService) HandleOrderCancelled(event *shopify.OrderEvent) error {
	order, err := s.upsertOrder(event)
	if err != nil {
		return err
	}
	if order.Status != constants.OrderStatusCancelled {
		if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusCancelled, time.Now()); err != nil {
			return err
		}
	}
	return s.CancelOrderCommissions(order.ID, "order cancelled")
}

// RecordOrderCommissions 沿下单人上级链逐层记待确认佣金。
// 单层失败记录日志后继续，不影响其余层级（允许部分成功）。
func (s *CommissionService) RecordOrderCommissions(order *models.Order) error {
	if order == nil {
		return ErrOrderNotFound
	}
	if order.BuyerAffiliateID == nil || *order.BuyerAffiliateID == 0 {
		return nil
	}

	ancestors, err := s.tree.GetAncestors(*order.BuyerAffiliateID)
	if err != nil {
		return err
	}

	for _, link := range ancestors {
		if err := s.recordOneCommission(order, link); err != nil {
			logger.Errorw("commission_record_failed",
				"order_id", order.ID,
				"earner_id", link.AncestorID,
				"level", link.Level,
				"error", err)
		}
	}
	return nil
}

func (s *CommissionService) recordOneCommission(order *models.Order, link models.AffiliateAncestor) error {
	earner, err := s.affiliateRepo.GetByID(link.AncestorID)
	if err != nil {
		return err
	}
	if earner == nil {
		logger.Warnw("commission_skip_earner_missing", "order_id", order.ID, "earner_id", link.AncestorID)
		return nil
	}
	if earner.Status != constants.AffiliateStatusActive {
		logger.Infow("commission_skip_earner_disabled",
			"order_id", order.ID, "earner_id", earner.ID, "level", link.Level)
		return nil
	}

	rate := earner.EffectiveRate()
	amount := ComputeCommission(link.Level, order.TotalAmount.Decimal, rate).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	commission := &models.Commission{
		OrderID:        order.ID,
		EarnerID:       earner.ID,
		ReferredUserID: *order.BuyerAffiliateID,
		Level:          link.Level,
		BasePercent:    models.NewMoneyFromDecimal(BasePercentForLevel(link.Level)),
		AppliedRate:    models.Money{Decimal: rate},
		OrderAmount:    order.TotalAmount,
		Amount:         models.NewMoneyFromDecimal(amount),
		Status:         constants.CommissionStatusPending,
	}
	if err := s.commissionRepo.Create(commission); err != nil {
		// 重复投递：该 (order, earner) 已记过账
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}

	logger.Infow("commission_recorded",
		"commission_id", commission.ID,
		"order_id", order.ID,
		"earner_id", earner.ID,
		"level", link.Level,
		"amount", amount.StringFixed(2))

	return s.wallet.IncrementPending(earner.ID, amount,
		fmt.Sprintf("commission:%d:pending", commission.ID),
		fmt.Sprintf("order %s level %d commission", order.OrderNo, link.Level))
}

// ApproveOrderCommissions 订单下全部待确认佣金转已确认，并触发下单人购买资格升级
func (s *CommissionService) ApproveOrderCommissions(orderID uint) error {
	rows, err := s.commissionRepo.ListByOrder(orderID, []string{constants.CommissionStatusPending})
	if err != nil {
		return err
	}
	now := time.Now()
	for _, row := range rows {
		applied, err := s.commissionRepo.TransitionStatus(row.ID,
			constants.CommissionStatusPending, constants.CommissionStatusApproved, now, "")
		if err != nil {
			logger.Errorw("commission_approve_failed", "commission_id", row.ID, "error", err)
			continue
		}
		if !applied {
			continue
		}
		if err := s.wallet.ApprovePending(row.EarnerID, row.Amount.Decimal,
			fmt.Sprintf("commission:%d:approve", row.ID),
			fmt.Sprintf("commission %d approved", row.ID)); err != nil {
			logger.Errorw("commission_approve_wallet_failed", "commission_id", row.ID, "error", err)
		}
	}
	return s.qualifyBuyer(orderID, now)
}

// qualifyBuyer 首次成交后将下单人升级为已购买档位
func (s *CommissionService) qualifyBuyer(orderID uint, now time.Time) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.BuyerAffiliateID == nil || *order.BuyerAffiliateID == 0 {
		return nil
	}
	changed, err := s.affiliateRepo.MarkPurchased(*order.BuyerAffiliateID, s.qualifiedRate, now)
	if err != nil {
		return err
	}
	if changed {
		logger.Infow("affiliate_qualified",
			"affiliate_id", *order.BuyerAffiliateID,
			"order_id", orderID,
			"rate", s.qualifiedRate.String())
	}
	return nil
}

// CancelOrderCommissions 冲销订单下全部未取消佣金。
// 待确认走撤销，已确认走 clawback；已取消行跳过。
func (s *CommissionService) CancelOrderCommissions(orderID uint, reason string) error {
	rows, err := s.commissionRepo.ListByOrder(orderID, []string{
		constants.CommissionStatusPending, constants.CommissionStatusApproved,
	})
	if err != nil {
		return err
	}
	now := time.Now()
	for _, row := range rows {
		switch row.Status {
		case constants.CommissionStatusPending:
			applied, err := s.commissionRepo.TransitionStatus(row.ID,
				constants.CommissionStatusPending, constants.CommissionStatusCancelled, now, reason)
			if err != nil {
				logger.Errorw("commission_cancel_failed", "commission_id", row.ID, "error", err)
				continue
			}
			if !applied {
				continue
			}
			if err := s.wallet.DecrementPending(row.EarnerID, row.Amount.Decimal,
				fmt.Sprintf("commission:%d:revoke", row.ID), reason); err != nil {
				logger.Errorw("commission_cancel_wallet_failed", "commission_id", row.ID, "error", err)
			}
		case constants.CommissionStatusApproved:
			applied, err := s.commissionRepo.TransitionStatus(row.ID,
				constants.CommissionStatusApproved, constants.CommissionStatusCancelled, now, reason)
			if err != nil {
				logger.Errorw("commission_cancel_failed", "commission_id", row.ID, "error", err)
				continue
			}
			if !applied {
				continue
			}
			if err := s.wallet.ReverseApproved(row.EarnerID, row.Amount.Decimal,
				fmt.Sprintf("commission:%d:clawback", row.ID), reason); err != nil {
				logger.Errorw("commission_cancel_wallet_failed", "commission_id", row.ID, "error", err)
			}
		}
	}
	return nil
}

// List 分页查询佣金记录
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(filter)
}

// EarningsSummary 返回某推广用户的佣金汇总（按状态）
func (s *CommissionService) EarningsSummary(affiliateID uint) (pending, approved decimal.Decimal, err error) {
	pending, err = s.commissionRepo.SumByEarnerAndStatus(affiliateID, constants.CommissionStatusPending)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	approved, err = s.commissionRepo.SumByEarnerAndStatus(affiliateID, constants.CommissionStatusApproved)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pending, approved, nil
}

// ReconcileWallets 对账：按佣金行重算余额并上报漂移，不自动修正。
// 可提现余额会被提现扣减，对账口径只盯待确认与累计收益两桶。
func (s *CommissionService) ReconcileWallets() (int, error) {
	earnerIDs, err := s.commissionRepo.ListEarnerIDs()
	if err != nil {
		return 0, err
	}

	drifted := 0
	for _, earnerID := range earnerIDs {
		pendingSum, err := s.commissionRepo.SumByEarnerAndStatus(earnerID, constants.CommissionStatusPending)
		if err != nil {
			return drifted, err
		}
		approvedSum, err := s.commissionRepo.SumByEarnerAndStatus(earnerID, constants.CommissionStatusApproved)
		if err != nil {
			return drifted, err
		}
		wallet, err := s.walletRepo.GetByAffiliateID(earnerID)
		if err != nil {
			return drifted, err
		}
		if wallet == nil {
			if pendingSum.IsZero() && approvedSum.IsZero() {
				continue
			}
			drifted++
			logger.Warnw("wallet_reconcile_missing_wallet",
				"affiliate_id", earnerID,
				"expected_pending", pendingSum.StringFixed(2),
				"expected_lifetime", approvedSum.StringFixed(2))
			continue
		}
		if !wallet.PendingBalance.Decimal.Equal(pendingSum) || !wallet.LifetimeEarnings.Decimal.Equal(approvedSum) {
			drifted++
			logger.Warnw("wallet_reconcile_drift",
				"affiliate_id", earnerID,
				"pending_balance", wallet.PendingBalance.String(),
				"expected_pending", pendingSum.StringFixed(2),
				"lifetime_earnings", wallet.LifetimeEarnings.String(),
				"expected_lifetime", approvedSum.StringFixed(2))
		}
	}

	logger.Infow("wallet_reconcile_done", "earners", len(earnerIDs), "drifted", drifted)
	return drifted, nil
}

// upsertOrder 按平台订单ID落或读订单镜像，并解析下单人归因
func (s *CommissionService) upsertOrder(event *shopify.OrderEvent) (*models.Order, error) {
	existing, err := s.orderRepo.GetByPlatformOrderID(event.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	buyer, err := s.resolveBuyer(event)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		PlatformOrderID: event.ID,
		OrderNo:         event.OrderNo(),
		BuyerEmail:      event.CustomerEmail(),
		TotalAmount:     models.NewMoneyFromDecimal(event.Total()),
		Currency:        event.Currency,
		Status:          constants.OrderStatusCreated,
	}
	if buyer != nil {
		order.BuyerAffiliateID = &buyer.ID
	}
	if err := s.orderRepo.Create(order); err != nil {
		// 并发投递时另一侧已落库
		if isUniqueViolation(err) {
			return s.orderRepo.GetByPlatformOrderID(event.ID)
		}
		return nil, err
	}
	return order, nil
}

// resolveBuyer 归因下单人：优先平台客户ID，退化到邮箱；无归因返回 nil
func (s *CommissionService) resolveBuyer(event *shopify.OrderEvent) (*models.Affiliate, error) {
	if customerID := event.CustomerID(); customerID != 0 {
		affiliate, err := s.affiliateRepo.GetByPlatformCustomerID(customerID)
		if err != nil {
			return nil, err
		}
		if affiliate != nil {
			return affiliate, nil
		}
	}
	if email := event.CustomerEmail(); email != "" {
		return s.affiliateRepo.GetByEmail(email)
	}
	return nil, nil
}
