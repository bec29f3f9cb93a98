package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/shopify"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type commissionServiceFixture struct {
	svc           *CommissionService
	wallet        *WalletService
	tree          *ReferralTreeService
	affiliateRepo repository.AffiliateRepository
	orderRepo     repository.OrderRepository
	db            *gorm.DB
}

func setupCommissionServiceTest(t *testing.T) *commissionServiceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.AffiliateAncestor{},
		&models.Order{},
		&models.Commission{},
		&models.Wallet{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	affiliateRepo := repository.NewAffiliateRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	tree := NewReferralTreeService(affiliateRepo)
	wallet := NewWalletService(walletRepo)
	svc := NewCommissionService(
		affiliateRepo, orderRepo, commissionRepo, walletRepo,
		tree, wallet, decimal.NewFromInt(1))

	return &commissionServiceFixture{
		svc:           svc,
		wallet:        wallet,
		tree:          tree,
		affiliateRepo: affiliateRepo,
		orderRepo:     orderRepo,
		db:            db,
	}
}

// createCommissionChain 建一条从 root 到 buyer 的推广链并物化闭包行，
// 返回 [root, ..., buyer]，全员满倍率。
func (f *commissionServiceFixture) createCommissionChain(t *testing.T, depth int) []*models.Affiliate {
	t.Helper()
	chain := make([]*models.Affiliate, 0, depth)
	var prev *models.Affiliate
	for i := 0; i < depth; i++ {
		var referrerID *uint
		if prev != nil {
			referrerID = &prev.ID
		}
		customerID := int64(9000 + i)
		affiliate := &models.Affiliate{
			ReferralCode:       fmt.Sprintf("chain_%s_%d", t.Name(), i),
			ReferrerID:         referrerID,
			Email:              fmt.Sprintf("chain_%d_%s@example.com", i, t.Name()),
			PlatformCustomerID: &customerID,
			CommissionRate:     decimal.NewFromInt(1),
			Status:             constants.AffiliateStatusActive,
		}
		if err := f.db.Create(affiliate).Error; err != nil {
			t.Fatalf("create chain affiliate %d failed: %v", i, err)
		}
		if referrerID != nil {
			if err := f.tree.RecordNewAffiliate(affiliate.ID, referrerID); err != nil {
				t.Fatalf("record chain affiliate %d failed: %v", i, err)
			}
		}
		chain = append(chain, affiliate)
		prev = affiliate
	}
	return chain
}

func orderEventFor(affiliate *models.Affiliate, platformOrderID int64, total string) *shopify.OrderEvent {
	event := &shopify.OrderEvent{
		ID:          platformOrderID,
		OrderNumber: platformOrderID,
		TotalPrice:  total,
		Currency:    "USD",
	}
	if affiliate != nil {
		event.Customer = &shopify.OrderCustomer{Email: affiliate.Email}
		if affiliate.PlatformCustomerID != nil {
			event.Customer.ID = *affiliate.PlatformCustomerID
		}
	}
	return event
}

func (f *commissionServiceFixture) walletOf(t *testing.T, affiliateID uint) *models.Wallet {
	t.Helper()
	wallet, err := f.wallet.EnsureWallet(affiliateID)
	if err != nil {
		t.Fatalf("ensure wallet failed: %v", err)
	}
	return wallet
}

func TestHandleOrderCreatedRecordsPendingCommissions(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 4)
	buyer := chain[3]

	event := orderEventFor(buyer, 5001, "189.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle order created failed: %v", err)
	}

	// 上级链三层：13% / 2% / 1%
	wantAmounts := map[uint]string{
		chain[2].ID: "24.57",
		chain[1].ID: "3.78",
		chain[0].ID: "1.89",
	}
	var rows []models.Commission
	if err := f.db.Order("level asc").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("commission rows want 3, got %d", len(rows))
	}
	for _, row := range rows {
		want := wantAmounts[row.EarnerID]
		if row.Amount.String() != want {
			t.Fatalf("earner %d amount want %s, got %s", row.EarnerID, want, row.Amount.String())
		}
		if row.Status != constants.CommissionStatusPending {
			t.Fatalf("earner %d status want pending, got %s", row.EarnerID, row.Status)
		}
		if row.ReferredUserID != buyer.ID {
			t.Fatalf("earner %d referred user want %d, got %d", row.EarnerID, buyer.ID, row.ReferredUserID)
		}
	}

	for earnerID, want := range wantAmounts {
		wallet := f.walletOf(t, earnerID)
		if wallet.PendingBalance.String() != want {
			t.Fatalf("earner %d pending want %s, got %s", earnerID, want, wallet.PendingBalance.String())
		}
		if wallet.AvailableBalance.String() != "0.00" {
			t.Fatalf("earner %d available want 0.00, got %s", earnerID, wallet.AvailableBalance.String())
		}
	}
}

func TestHandleOrderCreatedDuplicateDelivery(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	event := orderEventFor(buyer, 5002, "100.00")
	for i := 0; i < 3; i++ {
		if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	var commissionCount, orderCount int64
	if err := f.db.Model(&models.Commission{}).Count(&commissionCount).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if err := f.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if commissionCount != 1 || orderCount != 1 {
		t.Fatalf("want 1 commission and 1 order, got %d and %d", commissionCount, orderCount)
	}

	wallet := f.walletOf(t, chain[0].ID)
	if wallet.PendingBalance.String() != "13.00" {
		t.Fatalf("duplicate delivery pending want 13.00, got %s", wallet.PendingBalance.String())
	}
}

func TestHandleOrderFulfilledApprovesAndQualifiesBuyer(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	// 下单人初始为未达标档位
	if err := f.db.Model(&models.Affiliate{}).Where("id = ?", buyer.ID).
		Update("commission_rate", decimal.NewFromFloat(0.5)).Error; err != nil {
		t.Fatalf("reset buyer rate failed: %v", err)
	}

	event := orderEventFor(buyer, 5003, "200.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle created failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventFulfilled, event); err != nil {
		t.Fatalf("handle fulfilled failed: %v", err)
	}

	wallet := f.walletOf(t, chain[0].ID)
	if wallet.PendingBalance.String() != "0.00" {
		t.Fatalf("pending after fulfil want 0.00, got %s", wallet.PendingBalance.String())
	}
	if wallet.AvailableBalance.String() != "26.00" {
		t.Fatalf("available after fulfil want 26.00, got %s", wallet.AvailableBalance.String())
	}
	if wallet.LifetimeEarnings.String() != "26.00" {
		t.Fatalf("lifetime after fulfil want 26.00, got %s", wallet.LifetimeEarnings.String())
	}

	var row models.Commission
	if err := f.db.First(&row).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if row.Status != constants.CommissionStatusApproved || row.ApprovedAt == nil {
		t.Fatalf("commission want approved with timestamp, got status=%s approved_at=%v", row.Status, row.ApprovedAt)
	}

	refreshed, err := f.affiliateRepo.GetByID(buyer.ID)
	if err != nil {
		t.Fatalf("reload buyer failed: %v", err)
	}
	if !refreshed.HasPurchased {
		t.Fatalf("buyer should be marked purchased")
	}
	if !refreshed.CommissionRate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("buyer rate after qualification want 1, got %s", refreshed.CommissionRate.String())
	}
}

func TestHandleOrderFulfilledWithoutCreateBackfills(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	// 创建事件丢失，直接收到发货事件
	event := orderEventFor(buyer, 5004, "150.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventFulfilled, event); err != nil {
		t.Fatalf("handle fulfilled failed: %v", err)
	}

	wallet := f.walletOf(t, chain[0].ID)
	if wallet.AvailableBalance.String() != "19.50" {
		t.Fatalf("backfilled available want 19.50, got %s", wallet.AvailableBalance.String())
	}
	order, err := f.orderRepo.GetByPlatformOrderID(5004)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order == nil || order.Status != constants.OrderStatusFulfilled {
		t.Fatalf("order want fulfilled mirror, got %+v", order)
	}
}

func TestHandleOrderCancelledRevertsPending(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	event := orderEventFor(buyer, 5005, "100.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle created failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventCancelled, event); err != nil {
		t.Fatalf("handle cancelled failed: %v", err)
	}

	wallet := f.walletOf(t, chain[0].ID)
	if wallet.PendingBalance.String() != "0.00" {
		t.Fatalf("pending after cancel want 0.00, got %s", wallet.PendingBalance.String())
	}

	var row models.Commission
	if err := f.db.First(&row).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if row.Status != constants.CommissionStatusCancelled || row.CancelledAt == nil {
		t.Fatalf("commission want cancelled, got status=%s", row.Status)
	}
	if row.InvalidReason == "" {
		t.Fatalf("cancelled commission should carry a reason")
	}
}

func TestHandleOrderCancelledClawsBackApproved(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	event := orderEventFor(buyer, 5006, "100.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle created failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventFulfilled, event); err != nil {
		t.Fatalf("handle fulfilled failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventCancelled, event); err != nil {
		t.Fatalf("handle cancelled failed: %v", err)
	}

	wallet := f.walletOf(t, chain[0].ID)
	if wallet.PendingBalance.String() != "0.00" ||
		wallet.AvailableBalance.String() != "0.00" ||
		wallet.LifetimeEarnings.String() != "0.00" {
		t.Fatalf("wallet after clawback want all zero, got pending=%s available=%s lifetime=%s",
			wallet.PendingBalance.String(), wallet.AvailableBalance.String(), wallet.LifetimeEarnings.String())
	}
}

func TestHandleOrderCancelledBeforeCreate(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	// 取消事件先到：订单镜像标记取消，后到的创建事件不再记账
	event := orderEventFor(buyer, 5007, "100.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCancelled, event); err != nil {
		t.Fatalf("handle cancelled failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle created failed: %v", err)
	}

	var commissionCount int64
	if err := f.db.Model(&models.Commission{}).Count(&commissionCount).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if commissionCount != 0 {
		t.Fatalf("out-of-order cancel should record no commissions, got %d", commissionCount)
	}
}

func TestRecordSkipsDisabledEarner(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 3)
	buyer := chain[2]

	if err := f.affiliateRepo.UpdateStatus(chain[1].ID, constants.AffiliateStatusDisabled, time.Now()); err != nil {
		t.Fatalf("disable earner failed: %v", err)
	}

	event := orderEventFor(buyer, 5008, "100.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle created failed: %v", err)
	}

	var rows []models.Commission
	if err := f.db.Find(&rows).Error; err != nil {
		t.Fatalf("load commissions failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("commission rows want 1 (disabled earner skipped), got %d", len(rows))
	}
	if rows[0].EarnerID != chain[0].ID || rows[0].Level != 2 {
		t.Fatalf("surviving commission want earner=%d level=2, got earner=%d level=%d",
			chain[0].ID, rows[0].EarnerID, rows[0].Level)
	}
}

func TestHandleOrderEventUnattributedBuyer(t *testing.T) {
	f := setupCommissionServiceTest(t)

	event := orderEventFor(nil, 5009, "100.00")
	event.Customer = &shopify.OrderCustomer{ID: 777777, Email: "stranger@example.com"}
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, event); err != nil {
		t.Fatalf("handle unattributed order failed: %v", err)
	}

	order, err := f.orderRepo.GetByPlatformOrderID(5009)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order == nil || order.BuyerAffiliateID != nil {
		t.Fatalf("unattributed order should persist without buyer, got %+v", order)
	}
	var commissionCount int64
	if err := f.db.Model(&models.Commission{}).Count(&commissionCount).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if commissionCount != 0 {
		t.Fatalf("unattributed order should record no commissions, got %d", commissionCount)
	}
}

func TestEarningsSummary(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, orderEventFor(buyer, 5010, "100.00")); err != nil {
		t.Fatalf("handle first order failed: %v", err)
	}
	fulfilled := orderEventFor(buyer, 5011, "200.00")
	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, fulfilled); err != nil {
		t.Fatalf("handle second order failed: %v", err)
	}
	if err := f.svc.HandleOrderEvent(constants.OrderEventFulfilled, fulfilled); err != nil {
		t.Fatalf("fulfil second order failed: %v", err)
	}

	pending, approved, err := f.svc.EarningsSummary(chain[0].ID)
	if err != nil {
		t.Fatalf("earnings summary failed: %v", err)
	}
	if pending.StringFixed(2) != "13.00" {
		t.Fatalf("pending summary want 13.00, got %s", pending.StringFixed(2))
	}
	if approved.StringFixed(2) != "26.00" {
		t.Fatalf("approved summary want 26.00, got %s", approved.StringFixed(2))
	}
}

func TestReconcileWalletsReportsDrift(t *testing.T) {
	f := setupCommissionServiceTest(t)
	chain := f.createCommissionChain(t, 2)
	buyer := chain[1]

	if err := f.svc.HandleOrderEvent(constants.OrderEventCreated, orderEventFor(buyer, 5012, "100.00")); err != nil {
		t.Fatalf("handle order failed: %v", err)
	}

	drifted, err := f.svc.ReconcileWallets()
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if drifted != 0 {
		t.Fatalf("clean ledger drift want 0, got %d", drifted)
	}

	// 人为制造漂移
	if err := f.db.Model(&models.Wallet{}).
		Where("affiliate_id = ?", chain[0].ID).
		Update("pending_balance", decimal.NewFromInt(999)).Error; err != nil {
		t.Fatalf("tamper wallet failed: %v", err)
	}
	drifted, err = f.svc.ReconcileWallets()
	if err != nil {
		t.Fatalf("reconcile after tamper failed: %v", err)
	}
	if drifted != 1 {
		t.Fatalf("tampered ledger drift want 1, got %d", drifted)
	}
}
