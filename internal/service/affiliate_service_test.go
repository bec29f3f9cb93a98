package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliate_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.AffiliateAncestor{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.ReferralVisit{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	repo := repository.NewAffiliateRepository(db)
	tree := NewReferralTreeService(repo)
	wallet := NewWalletService(repository.NewWalletRepository(db))
	return NewAffiliateService(repo, tree, wallet, decimal.NewFromFloat(0.5)), db
}

func TestSignupCreatesCodeWalletAndClosure(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)

	root, err := svc.Signup(AffiliateSignupInput{Email: "Root@Example.com", DisplayName: "Root"})
	if err != nil {
		t.Fatalf("signup root failed: %v", err)
	}
	if root.Email != "root@example.com" {
		t.Fatalf("email should be lowercased, got %s", root.Email)
	}
	if len(root.ReferralCode) != referralCodeLength {
		t.Fatalf("referral code length want %d, got %q", referralCodeLength, root.ReferralCode)
	}
	if root.Status != constants.AffiliateStatusActive {
		t.Fatalf("new affiliate status want active, got %s", root.Status)
	}
	if !root.CommissionRate.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("new affiliate rate want 0.5, got %s", root.CommissionRate.String())
	}

	var walletCount int64
	if err := db.Model(&models.Wallet{}).Where("affiliate_id = ?", root.ID).Count(&walletCount).Error; err != nil {
		t.Fatalf("count wallets failed: %v", err)
	}
	if walletCount != 1 {
		t.Fatalf("signup should create wallet, got %d", walletCount)
	}

	child, err := svc.Signup(AffiliateSignupInput{
		Email:        "child@example.com",
		ReferrerCode: root.ReferralCode,
	})
	if err != nil {
		t.Fatalf("signup child failed: %v", err)
	}
	if child.ReferrerID == nil || *child.ReferrerID != root.ID {
		t.Fatalf("child referrer want %d, got %v", root.ID, child.ReferrerID)
	}
	var closureCount int64
	if err := db.Model(&models.AffiliateAncestor{}).
		Where("affiliate_id = ? AND ancestor_id = ? AND level = 1", child.ID, root.ID).
		Count(&closureCount).Error; err != nil {
		t.Fatalf("count closure rows failed: %v", err)
	}
	if closureCount != 1 {
		t.Fatalf("child closure row want 1, got %d", closureCount)
	}
}

func TestSignupRejectsInvalidAndDuplicate(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	if _, err := svc.Signup(AffiliateSignupInput{Email: "not-an-email"}); !errors.Is(err, ErrEmailInvalid) {
		t.Fatalf("invalid email want ErrEmailInvalid, got %v", err)
	}
	if _, err := svc.Signup(AffiliateSignupInput{Email: ""}); !errors.Is(err, ErrEmailInvalid) {
		t.Fatalf("empty email want ErrEmailInvalid, got %v", err)
	}

	if _, err := svc.Signup(AffiliateSignupInput{Email: "dup@example.com"}); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if _, err := svc.Signup(AffiliateSignupInput{Email: "DUP@example.com"}); !errors.Is(err, ErrAffiliateExists) {
		t.Fatalf("duplicate email want ErrAffiliateExists, got %v", err)
	}
}

func TestSignupUnknownReferrerCodeFailOpen(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	affiliate, err := svc.Signup(AffiliateSignupInput{
		Email:        "solo@example.com",
		ReferrerCode: "NOSUCH99",
	})
	if err != nil {
		t.Fatalf("signup with unknown code failed: %v", err)
	}
	if affiliate.ReferrerID != nil {
		t.Fatalf("unknown referrer code should leave referrer unset, got %v", affiliate.ReferrerID)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate, err := svc.Signup(AffiliateSignupInput{Email: "status@example.com"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	updated, err := svc.UpdateStatus(affiliate.ID, "disabled")
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if updated.Status != constants.AffiliateStatusDisabled {
		t.Fatalf("status want disabled, got %s", updated.Status)
	}

	if _, err := svc.UpdateStatus(affiliate.ID, "banned"); !errors.Is(err, ErrStatusInvalid) {
		t.Fatalf("bad status want ErrStatusInvalid, got %v", err)
	}
	if _, err := svc.UpdateStatus(99999, "active"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing affiliate want ErrNotFound, got %v", err)
	}
}

func TestSetCommissionOverride(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate, err := svc.Signup(AffiliateSignupInput{Email: "override@example.com"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	override := decimal.NewFromFloat(0.8)
	updated, err := svc.SetCommissionOverride(affiliate.ID, &override)
	if err != nil {
		t.Fatalf("set override failed: %v", err)
	}
	if updated.CommissionOverride == nil || !updated.CommissionOverride.Equal(override) {
		t.Fatalf("override want 0.8, got %v", updated.CommissionOverride)
	}
	if !updated.EffectiveRate().Equal(override) {
		t.Fatalf("effective rate want override, got %s", updated.EffectiveRate().String())
	}

	cleared, err := svc.SetCommissionOverride(affiliate.ID, nil)
	if err != nil {
		t.Fatalf("clear override failed: %v", err)
	}
	if cleared.CommissionOverride != nil {
		t.Fatalf("override should be cleared, got %v", cleared.CommissionOverride)
	}
	if !cleared.EffectiveRate().Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("effective rate after clear want 0.5, got %s", cleared.EffectiveRate().String())
	}

	bad := decimal.NewFromFloat(1.5)
	if _, err := svc.SetCommissionOverride(affiliate.ID, &bad); !errors.Is(err, ErrRateInvalid) {
		t.Fatalf("out-of-range override want ErrRateInvalid, got %v", err)
	}
}

func TestDashboardNetworkCounts(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	root, err := svc.Signup(AffiliateSignupInput{Email: "dash_root@example.com"})
	if err != nil {
		t.Fatalf("signup root failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Signup(AffiliateSignupInput{
			Email:        fmt.Sprintf("dash_child_%d@example.com", i),
			ReferrerCode: root.ReferralCode,
		}); err != nil {
			t.Fatalf("signup child %d failed: %v", i, err)
		}
	}

	dashboard, err := svc.Dashboard(root.ID)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if dashboard.Wallet == nil {
		t.Fatalf("dashboard wallet missing")
	}
	if len(dashboard.Network) != constants.CommissionMaxLevel {
		t.Fatalf("network levels want %d, got %d", constants.CommissionMaxLevel, len(dashboard.Network))
	}
	if dashboard.Network[0].Level != 1 || dashboard.Network[0].Count != 2 {
		t.Fatalf("level 1 count want 2, got level=%d count=%d",
			dashboard.Network[0].Level, dashboard.Network[0].Count)
	}
	if dashboard.Network[1].Count != 0 {
		t.Fatalf("level 2 count want 0, got %d", dashboard.Network[1].Count)
	}
}
