package service

import (
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

func setupReferralTreeServiceTest(t *testing.T) (*ReferralTreeService, repository.AffiliateRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_tree_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.AffiliateAncestor{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	repo := repository.NewAffiliateRepository(db)
	return NewReferralTreeService(repo), repo, db
}

func createTreeTestAffiliate(t *testing.T, db *gorm.DB, code string, referrerID *uint) *models.Affiliate {
	t.Helper()
	affiliate := &models.Affiliate{
		ReferralCode:   code,
		ReferrerID:     referrerID,
		Email:          fmt.Sprintf("%s@example.com", code),
		DisplayName:    code,
		CommissionRate: decimal.NewFromFloat(0.5),
		Status:         constants.AffiliateStatusActive,
	}
	if err := db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate %s failed: %v", code, err)
	}
	return affiliate
}

func TestRecordNewAffiliateBuildsClosureChain(t *testing.T) {
	tree, _, db := setupReferralTreeServiceTest(t)

	root := createTreeTestAffiliate(t, db, "tree_root", nil)
	a1 := createTreeTestAffiliate(t, db, "tree_a1", &root.ID)
	if err := tree.RecordNewAffiliate(a1.ID, &root.ID); err != nil {
		t.Fatalf("record a1 failed: %v", err)
	}
	a2 := createTreeTestAffiliate(t, db, "tree_a2", &a1.ID)
	if err := tree.RecordNewAffiliate(a2.ID, &a1.ID); err != nil {
		t.Fatalf("record a2 failed: %v", err)
	}
	a3 := createTreeTestAffiliate(t, db, "tree_a3", &a2.ID)
	if err := tree.RecordNewAffiliate(a3.ID, &a2.ID); err != nil {
		t.Fatalf("record a3 failed: %v", err)
	}

	ancestors, err := tree.GetAncestors(a3.ID)
	if err != nil {
		t.Fatalf("get ancestors failed: %v", err)
	}
	if len(ancestors) != 3 {
		t.Fatalf("a3 ancestors want 3, got %d", len(ancestors))
	}
	wantChain := []struct {
		level      int
		ancestorID uint
	}{
		{1, a2.ID},
		{2, a1.ID},
		{3, root.ID},
	}
	for i, want := range wantChain {
		if ancestors[i].Level != want.level || ancestors[i].AncestorID != want.ancestorID {
			t.Fatalf("ancestor[%d] want level=%d ancestor=%d, got level=%d ancestor=%d",
				i, want.level, want.ancestorID, ancestors[i].Level, ancestors[i].AncestorID)
		}
	}
}

func TestRecordNewAffiliateCapsAtMaxLevel(t *testing.T) {
	tree, _, db := setupReferralTreeServiceTest(t)

	// 五人链：最深一人的上级链应截断在 4 层
	var prev *models.Affiliate
	var last *models.Affiliate
	for i := 0; i < 6; i++ {
		var referrerID *uint
		if prev != nil {
			referrerID = &prev.ID
		}
		cur := createTreeTestAffiliate(t, db, fmt.Sprintf("cap_%d", i), referrerID)
		if referrerID != nil {
			if err := tree.RecordNewAffiliate(cur.ID, referrerID); err != nil {
				t.Fatalf("record affiliate %d failed: %v", i, err)
			}
		}
		prev = cur
		last = cur
	}

	ancestors, err := tree.GetAncestors(last.ID)
	if err != nil {
		t.Fatalf("get ancestors failed: %v", err)
	}
	if len(ancestors) != constants.CommissionMaxLevel {
		t.Fatalf("deep chain ancestors want %d, got %d", constants.CommissionMaxLevel, len(ancestors))
	}
	for i, link := range ancestors {
		if link.Level != i+1 {
			t.Fatalf("ancestor[%d] level want %d, got %d", i, i+1, link.Level)
		}
	}
}

func TestRecordNewAffiliateIdempotent(t *testing.T) {
	tree, _, db := setupReferralTreeServiceTest(t)

	root := createTreeTestAffiliate(t, db, "idem_root", nil)
	child := createTreeTestAffiliate(t, db, "idem_child", &root.ID)
	if err := tree.RecordNewAffiliate(child.ID, &root.ID); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if err := tree.RecordNewAffiliate(child.ID, &root.ID); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.AffiliateAncestor{}).
		Where("affiliate_id = ?", child.ID).Count(&count).Error; err != nil {
		t.Fatalf("count closure rows failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("closure rows want 1, got %d", count)
	}
}

func TestRecordNewAffiliateMissingReferrerSkipped(t *testing.T) {
	tree, _, db := setupReferralTreeServiceTest(t)

	orphan := createTreeTestAffiliate(t, db, "orphan", nil)
	missing := uint(99999)
	if err := tree.RecordNewAffiliate(orphan.ID, &missing); err != nil {
		t.Fatalf("record with missing referrer failed: %v", err)
	}
	ancestors, err := tree.GetAncestors(orphan.ID)
	if err != nil {
		t.Fatalf("get ancestors failed: %v", err)
	}
	if len(ancestors) != 0 {
		t.Fatalf("orphan ancestors want 0, got %d", len(ancestors))
	}
}

func TestCountDescendantsByLevel(t *testing.T) {
	tree, repo, db := setupReferralTreeServiceTest(t)

	root := createTreeTestAffiliate(t, db, "net_root", nil)
	a := createTreeTestAffiliate(t, db, "net_a", &root.ID)
	b := createTreeTestAffiliate(t, db, "net_b", &root.ID)
	c := createTreeTestAffiliate(t, db, "net_c", &a.ID)
	for _, pair := range []struct {
		id       uint
		referrer *uint
	}{
		{a.ID, &root.ID},
		{b.ID, &root.ID},
		{c.ID, &a.ID},
	} {
		if err := tree.RecordNewAffiliate(pair.id, pair.referrer); err != nil {
			t.Fatalf("record affiliate %d failed: %v", pair.id, err)
		}
	}

	counts, err := repo.CountDescendantsByLevel(root.ID)
	if err != nil {
		t.Fatalf("count descendants failed: %v", err)
	}
	if counts[1] != 2 {
		t.Fatalf("level 1 descendants want 2, got %d", counts[1])
	}
	if counts[2] != 1 {
		t.Fatalf("level 2 descendants want 1, got %d", counts[2])
	}
}
