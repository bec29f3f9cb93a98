package service

import (
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"
)

// ReferralTreeService 推广关系树服务。
// 上级链在建档时物化为闭包行（最多 4 层），下单结算时只做一次顺序读取。
type ReferralTreeService struct {
	repo repository.AffiliateRepository
}

// NewReferralTreeService 创建推广关系树服务
func NewReferralTreeService(repo repository.AffiliateRepository) *ReferralTreeService {
	return &ReferralTreeService{repo: repo}
}

// RecordNewAffiliate 为新建推广用户物化上级闭包行。
// referrerID 为空或无法解析时静默跳过（归因尽力而为，不阻塞建档）；
// 已有闭包行时为空操作。
func (s *ReferralTreeService) RecordNewAffiliate(affiliateID uint, referrerID *uint) error {
	if affiliateID == 0 || s.repo == nil {
		return nil
	}
	if referrerID == nil || *referrerID == 0 {
		return nil
	}

	exists, err := s.repo.HasAncestors(affiliateID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	referrer, err := s.repo.GetByID(*referrerID)
	if err != nil {
		return err
	}
	if referrer == nil {
		logger.Warnw("referral_tree_referrer_missing",
			"affiliate_id", affiliateID,
			"referrer_id", *referrerID,
		)
		return nil
	}

	now := time.Now()
	rows := []models.AffiliateAncestor{{
		AffiliateID: affiliateID,
		AncestorID:  referrer.ID,
		Level:       1,
		CreatedAt:   now,
	}}

	// 复制邀请人自己的上级链并整体下移一层
	parentChain, err := s.repo.ListAncestors(referrer.ID)
	if err != nil {
		return err
	}
	for _, link := range parentChain {
		level := link.Level + 1
		if level > constants.CommissionMaxLevel {
			break
		}
		rows = append(rows, models.AffiliateAncestor{
			AffiliateID: affiliateID,
			AncestorID:  link.AncestorID,
			Level:       level,
			CreatedAt:   now,
		})
	}

	if err := s.repo.CreateAncestors(rows); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// GetAncestors 返回上级链（层级升序，1 = 直接邀请人）
func (s *ReferralTreeService) GetAncestors(affiliateID uint) ([]models.AffiliateAncestor, error) {
	if affiliateID == 0 || s.repo == nil {
		return []models.AffiliateAncestor{}, nil
	}
	return s.repo.ListAncestors(affiliateID)
}
