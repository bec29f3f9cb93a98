package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"

	"github.com/shopspring/decimal"
)

const referralCodeLength = 8

// AffiliateService 推广用户档案服务
type AffiliateService struct {
	repo        repository.AffiliateRepository
	tree        *ReferralTreeService
	wallet      *WalletService
	defaultRate decimal.Decimal
}

// NewAffiliateService 创建推广用户服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	tree *ReferralTreeService,
	wallet *WalletService,
	defaultRate decimal.Decimal,
) *AffiliateService {
	return &AffiliateService{
		repo:        repo,
		tree:        tree,
		wallet:      wallet,
		defaultRate: defaultRate,
	}
}

// AffiliateSignupInput 推广用户注册输入
type AffiliateSignupInput struct {
	Email              string
	DisplayName        string
	ReferrerCode       string
	PlatformCustomerID *int64
}

// AffiliateNetworkLevel 推广网络单层统计
type AffiliateNetworkLevel struct {
	Level int   `json:"level"`
	Count int64 `json:"count"`
}

// AffiliateDashboard 推广用户中心数据
type AffiliateDashboard struct {
	Affiliate  *models.Affiliate       `json:"affiliate"`
	Wallet     *models.Wallet          `json:"wallet"`
	Network    []AffiliateNetworkLevel `json:"network"`
	VisitCount int64                   `json:"visit_count"`
}

// Signup 创建推广用户：生成短码、建钱包、物化上级闭包行。
// 邀请码无法解析时照常建档、不挂邀请人（归因尽力而为）。
func (s *AffiliateService) Signup(input AffiliateSignupInput) (*models.Affiliate, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateExists
	}

	var referrerID *uint
	if code := normalizeReferralCode(input.ReferrerCode); code != "" {
		referrer, err := s.repo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if referrer == nil {
			logger.Warnw("signup_referrer_code_unknown", "referrer_code", code, "email", email)
		} else {
			referrerID = &referrer.ID
		}
	}

	affiliate, err := s.createWithCode(email, input, referrerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.wallet.EnsureWallet(affiliate.ID); err != nil {
		return nil, err
	}
	if err := s.tree.RecordNewAffiliate(affiliate.ID, referrerID); err != nil {
		return nil, err
	}

	logger.Infow("affiliate_created",
		"affiliate_id", affiliate.ID,
		"referral_code", affiliate.ReferralCode,
		"referrer_id", referrerID)
	return affiliate, nil
}

// createWithCode 短码冲突时重试生成
func (s *AffiliateService) createWithCode(email string, input AffiliateSignupInput, referrerID *uint) (*models.Affiliate, error) {
	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return nil, err
		}
		affiliate := &models.Affiliate{
			ReferralCode:       code,
			ReferrerID:         referrerID,
			Email:              email,
			DisplayName:        strings.TrimSpace(input.DisplayName),
			PlatformCustomerID: input.PlatformCustomerID,
			CommissionRate:     s.defaultRate,
			Status:             constants.AffiliateStatusActive,
		}
		if err := s.repo.Create(affiliate); err != nil {
			if isUniqueViolation(err) {
				// 邮箱并发注册与短码碰撞走同一个冲突分支，先排除前者
				dup, dupErr := s.repo.GetByEmail(email)
				if dupErr != nil {
					return nil, dupErr
				}
				if dup != nil {
					return nil, ErrAffiliateExists
				}
				continue
			}
			return nil, err
		}
		return affiliate, nil
	}
	return nil, ErrAffiliateCodeInvalid
}

// GetByID 按ID获取推广用户
func (s *AffiliateService) GetByID(id uint) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// GetByCode 按推广短码获取推广用户
func (s *AffiliateService) GetByCode(code string) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByCode(normalizeReferralCode(code))
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// UpdateStatus 管理端启用/禁用推广用户
func (s *AffiliateService) UpdateStatus(id uint, status string) (*models.Affiliate, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.AffiliateStatusActive && status != constants.AffiliateStatusDisabled {
		return nil, ErrStatusInvalid
	}
	affiliate, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate.Status == status {
		return affiliate, nil
	}
	if err := s.repo.UpdateStatus(id, status, time.Now()); err != nil {
		return nil, err
	}
	logger.Infow("affiliate_status_updated", "affiliate_id", id, "status", status)
	return s.GetByID(id)
}

// SetCommissionOverride 管理端覆写佣金倍率，nil 清除覆写回落标准倍率
func (s *AffiliateService) SetCommissionOverride(id uint, override *decimal.Decimal) (*models.Affiliate, error) {
	if override != nil {
		if override.IsNegative() || override.GreaterThan(decimal.NewFromInt(1)) {
			return nil, ErrRateInvalid
		}
	}
	if _, err := s.GetByID(id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCommissionOverride(id, override, time.Now()); err != nil {
		return nil, err
	}
	if override == nil {
		logger.Infow("affiliate_override_cleared", "affiliate_id", id)
	} else {
		logger.Infow("affiliate_override_set", "affiliate_id", id, "rate", override.String())
	}
	return s.GetByID(id)
}

// Dashboard 推广用户中心：档案、钱包、各层下级数量、访问量
func (s *AffiliateService) Dashboard(affiliateID uint) (*AffiliateDashboard, error) {
	affiliate, err := s.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.EnsureWallet(affiliateID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountDescendantsByLevel(affiliateID)
	if err != nil {
		return nil, err
	}
	network := make([]AffiliateNetworkLevel, 0, constants.CommissionMaxLevel)
	for level := 1; level <= constants.CommissionMaxLevel; level++ {
		network = append(network, AffiliateNetworkLevel{Level: level, Count: counts[level]})
	}
	visits, err := s.repo.CountVisits(affiliateID)
	if err != nil {
		return nil, err
	}
	return &AffiliateDashboard{
		Affiliate:  affiliate,
		Wallet:     wallet,
		Network:    network,
		VisitCount: visits,
	}, nil
}

// List 分页查询推广用户
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.repo.List(filter)
}

func normalizeReferralCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}
