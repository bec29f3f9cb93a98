package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/shopify"

	"github.com/shopspring/decimal"
)

const visitDedupeWindow = 10 * time.Minute

// DiscountOptions 推广落地页折扣码发放配置
type DiscountOptions struct {
	Enabled        bool
	Amount         decimal.Decimal
	MinOrderAmount decimal.Decimal
	CodePrefix     string
}

// AttributionService 推广链接归因服务。
// 引擎只负责签发与校验归因载荷，cookie 本身由商城前端持有。
type AttributionService struct {
	repo          repository.AffiliateRepository
	shopifyClient *shopify.Client
	secret        []byte
	validity      time.Duration
	discount      DiscountOptions
}

// NewAttributionService 创建归因服务。shopifyClient 可为 nil，此时不发折扣码。
func NewAttributionService(
	repo repository.AffiliateRepository,
	shopifyClient *shopify.Client,
	secret string,
	attributionDays int,
	discount DiscountOptions,
) *AttributionService {
	if attributionDays <= 0 {
		attributionDays = 30
	}
	return &AttributionService{
		repo:          repo,
		shopifyClient: shopifyClient,
		secret:        []byte(secret),
		validity:      time.Duration(attributionDays) * 24 * time.Hour,
		discount:      discount,
	}
}

// AttributionPayload 签名归因载荷
type AttributionPayload struct {
	AffiliateID  uint   `json:"affiliate_id"`
	Slug         string `json:"slug"`
	ReferralCode string `json:"referral_code"`
	DiscountCode string `json:"discount_code,omitempty"`
	ReferrerName string `json:"referrer_name,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// AttributionResult 归因解析结果
type AttributionResult struct {
	Attributed bool                `json:"attributed"`
	Payload    *AttributionPayload `json:"payload,omitempty"`
	Signature  string              `json:"signature,omitempty"`
}

// AttributionResolveInput 归因解析输入
type AttributionResolveInput struct {
	Code        string
	VisitorKey  string
	LandingPath string
	Referrer    string
	ClientIP    string
	UserAgent   string
}

// Resolve 解析推广短码并签发归因载荷。
// 短码未知或推广用户被禁用时返回未归因结果，永不报错阻塞落地页。
func (s *AttributionService) Resolve(ctx context.Context, input AttributionResolveInput) (*AttributionResult, error) {
	code := normalizeReferralCode(input.Code)
	if code == "" {
		return &AttributionResult{Attributed: false}, nil
	}

	affiliate, err := s.repo.GetByCode(code)
	if err != nil {
		logger.Errorw("attribution_resolve_failed", "referral_code", code, "error", err)
		return &AttributionResult{Attributed: false}, nil
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusActive {
		logger.Infow("attribution_code_unresolved", "referral_code", code)
		return &AttributionResult{Attributed: false}, nil
	}

	discountCode := s.issueDiscountCode(ctx, affiliate)
	s.recordVisit(affiliate.ID, input, discountCode)

	payload := &AttributionPayload{
		AffiliateID:  affiliate.ID,
		Slug:         strings.ToLower(affiliate.ReferralCode),
		ReferralCode: affiliate.ReferralCode,
		DiscountCode: discountCode,
		ReferrerName: affiliate.DisplayName,
		Timestamp:    time.Now().Unix(),
	}
	signature, err := s.Sign(payload)
	if err != nil {
		return nil, err
	}
	return &AttributionResult{
		Attributed: true,
		Payload:    payload,
		Signature:  signature,
	}, nil
}

// Sign 计算归因载荷签名（base64url(HMAC-SHA256(json))）
func (s *AttributionService) Sign(payload *AttributionPayload) (string, error) {
	if payload == nil {
		return "", ErrAttributionInvalid
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify 常量时间校验归因载荷签名与有效期
func (s *AttributionService) Verify(payload *AttributionPayload, signature string) error {
	if payload == nil || strings.TrimSpace(signature) == "" {
		return ErrAttributionInvalid
	}
	expected, err := s.Sign(payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrAttributionInvalid
	}
	issuedAt := time.Unix(payload.Timestamp, 0)
	if time.Since(issuedAt) > s.validity || issuedAt.After(time.Now().Add(time.Minute)) {
		return ErrAttributionExpired
	}
	return nil
}

// recordVisit 记录落地访问，短窗口内同访客同路径去重；失败仅记日志
func (s *AttributionService) recordVisit(affiliateID uint, input AttributionResolveInput, discountCode string) {
	visitorKey := strings.TrimSpace(input.VisitorKey)
	if visitorKey != "" {
		seen, err := s.repo.HasRecentVisit(affiliateID, visitorKey, input.LandingPath, time.Now().Add(-visitDedupeWindow))
		if err != nil {
			logger.Warnw("attribution_visit_dedupe_failed", "affiliate_id", affiliateID, "error", err)
		} else if seen {
			return
		}
	}
	visit := &models.ReferralVisit{
		AffiliateID:  affiliateID,
		VisitorKey:   visitorKey,
		LandingPath:  strings.TrimSpace(input.LandingPath),
		Referrer:     strings.TrimSpace(input.Referrer),
		ClientIP:     strings.TrimSpace(input.ClientIP),
		UserAgent:    strings.TrimSpace(input.UserAgent),
		DiscountCode: discountCode,
	}
	if err := s.repo.CreateVisit(visit); err != nil {
		logger.Warnw("attribution_visit_record_failed", "affiliate_id", affiliateID, "error", err)
	}
}

// issueDiscountCode 尽力而为地创建单次折扣码，失败只记日志不阻塞归因
func (s *AttributionService) issueDiscountCode(ctx context.Context, affiliate *models.Affiliate) string {
	if !s.discount.Enabled || s.shopifyClient == nil {
		return ""
	}
	prefix := strings.ToUpper(strings.TrimSpace(s.discount.CodePrefix))
	if prefix == "" {
		prefix = "REF"
	}
	suffix, err := generateReferralCode()
	if err != nil {
		logger.Warnw("discount_code_generate_failed", "affiliate_id", affiliate.ID, "error", err)
		return ""
	}
	code := fmt.Sprintf("%s-%s-%s", prefix, affiliate.ReferralCode, suffix[:4])

	created, err := s.shopifyClient.CreateDiscountCode(ctx, shopify.DiscountInput{
		Code:           code,
		Amount:         s.discount.Amount,
		MinOrderAmount: s.discount.MinOrderAmount,
	})
	if err != nil {
		logger.Warnw("discount_code_create_failed",
			"affiliate_id", affiliate.ID,
			"code", code,
			"error", err)
		return ""
	}
	return created
}
