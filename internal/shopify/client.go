package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("shopify config invalid")
	ErrRequestFailed   = errors.New("shopify request failed")
	ErrResponseInvalid = errors.New("shopify response invalid")
)

const defaultAPIVersion = "2024-10"

// Config Shopify Admin API 配置
type Config struct {
	ShopDomain string        `json:"shop_domain"` // 店铺域名（xxx.myshopify.com）
	APIVersion string        `json:"api_version"` // Admin API 版本
	AdminToken string        `json:"admin_token"` // Admin API 访问令牌
	Timeout    time.Duration `json:"-"`           // 单次请求超时
}

// ValidateConfig 校验配置完整性
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ShopDomain) == "" {
		return fmt.Errorf("%w: shop_domain is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AdminToken) == "" {
		return fmt.Errorf("%w: admin_token is required", ErrConfigInvalid)
	}
	return nil
}

// Client Shopify Admin API 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建 Admin API 客户端
func NewClient(cfg Config) (*Client, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// DiscountInput 一次性折扣码创建输入
type DiscountInput struct {
	Code           string          // 折扣码
	Amount         decimal.Decimal // 满减金额
	MinOrderAmount decimal.Decimal // 使用门槛（订单小计下限）
}

// CreateDiscountCode 创建单次使用的满减折扣码。
// Admin API 要求先建价格规则，再在规则下挂折扣码。
func (c *Client) CreateDiscountCode(ctx context.Context, input DiscountInput) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" || !input.Amount.IsPositive() {
		return "", fmt.Errorf("%w: discount code and amount required", ErrConfigInvalid)
	}

	rulePayload := map[string]interface{}{
		"price_rule": map[string]interface{}{
			"title":             code,
			"target_type":       "line_item",
			"target_selection":  "all",
			"allocation_method": "across",
			"value_type":        "fixed_amount",
			"value":             "-" + input.Amount.StringFixed(2),
			"customer_selection": "all",
			"usage_limit":        1,
			"once_per_customer":  true,
			"starts_at":          time.Now().UTC().Format(time.RFC3339),
			"prerequisite_subtotal_range": map[string]interface{}{
				"greater_than_or_equal_to": input.MinOrderAmount.StringFixed(2),
			},
		},
	}
	var ruleResp struct {
		PriceRule struct {
			ID int64 `json:"id"`
		} `json:"price_rule"`
	}
	if err := c.postJSON(ctx, "price_rules.json", rulePayload, &ruleResp); err != nil {
		return "", err
	}
	if ruleResp.PriceRule.ID == 0 {
		return "", fmt.Errorf("%w: missing price rule id", ErrResponseInvalid)
	}

	codePayload := map[string]interface{}{
		"discount_code": map[string]interface{}{
			"code": code,
		},
	}
	var codeResp struct {
		DiscountCode struct {
			Code string `json:"code"`
		} `json:"discount_code"`
	}
	path := fmt.Sprintf("price_rules/%d/discount_codes.json", ruleResp.PriceRule.ID)
	if err := c.postJSON(ctx, path, codePayload, &codeResp); err != nil {
		return "", err
	}
	if codeResp.DiscountCode.Code == "" {
		return "", fmt.Errorf("%w: missing discount code", ErrResponseInvalid)
	}
	return codeResp.DiscountCode.Code, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload failed", ErrRequestFailed)
	}
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/%s",
		strings.TrimSuffix(strings.TrimSpace(c.cfg.ShopDomain), "/"), c.cfg.APIVersion, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AdminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}
