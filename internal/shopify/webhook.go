package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignWebhook 计算 webhook 载荷签名（base64(HMAC-SHA256(body))）
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature 常量时间校验 webhook 签名。
// 校验失败前不得对载荷做任何处理。
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// OrderCustomer 订单 webhook 中的客户信息
type OrderCustomer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// OrderEvent 订单 webhook 载荷（只取结算需要的字段）
type OrderEvent struct {
	ID                int64          `json:"id"`
	OrderNumber       int64          `json:"order_number"`
	TotalPrice        string         `json:"total_price"`
	Currency          string         `json:"currency"`
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	CancelledAt       *time.Time     `json:"cancelled_at"`
	Customer          *OrderCustomer `json:"customer"`
}

// ParseOrderEvent 解析订单 webhook 载荷
func ParseOrderEvent(body []byte) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if event.ID == 0 {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return &event, nil
}

// Total 返回订单总额，无法解析时为 0
func (e *OrderEvent) Total() decimal.Decimal {
	total, err := decimal.NewFromString(strings.TrimSpace(e.TotalPrice))
	if err != nil {
		return decimal.Zero
	}
	return total
}

// OrderNo 返回平台订单编号
func (e *OrderEvent) OrderNo() string {
	if e.OrderNumber == 0 {
		return strconv.FormatInt(e.ID, 10)
	}
	return strconv.FormatInt(e.OrderNumber, 10)
}

// CustomerID 返回客户ID，载荷中无客户时为 0
func (e *OrderEvent) CustomerID() int64 {
	if e.Customer == nil {
		return 0
	}
	return e.Customer.ID
}

// CustomerEmail 返回客户邮箱（小写）
func (e *OrderEvent) CustomerEmail() string {
	if e.Customer == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(e.Customer.Email))
}
