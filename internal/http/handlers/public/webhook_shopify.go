package public

import (
	"io"
	"net/http"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/http/handlers/shared"
	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/queue"
	"github.com/reflink-next/internal/shopify"

	"github.com/gin-gonic/gin"
)

const webhookSignatureHeader = "X-Shopify-Hmac-Sha256"
const maxWebhookBodyBytes = 1 << 20

// HandleShopifyOrderCreate 订单创建 webhook
func (h *Handler) HandleShopifyOrderCreate(c *gin.Context) {
	h.handleShopifyOrderWebhook(c, constants.OrderEventCreated)
}

// HandleShopifyOrderFulfilled 订单发货 webhook
func (h *Handler) HandleShopifyOrderFulfilled(c *gin.Context) {
	h.handleShopifyOrderWebhook(c, constants.OrderEventFulfilled)
}

// HandleShopifyOrderCancelled 订单取消 webhook
func (h *Handler) HandleShopifyOrderCancelled(c *gin.Context) {
	h.handleShopifyOrderWebhook(c, constants.OrderEventCancelled)
}

// handleShopifyOrderWebhook webhook 边界：先验签后解析，签名不过整包丢弃。
// 平台按至少一次投递重试，结算链路自身幂等，这里直接 200 确认即可。
func (h *Handler) handleShopifyOrderWebhook(c *gin.Context, eventType string) {
	log := shared.RequestLog(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeBadRequest, "read body failed")
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if !shopify.VerifyWebhookSignature(h.Config.Shopify.WebhookSecret, body, signature) {
		log.Warnw("shopify_webhook_signature_invalid",
			"event_type", eventType,
			"client_ip", c.ClientIP())
		response.ErrorWithStatus(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid signature")
		return
	}

	event, err := shopify.ParseOrderEvent(body)
	if err != nil {
		log.Warnw("shopify_webhook_payload_invalid", "event_type", eventType, "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, response.CodeBadRequest, "invalid payload")
		return
	}

	log.Infow("shopify_webhook_received",
		"event_type", eventType,
		"platform_order_id", event.ID,
		"order_no", event.OrderNo())

	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueOrderEvent(queue.OrderEventPayload{
			EventType: eventType,
			Body:      body,
		})
		if err == nil {
			response.Success(c, gin.H{"queued": true})
			return
		}
		log.Errorw("shopify_webhook_enqueue_failed", "event_type", eventType, "error", err)
		// 入队失败退化为同步处理
	}

	if err := h.CommissionService.HandleOrderEvent(eventType, event); err != nil {
		log.Errorw("shopify_webhook_process_failed",
			"event_type", eventType,
			"platform_order_id", event.ID,
			"error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, response.CodeInternal, "processing failed")
		return
	}
	response.Success(c, gin.H{"queued": false})
}
