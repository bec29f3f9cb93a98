package public

import (
	"strings"

	"github.com/reflink-next/internal/http/handlers/shared"
	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandleReferralEntry 推广落地入口：解析短码并签发归因载荷。
// 未知短码返回未归因结果而非 404，落地页永不因归因失败而报错。
func (h *Handler) HandleReferralEntry(c *gin.Context) {
	landing := strings.TrimSpace(c.Query("landing"))
	if landing == "" {
		landing = "/"
	}
	visitorKey := strings.TrimSpace(c.GetHeader("X-Visitor-Key"))
	if visitorKey == "" {
		visitorKey = strings.TrimSpace(c.Query("visitor_key"))
	}

	result, err := h.AttributionService.Resolve(c.Request.Context(), service.AttributionResolveInput{
		Code:        c.Param("code"),
		VisitorKey:  visitorKey,
		LandingPath: landing,
		Referrer:    c.GetHeader("Referer"),
		ClientIP:    c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "attribution failed", err)
		return
	}
	response.Success(c, result)
}

// signupRequest 注册请求
type signupRequest struct {
	Email              string `json:"email" binding:"required"`
	DisplayName        string `json:"display_name"`
	ReferrerCode       string `json:"referrer_code"`
	PlatformCustomerID *int64 `json:"platform_customer_id"`
}

// HandleSignup 推广用户注册
func (h *Handler) HandleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	affiliate, err := h.AffiliateService.Signup(service.AffiliateSignupInput{
		Email:              req.Email,
		DisplayName:        req.DisplayName,
		ReferrerCode:       req.ReferrerCode,
		PlatformCustomerID: req.PlatformCustomerID,
	})
	if err != nil {
		respondWithMappedError(c, err, signupErrorRules, response.CodeInternal, "signup failed")
		return
	}
	response.Success(c, affiliate)
}
