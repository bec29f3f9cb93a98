package admin

import (
	"errors"
	"strconv"

	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminAffiliates 推广用户列表 (Admin)
func (h *Handler) GetAdminAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	referrerID, _ := strconv.ParseUint(c.Query("referrer_id"), 10, 64)

	affiliates, total, err := h.AffiliateService.List(repository.AffiliateListFilter{
		Page:       page,
		PageSize:   pageSize,
		ReferrerID: uint(referrerID),
		Status:     c.Query("status"),
		Keyword:    c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate list failed", err)
		return
	}
	response.SuccessWithPage(c, affiliates, response.NewPagination(page, pageSize, total))
}

// GetAdminAffiliate 推广用户详情 (Admin)
func (h *Handler) GetAdminAffiliate(c *gin.Context) {
	id := paramID(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	dashboard, err := h.AffiliateService.Dashboard(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.Success(c, dashboard)
}

// affiliateStatusRequest 状态更新请求
type affiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAdminAffiliateStatus 启用/禁用推广用户 (Admin)
func (h *Handler) UpdateAdminAffiliateStatus(c *gin.Context) {
	id := paramID(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	var req affiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}

	affiliate, err := h.AffiliateService.UpdateStatus(id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrStatusInvalid):
			respondError(c, response.CodeBadRequest, "status invalid", nil)
		default:
			respondError(c, response.CodeInternal, "status update failed", err)
		}
		return
	}
	response.Success(c, affiliate)
}

// affiliateOverrideRequest 佣金倍率覆写请求，rate 为空表示清除覆写
type affiliateOverrideRequest struct {
	Rate *string `json:"rate"`
}

// UpdateAdminAffiliateOverride 设置/清除佣金倍率覆写 (Admin)
func (h *Handler) UpdateAdminAffiliateOverride(c *gin.Context) {
	id := paramID(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	var req affiliateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}

	var override *decimal.Decimal
	if req.Rate != nil {
		rate, err := decimal.NewFromString(*req.Rate)
		if err != nil {
			respondError(c, response.CodeBadRequest, "rate invalid", nil)
			return
		}
		override = &rate
	}

	affiliate, err := h.AffiliateService.SetCommissionOverride(id, override)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrRateInvalid):
			respondError(c, response.CodeBadRequest, "rate invalid", nil)
		default:
			respondError(c, response.CodeInternal, "override update failed", err)
		}
		return
	}
	response.Success(c, affiliate)
}

func paramID(c *gin.Context, key string) uint {
	id, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
