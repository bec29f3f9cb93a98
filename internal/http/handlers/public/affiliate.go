package public

import (
	"strconv"

	"github.com/reflink-next/internal/http/handlers/shared"
	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// resolveAffiliateByCode 按路径短码解析推广用户，失败时已写响应
func (h *Handler) resolveAffiliateByCode(c *gin.Context) (*models.Affiliate, bool) {
	affiliate, err := h.AffiliateService.GetByCode(c.Param("code"))
	if err != nil {
		respondWithMappedError(c, err, affiliateLookupErrorRules, response.CodeInternal, "affiliate lookup failed")
		return nil, false
	}
	return affiliate, true
}

// HandleAffiliateDashboard 推广用户中心：档案、钱包、网络规模、访问量
func (h *Handler) HandleAffiliateDashboard(c *gin.Context) {
	affiliate, ok := h.resolveAffiliateByCode(c)
	if !ok {
		return
	}
	dashboard, err := h.AffiliateService.Dashboard(affiliate.ID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "dashboard load failed", err)
		return
	}

	pending, approved, err := h.CommissionService.EarningsSummary(affiliate.ID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "dashboard load failed", err)
		return
	}
	response.Success(c, gin.H{
		"affiliate":        dashboard.Affiliate,
		"wallet":           dashboard.Wallet,
		"network":          dashboard.Network,
		"visit_count":      dashboard.VisitCount,
		"pending_total":    pending.StringFixed(2),
		"approved_total":   approved.StringFixed(2),
	})
}

// HandleAffiliateCommissions 推广用户佣金记录
func (h *Handler) HandleAffiliateCommissions(c *gin.Context) {
	affiliate, ok := h.resolveAffiliateByCode(c)
	if !ok {
		return
	}
	page, pageSize := shared.NormalizePagination(queryInt(c, "page"), queryInt(c, "page_size"))

	commissions, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		EarnerID: affiliate.ID,
		Status:   c.Query("status"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "commission list failed", err)
		return
	}
	response.SuccessWithPage(c, commissions, response.NewPagination(page, pageSize, total))
}

// HandleAffiliateWalletTransactions 推广用户钱包流水
func (h *Handler) HandleAffiliateWalletTransactions(c *gin.Context) {
	affiliate, ok := h.resolveAffiliateByCode(c)
	if !ok {
		return
	}
	page, pageSize := shared.NormalizePagination(queryInt(c, "page"), queryInt(c, "page_size"))

	txns, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: affiliate.ID,
		Type:        c.Query("type"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "wallet transactions failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.NewPagination(page, pageSize, total))
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
