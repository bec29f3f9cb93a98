package admin

import (
	"strconv"

	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminCommissions 佣金记录列表 (Admin)
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	earnerID, _ := strconv.ParseUint(c.Query("earner_id"), 10, 64)
	orderID, _ := strconv.ParseUint(c.Query("order_id"), 10, 64)
	level, _ := strconv.Atoi(c.Query("level"))

	commissions, total, err := h.CommissionService.List(repository.CommissionListFilter{
		Page:     page,
		PageSize: pageSize,
		EarnerID: uint(earnerID),
		OrderID:  uint(orderID),
		Level:    level,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "commission list failed", err)
		return
	}
	response.SuccessWithPage(c, commissions, response.NewPagination(page, pageSize, total))
}
