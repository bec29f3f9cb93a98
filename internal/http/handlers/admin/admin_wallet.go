package admin

import (
	"errors"
	"strconv"

	"github.com/reflink-next/internal/http/handlers/shared"
	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/queue"
	"github.com/reflink-next/internal/repository"
	"github.com/reflink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetAdminWallet 钱包详情 (Admin)
func (h *Handler) GetAdminWallet(c *gin.Context) {
	affiliateID := paramID(c, "affiliate_id")
	if affiliateID == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	wallet, err := h.WalletService.GetWallet(affiliateID)
	if err != nil {
		if errors.Is(err, service.ErrWalletNotFound) {
			respondError(c, response.CodeNotFound, "wallet not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "wallet fetch failed", err)
		return
	}
	response.Success(c, wallet)
}

// GetAdminWalletTransactions 钱包流水列表 (Admin)
func (h *Handler) GetAdminWalletTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	affiliateID, _ := strconv.ParseUint(c.Query("affiliate_id"), 10, 64)

	txns, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: uint(affiliateID),
		Type:        c.Query("type"),
		Direction:   c.Query("direction"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "wallet transactions failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.NewPagination(page, pageSize, total))
}

// walletWithdrawRequest 提现标记请求
type walletWithdrawRequest struct {
	Amount string `json:"amount" binding:"required"`
	Remark string `json:"remark"`
}

// CreateAdminWalletWithdraw 标记提现：扣减可提现余额并落流水 (Admin)
func (h *Handler) CreateAdminWalletWithdraw(c *gin.Context) {
	affiliateID := paramID(c, "affiliate_id")
	if affiliateID == 0 {
		respondError(c, response.CodeBadRequest, "invalid affiliate id", nil)
		return
	}
	var req walletWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(c, response.CodeBadRequest, "amount invalid", nil)
		return
	}

	txn, err := h.WalletService.Withdraw(affiliateID, amount, req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWalletNotFound):
			respondError(c, response.CodeNotFound, "wallet not found", nil)
		case errors.Is(err, service.ErrWalletInvalidAmount):
			respondError(c, response.CodeBadRequest, "amount invalid", nil)
		case errors.Is(err, service.ErrWalletInsufficient):
			respondError(c, response.CodeBadRequest, "balance insufficient", nil)
		default:
			respondError(c, response.CodeInternal, "withdraw failed", err)
		}
		return
	}
	response.Success(c, txn)
}

// TriggerAdminWalletReconcile 手动触发钱包对账 (Admin)
func (h *Handler) TriggerAdminWalletReconcile(c *gin.Context) {
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueWalletReconcile(queue.WalletReconcilePayload{TriggeredBy: "admin"})
		if err != nil {
			respondError(c, response.CodeInternal, "reconcile enqueue failed", err)
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}

	drifted, err := h.CommissionService.ReconcileWallets()
	if err != nil {
		respondError(c, response.CodeInternal, "reconcile failed", err)
		return
	}
	shared.RequestLog(c).Infow("wallet_reconcile_triggered", "drifted", drifted)
	response.Success(c, gin.H{"queued": false, "drifted": drifted})
}
