package service

import (
	"fmt"
	"strings"

	"github.com/reflink-next/internal/constants"
	"github.com/reflink-next/internal/logger"
	"github.com/reflink-next/internal/models"
	"github.com/reflink-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包服务。
// 每次余额变更先落一条带唯一参考号的流水，再执行原子增量 SQL；
// 参考号冲突视为重放，直接跳过，保证事件重复投递不会重复记账。
type WalletService struct {
	walletRepo repository.WalletRepository
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// EnsureWallet 获取钱包，不存在则创建
func (s *WalletService) EnsureWallet(affiliateID uint) (*models.Wallet, error) {
	if affiliateID == 0 {
		return nil, ErrWalletNotFound
	}
	wallet, err := s.walletRepo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet = &models.Wallet{
		AffiliateID:      affiliateID,
		PendingBalance:   models.ZeroMoney(),
		AvailableBalance: models.ZeroMoney(),
		LifetimeEarnings: models.ZeroMoney(),
	}
	if err := s.walletRepo.Create(wallet); err != nil {
		// 并发创建时另一侧已落库，回读即可
		if isUniqueViolation(err) {
			return s.walletRepo.GetByAffiliateID(affiliateID)
		}
		return nil, err
	}
	return wallet, nil
}

// GetWallet 获取钱包
func (s *WalletService) GetWallet(affiliateID uint) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// IncrementPending 待确认余额入账（佣金产生）
func (s *WalletService) IncrementPending(affiliateID uint, amount decimal.Decimal, reference, remark string) error {
	if !amount.IsPositive() {
		return ErrWalletInvalidAmount
	}
	if _, err := s.EnsureWallet(affiliateID); err != nil {
		return err
	}
	applied, err := s.recordTransaction(affiliateID, constants.WalletTxnTypeCommissionPending, constants.WalletTxnDirectionIn, amount, reference, remark)
	if err != nil || !applied {
		return err
	}
	hit, err := s.walletRepo.AddPending(affiliateID, amount)
	if err != nil {
		return err
	}
	if !hit {
		logger.Errorw("wallet_row_missing_on_add",
			"affiliate_id", affiliateID,
			"amount", amount.StringFixed(2),
			"reference", reference)
	}
	return nil
}

// ApprovePending 待确认转可提现（佣金确认）。
// 待确认余额不足时按兜底口径清零待确认、全额计入另两桶，并记录不一致日志。
func (s *WalletService) ApprovePending(affiliateID uint, amount decimal.Decimal, reference, remark string) error {
	if !amount.IsPositive() {
		return ErrWalletInvalidAmount
	}
	if _, err := s.EnsureWallet(affiliateID); err != nil {
		return err
	}
	applied, err := s.recordTransaction(affiliateID, constants.WalletTxnTypeCommissionApprove, constants.WalletTxnDirectionIn, amount, reference, remark)
	if err != nil || !applied {
		return err
	}
	ok, err := s.walletRepo.ConfirmPending(affiliateID, amount)
	if err != nil {
		return err
	}
	if !ok {
		logger.Errorw("wallet_pending_underflow_clamped",
			"affiliate_id", affiliateID,
			"amount", amount.StringFixed(2),
			"reference", reference,
			"op", "approve")
		return s.walletRepo.ConfirmPendingClamped(affiliateID, amount)
	}
	return nil
}

// DecrementPending 待确认余额扣减（未确认佣金撤销）。
// 余额不足时清零并记录不一致日志。
func (s *WalletService) DecrementPending(affiliateID uint, amount decimal.Decimal, reference, remark string) error {
	if !amount.IsPositive() {
		return ErrWalletInvalidAmount
	}
	if _, err := s.EnsureWallet(affiliateID); err != nil {
		return err
	}
	applied, err := s.recordTransaction(affiliateID, constants.WalletTxnTypeCommissionRevoke, constants.WalletTxnDirectionOut, amount, reference, remark)
	if err != nil || !applied {
		return err
	}
	ok, err := s.walletRepo.DeductPending(affiliateID, amount)
	if err != nil {
		return err
	}
	if !ok {
		logger.Errorw("wallet_pending_underflow_clamped",
			"affiliate_id", affiliateID,
			"amount", amount.StringFixed(2),
			"reference", reference,
			"op", "revoke")
		return s.walletRepo.ClampPendingToZero(affiliateID, amount)
	}
	return nil
}

// ReverseApproved 已确认佣金冲销，同时扣减可提现与累计收益。
// 余额不足时不足的桶清零并记录不一致日志。
func (s *WalletService) ReverseApproved(affiliateID uint, amount decimal.Decimal, reference, remark string) error {
	if !amount.IsPositive() {
		return ErrWalletInvalidAmount
	}
	if _, err := s.EnsureWallet(affiliateID); err != nil {
		return err
	}
	applied, err := s.recordTransaction(affiliateID, constants.WalletTxnTypeCommissionClawback, constants.WalletTxnDirectionOut, amount, reference, remark)
	if err != nil || !applied {
		return err
	}
	ok, err := s.walletRepo.DeductApproved(affiliateID, amount)
	if err != nil {
		return err
	}
	if !ok {
		logger.Errorw("wallet_approved_underflow_clamped",
			"affiliate_id", affiliateID,
			"amount", amount.StringFixed(2),
			"reference", reference,
			"op", "clawback")
		return s.walletRepo.DeductApprovedClamped(affiliateID, amount)
	}
	return nil
}

// Withdraw 可提现余额提现，余额不足直接报错不做兜底
func (s *WalletService) Withdraw(affiliateID uint, amount decimal.Decimal, remark string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	wallet, err := s.walletRepo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	if wallet.AvailableBalance.Decimal.LessThan(amount) {
		return nil, ErrWalletInsufficient
	}

	reference := fmt.Sprintf("withdraw:%d:%s", affiliateID, uuid.NewString())
	txn := &models.WalletTransaction{
		AffiliateID: affiliateID,
		Type:        constants.WalletTxnTypeWithdraw,
		Direction:   constants.WalletTxnDirectionOut,
		Amount:      models.NewMoneyFromDecimal(amount),
		Reference:   reference,
		Remark:      remark,
	}

	err = s.walletRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.walletRepo.WithTx(tx)
		ok, err := repo.DeductAvailable(affiliateID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWalletInsufficient
		}
		return repo.CreateTransaction(txn)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("wallet_withdraw",
		"affiliate_id", affiliateID,
		"amount", amount.StringFixed(2),
		"reference", reference)
	return txn, nil
}

// ListTransactions 分页查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// recordTransaction 落流水并按参考号判重，重复参考号返回 applied=false
func (s *WalletService) recordTransaction(affiliateID uint, txnType, direction string, amount decimal.Decimal, reference, remark string) (bool, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return false, fmt.Errorf("wallet transaction reference required")
	}
	txn := &models.WalletTransaction{
		AffiliateID: affiliateID,
		Type:        txnType,
		Direction:   direction,
		Amount:      models.NewMoneyFromDecimal(amount),
		Reference:   reference,
		Remark:      remark,
	}
	if err := s.walletRepo.CreateTransaction(txn); err != nil {
		if isUniqueViolation(err) {
			logger.Infow("wallet_txn_replayed",
				"affiliate_id", affiliateID,
				"type", txnType,
				"reference", reference)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
