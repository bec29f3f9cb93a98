package service

import (
	"errors"
	"strings"
)

// 服务层公共错误，供 handler 通过 errors.Is 映射响应码。
var (
	ErrNotFound             = errors.New("record not found")
	ErrAffiliateDisabled    = errors.New("affiliate disabled")
	ErrAffiliateExists      = errors.New("affiliate already exists")
	ErrAffiliateCodeInvalid = errors.New("affiliate code generate failed")
	ErrEmailInvalid         = errors.New("email invalid")
	ErrStatusInvalid        = errors.New("status invalid")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid token")
	ErrAttributionInvalid   = errors.New("attribution signature invalid")
	ErrAttributionExpired   = errors.New("attribution expired")
	ErrWalletInvalidAmount  = errors.New("wallet amount invalid")
	ErrWalletInsufficient   = errors.New("wallet balance insufficient")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrRateInvalid          = errors.New("commission rate invalid")
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
