package public

import (
	"errors"

	"github.com/reflink-next/internal/http/handlers/shared"
	"github.com/reflink-next/internal/http/response"
	"github.com/reflink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, fallbackCode, fallbackMsg, err)
}

var signupErrorRules = []mappedHandlerError{
	{target: service.ErrEmailInvalid, code: response.CodeBadRequest, msg: "email invalid"},
	{target: service.ErrAffiliateExists, code: response.CodeBadRequest, msg: "email already registered"},
	{target: service.ErrAffiliateCodeInvalid, code: response.CodeInternal, msg: "referral code generation failed"},
}

var affiliateLookupErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "affiliate not found"},
	{target: service.ErrAffiliateDisabled, code: response.CodeForbidden, msg: "affiliate disabled"},
}
