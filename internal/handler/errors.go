package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"corebank/internal/customer"
	"corebank/internal/ledger"
	"corebank/internal/service"
	"corebank/pkg/response"
)

// renderError 把账本错误映射为业务错误码
func renderError(c *gin.Context, err error) {
	var pe *ledger.PolicyError
	if errors.As(err, &pe) {
		response.ErrorWithData(c, response.CodePolicyViolation, err.Error(), gin.H{
			"account": pe.Account,
			"rule":    pe.Rule,
			"balance": pe.Balance.StringFixed(2),
			"limit":   pe.Limit.StringFixed(2),
		})
		return
	}
	var fe *ledger.FundsError
	if errors.As(err, &fe) {
		response.ErrorWithData(c, response.CodeInsufficientFunds, err.Error(), gin.H{
			"account":   fe.Account,
			"balance":   fe.Balance.StringFixed(2),
			"requested": fe.Requested.StringFixed(2),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidParam):
		response.ParamError(c, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.BusinessError(c, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, ledger.ErrDuplicateAccount):
		response.BusinessError(c, response.CodeDuplicateAccount, err.Error())
	case errors.Is(err, ledger.ErrAccountClosed):
		response.BusinessError(c, response.CodeAccountClosed, err.Error())
	case errors.Is(err, ledger.ErrSameAccount):
		response.BusinessError(c, response.CodeSameAccount, err.Error())
	case errors.Is(err, customer.ErrCustomerNotFound):
		response.BusinessError(c, response.CodeCustomerNotFound, err.Error())
	case errors.Is(err, service.ErrRequestInProgress):
		response.BusinessError(c, response.CodeRequestInProgress, err.Error())
	default:
		log.Printf("[HTTP] 未分类错误: path=%s, err=%v", c.FullPath(), err)
		response.ServerError(c, "服务器内部错误")
	}
}
