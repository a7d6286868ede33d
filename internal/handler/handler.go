package handler

import (
	"corebank/internal/service"
	"corebank/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	customerService *service.CustomerService
	accountService  *service.AccountService
	transferService *service.TransferService
	opsService      *service.OpsService
}

// NewHandler 创建处理器实例；未开启 MySQL 时 ops 为 nil
func NewHandler(customers *service.CustomerService, accounts *service.AccountService,
	transfers *service.TransferService, ops *service.OpsService) *Handler {
	return &Handler{
		customerService: customers,
		accountService:  accounts,
		transferService: transfers,
		opsService:      ops,
	}
}

// ============================================================
// 客户相关接口
// ============================================================

// CreateCustomer 登记客户
// POST /api/v1/customers
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	cust, err := h.customerService.Create(&req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, cust)
}

// ListCustomers 客户列表
// GET /api/v1/customers?name=xxx
func (h *Handler) ListCustomers(c *gin.Context) {
	customers := h.customerService.List(c.Query("name"))
	response.Success(c, gin.H{
		"total": len(customers),
		"list":  customers,
	})
}

// ============================================================
// 账户相关接口
// ============================================================

// OpenAccount 开户
// POST /api/v1/accounts
func (h *Handler) OpenAccount(c *gin.Context) {
	var req service.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.Open(&req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, account)
}

// ListAccounts 账户列表
// GET /api/v1/accounts?name=xxx&type=Savings
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountService.List(c.Query("name"), c.Query("type"))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"total": len(accounts),
		"list":  accounts,
	})
}

// Summary 各类型账户余额合计
// GET /api/v1/accounts/summary
func (h *Handler) Summary(c *gin.Context) {
	response.Success(c, h.accountService.Summary())
}

// GetAccount 账户详情
// GET /api/v1/accounts/:number
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.accountService.Get(c.Param("number"))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, account)
}

// SetStatus 修改账户状态
// PUT /api/v1/accounts/:number/status
//
// Closed 是终态，销户后不能再激活
func (h *Handler) SetStatus(c *gin.Context) {
	var req service.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.SetStatus(c.Param("number"), req.Status)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, account)
}

// ============================================================
// 存取款接口
// ============================================================

// Deposit 存款
// POST /api/v1/accounts/:number/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req service.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entry, err := h.accountService.Deposit(c.Request.Context(), c.Param("number"), req.Amount)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, entry)
}

// Withdraw 取款
// POST /api/v1/accounts/:number/withdraw
//
// 【关键点】不同账户类型的取款规则：
// 1. Savings：取款后余额不得低于最低余额
// 2. Checking：可透支到额度为止
// 3. Basic：不允许透支
func (h *Handler) Withdraw(c *gin.Context) {
	var req service.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entry, err := h.accountService.Withdraw(c.Request.Context(), c.Param("number"), req.Amount)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, entry)
}

// ============================================================
// 流水与对账单接口
// ============================================================

// ListTransactions 账户流水（最新在前）与各类型合计
// GET /api/v1/accounts/:number/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	history, err := h.accountService.History(c.Param("number"))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, history)
}

// Statement 对账单，纯文本
// GET /api/v1/accounts/:number/statement
func (h *Handler) Statement(c *gin.Context) {
	text, err := h.accountService.Statement(c.Param("number"))
	if err != nil {
		renderError(c, err)
		return
	}

	response.Text(c, text)
}

// ============================================================
// 转账接口
// ============================================================

// Transfer 转账
// POST /api/v1/transfers
//
// 【关键点】转账是整个系统最核心的操作，需要保证：
// 1. 原子性：两条腿要么都记账，要么都不记
// 2. 并发安全：两个账户按账户号顺序加锁
// 3. 幂等性：带 request_id 的请求只会执行一次
func (h *Handler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 运维接口
// ============================================================

// PersistenceStatus 快照表与消息表状态
// GET /api/v1/ops/persistence
func (h *Handler) PersistenceStatus(c *gin.Context) {
	status, err := h.opsService.Status(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, status)
}
