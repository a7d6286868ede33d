package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corebank/internal/customer"
	"corebank/internal/ledger"
	"corebank/internal/observability"
	"corebank/internal/service"
	"corebank/pkg/response"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	l := ledger.New()
	dir := customer.NewDirectory()
	metrics := observability.NewMetrics()
	h := NewHandler(
		service.NewCustomerService(dir),
		service.NewAccountService(l, dir, metrics),
		service.NewTransferService(l, nil, metrics),
		nil,
	)
	return SetupRouter(h, metrics, gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}, data interface{}) envelope {
	t.Helper()
	w := do(t, r, method, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && env.Code == response.CodeSuccess {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func createCustomer(t *testing.T, r http.Handler, name, typ string) string {
	t.Helper()
	var c struct {
		ID string `json:"customer_id"`
	}
	env := call(t, r, http.MethodPost, "/api/v1/customers", gin.H{
		"name": name, "age": 30, "contact": "5550100", "address": "1 Main St", "type": typ,
	}, &c)
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	return c.ID
}

func openAccount(t *testing.T, r http.Handler, customerID, kind, opening string) string {
	t.Helper()
	var acc struct {
		Number string `json:"account_number"`
	}
	env := call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"customer_id": customerID, "type": kind, "opening_balance": opening,
	}, &acc)
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	return acc.Number
}

func TestHandler_AccountLifecycle(t *testing.T) {
	r := newTestRouter(t)
	alice := createCustomer(t, r, "Alice", "Regular")
	sav := openAccount(t, r, alice, "Savings", "1000")
	assert.Equal(t, "ACC001", sav)

	var entry struct {
		ID           string `json:"transaction_id"`
		BalanceAfter string `json:"balance_after"`
	}
	env := call(t, r, http.MethodPost, "/api/v1/accounts/"+sav+"/deposit", gin.H{"amount": "250.50"}, &entry)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, "TXN001", entry.ID)
	assert.Equal(t, "1250.5", entry.BalanceAfter)

	// 取款后低于最低余额
	env = call(t, r, http.MethodPost, "/api/v1/accounts/"+sav+"/withdraw", gin.H{"amount": 800}, nil)
	assert.Equal(t, response.CodePolicyViolation, env.Code)
	var detail map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "1250.50", detail["balance"])
	assert.Equal(t, "500.00", detail["limit"])

	env = call(t, r, http.MethodPost, "/api/v1/accounts/"+sav+"/withdraw", gin.H{"amount": "-5"}, nil)
	assert.Equal(t, response.CodeInvalidAmount, env.Code)

	var view struct {
		Status   string `json:"status"`
		Balance  string `json:"balance"`
		Interest string `json:"interest"`
	}
	env = call(t, r, http.MethodGet, "/api/v1/accounts/"+sav, nil, &view)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, "Active", view.Status)
	assert.Equal(t, "1250.5", view.Balance)

	// 余额不为0不能销户
	env = call(t, r, http.MethodPut, "/api/v1/accounts/"+sav+"/status", gin.H{"status": "closed"}, nil)
	assert.Equal(t, response.CodeInvalidTransition, env.Code)

	env = call(t, r, http.MethodPut, "/api/v1/accounts/"+sav+"/status", gin.H{"status": "frozen"}, nil)
	assert.Equal(t, response.CodeParamError, env.Code)

	basic := openAccount(t, r, alice, "Basic", "0")
	env = call(t, r, http.MethodPut, "/api/v1/accounts/"+basic+"/status", gin.H{"status": "closed"}, &view)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, "Closed", view.Status)

	env = call(t, r, http.MethodPut, "/api/v1/accounts/"+basic+"/status", gin.H{"status": "active"}, nil)
	assert.Equal(t, response.CodeInvalidTransition, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/accounts/"+basic+"/deposit", gin.H{"amount": "1"}, nil)
	assert.Equal(t, response.CodeAccountClosed, env.Code)
}

func TestHandler_Transfer(t *testing.T) {
	r := newTestRouter(t)
	alice := createCustomer(t, r, "Alice", "Premium")
	bob := createCustomer(t, r, "Bob", "")
	chk := openAccount(t, r, alice, "Checking", "100")
	basic := openAccount(t, r, bob, "Basic", "0")

	var res struct {
		Out struct {
			Type         string `json:"type"`
			BalanceAfter string `json:"balance_after"`
			Related      string `json:"related_account"`
		} `json:"out"`
		In struct {
			Type         string `json:"type"`
			BalanceAfter string `json:"balance_after"`
		} `json:"in"`
		State    string `json:"state"`
		Replayed bool   `json:"replayed"`
	}
	env := call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"from": chk, "to": basic, "amount": "600",
	}, &res)
	require.Equal(t, response.CodeSuccess, env.Code, env.Message)
	assert.Equal(t, "TRANSFER_OUT", res.Out.Type)
	assert.Equal(t, "-500", res.Out.BalanceAfter)
	assert.Equal(t, basic, res.Out.Related)
	assert.Equal(t, "TRANSFER_IN", res.In.Type)
	assert.Equal(t, "600", res.In.BalanceAfter)
	assert.Equal(t, "Logged", res.State)

	env = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"from": basic, "to": chk, "amount": "601",
	}, nil)
	assert.Equal(t, response.CodeInsufficientFunds, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"from": chk, "to": chk, "amount": "1",
	}, nil)
	assert.Equal(t, response.CodeSameAccount, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{
		"from": chk, "to": "ACC404", "amount": "1",
	}, nil)
	assert.Equal(t, response.CodeAccountNotFound, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/transfers", gin.H{"from": chk}, nil)
	assert.Equal(t, response.CodeParamError, env.Code)

	var history struct {
		Entries          []json.RawMessage `json:"entries"`
		TotalTransferOut string            `json:"total_transfers_out"`
		NetChange        string            `json:"net_change"`
	}
	env = call(t, r, http.MethodGet, "/api/v1/accounts/"+chk+"/transactions", nil, &history)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Len(t, history.Entries, 1)
	assert.Equal(t, "600.00", history.TotalTransferOut)
	assert.Equal(t, "-600.00", history.NetChange)
}

func TestHandler_Statement(t *testing.T) {
	r := newTestRouter(t)
	carol := createCustomer(t, r, "Carol", "")
	b := openAccount(t, r, carol, "Basic", "50")
	call(t, r, http.MethodPost, "/api/v1/accounts/"+b+"/deposit", gin.H{"amount": "25"}, nil)

	w := do(t, r, http.MethodGet, "/api/v1/accounts/"+b+"/statement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), "Account: Carol (Basic)\n")
	assert.Contains(t, w.Body.String(), "Current Balance: $75.00\n")
	assert.Contains(t, w.Body.String(), "Net Change: +$25.00\n")

	env := call(t, r, http.MethodGet, "/api/v1/accounts/ACC999/statement", nil, nil)
	assert.Equal(t, response.CodeAccountNotFound, env.Code)
}

func TestHandler_ListAndSummary(t *testing.T) {
	r := newTestRouter(t)
	alice := createCustomer(t, r, "Alice", "")
	bob := createCustomer(t, r, "Bob", "")
	openAccount(t, r, alice, "Savings", "600")
	openAccount(t, r, alice, "Checking", "40")
	openAccount(t, r, bob, "Savings", "900")

	var list struct {
		Total int `json:"total"`
	}
	env := call(t, r, http.MethodGet, "/api/v1/accounts?name=ALI", nil, &list)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, 2, list.Total)

	env = call(t, r, http.MethodGet, "/api/v1/accounts?type=savings", nil, &list)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, 2, list.Total)

	env = call(t, r, http.MethodGet, "/api/v1/accounts?type=gold", nil, nil)
	assert.Equal(t, response.CodeParamError, env.Code)

	var sum struct {
		AccountCount int               `json:"account_count"`
		Totals       map[string]string `json:"totals"`
	}
	env = call(t, r, http.MethodGet, "/api/v1/accounts/summary", nil, &sum)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, 3, sum.AccountCount)
	assert.Equal(t, "1500.00", sum.Totals["Savings"])
	assert.Equal(t, "40.00", sum.Totals["Checking"])

	env = call(t, r, http.MethodGet, "/api/v1/customers?name=bo", nil, &list)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, 1, list.Total)
}

func TestHandler_CustomerValidation(t *testing.T) {
	r := newTestRouter(t)
	env := call(t, r, http.MethodPost, "/api/v1/customers", gin.H{
		"name": "Zed", "age": 12, "contact": "5550100", "address": "1 Main St",
	}, nil)
	assert.Equal(t, response.CodeParamError, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"customer_id": "CUS404", "type": "Basic", "opening_balance": "0",
	}, nil)
	assert.Equal(t, response.CodeCustomerNotFound, env.Code)

	id := createCustomer(t, r, "Yan", "")
	env = call(t, r, http.MethodPost, "/api/v1/accounts", gin.H{
		"customer_id": id, "type": "Savings", "opening_balance": "100",
	}, nil)
	assert.Equal(t, response.CodePolicyViolation, env.Code)
}

func TestMiddleware_RequestIDAndHealth(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "corebank_http_requests_total")

	var ops struct {
		Enabled bool `json:"enabled"`
	}
	env := call(t, r, http.MethodGet, "/api/v1/ops/persistence", nil, &ops)
	require.Equal(t, response.CodeSuccess, env.Code)
	assert.False(t, ops.Enabled)

	w = do(t, r, http.MethodOptions, "/api/v1/transfers", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMiddleware_Recovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(), RequestIDMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(t, r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, response.CodeServerError, env.Code)
}
