package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics Prometheus 指标。所有方法对 nil 接收者安全，未开启指标时直接传 nil
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerOps       *prometheus.CounterVec
	outboxMessages  *prometheus.CounterVec
	snapshotRuns    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corebank_http_requests_total",
		Help: "HTTP 请求数，按路由和状态码",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corebank_http_request_duration_seconds",
		Help:    "HTTP 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corebank_ledger_operations_total",
		Help: "账本操作数，按操作和结果",
	}, []string{"op", "result"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corebank_outbox_messages_total",
		Help: "消息投递结果：sent / retry / failed",
	}, []string{"result"})
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corebank_snapshot_runs_total",
		Help: "快照任务执行结果：ok / skipped / error",
	}, []string{"result"})
	registry.MustRegister(requests, duration, ledgerOps, outbox, snapshots)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ledgerOps:       ledgerOps,
		outboxMessages:  outbox,
		snapshotRuns:    snapshots,
	}
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware 记录每个请求；路由取 gin 的路由模板，未匹配的记为 unknown
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveLedgerOp result 为 "ok" 或错误分类
func (m *Metrics) ObserveLedgerOp(op, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveOutbox(result string) {
	if m == nil {
		return
	}
	m.outboxMessages.WithLabelValues(result).Inc()
}

// AddOutbox 批量计数
func (m *Metrics) AddOutbox(result string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.outboxMessages.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveSnapshot(result string) {
	if m == nil {
		return
	}
	m.snapshotRuns.WithLabelValues(result).Inc()
}

// RegisterGauge 注册按需取值的 gauge（账户数、流水条数等）
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}
