// Package metrics 导出回收站操作的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recordbin/errors"
)

// Outcome 标签取值
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics 一组在同一 Registry 上注册的指标
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	bulkItems    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New 在独立的 Registry 上创建指标，附带 Go 运行时与进程指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordbin_operations_total",
			Help: "回收站操作次数（按记录族、动作、结果）",
		}, []string{"family", "action", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recordbin_operation_duration_seconds",
			Help:    "回收站操作耗时（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"family", "action"}),
		bulkItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordbin_bulk_items_total",
			Help: "批量操作中处理的条目数（按结果）",
		}, []string{"family", "action", "result"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordbin_archive_cache_lookups_total",
			Help: "归档缓存查询次数",
		}, []string{"result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordbin_http_requests_total",
			Help: "HTTP 请求次数",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recordbin_http_request_duration_seconds",
			Help:    "HTTP 请求耗时（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry 指标注册表（测试用）
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation 记录单次操作的结果与耗时
func (m *Metrics) ObserveOperation(family, action string, err error, elapsed time.Duration) {
	m.operations.WithLabelValues(family, action, Outcome(err)).Inc()
	m.duration.WithLabelValues(family, action).Observe(elapsed.Seconds())
}

// ObserveBulk 记录批量操作的成功与失败条目数
func (m *Metrics) ObserveBulk(family, action string, succeeded, failed int) {
	m.bulkItems.WithLabelValues(family, action, "succeeded").Add(float64(succeeded))
	m.bulkItems.WithLabelValues(family, action, "failed").Add(float64(failed))
}

// CacheLookup 记录归档缓存命中情况
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// Middleware HTTP 指标中间件，路由标签取 chi 路由模板以控制基数
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Outcome 将错误映射为结果标签
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch errors.GetErrorCode(err) {
	case errors.ErrCodeNotFound:
		return OutcomeNotFound
	case errors.ErrCodeForbidden:
		return OutcomeForbidden
	case errors.ErrCodeConflict:
		return OutcomeConflict
	case errors.ErrCodeValidation, errors.ErrCodeInvalidInput:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
