// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(statusCode int)
	RecordHTTPDuration(duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordAuthzDenied(action string)
}

var _ MetricsCollector = (*Collector)(nil)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration prometheus.Histogram
	loginSuccess prometheus.Counter
	loginFailure prometheus.Counter
	authzDenied  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealership_http_requests_total",
			Help: "HTTPステータスコード別のリクエスト数",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealership_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealership_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealership_login_failure_total",
			Help: "ログイン失敗の合計数",
		}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealership_authz_denied_total",
			Help: "認可拒否のアクション別合計数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.loginSuccess,
		c.loginFailure,
		c.authzDenied,
	)

	return c
}

// RecordHTTPRequest はHTTPレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPRequest(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPDuration はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPDuration(duration time.Duration) {
	c.httpDuration.Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailure.Inc()
}

// RecordAuthzDenied は認可拒否をアクション別に記録する。
func (c *Collector) RecordAuthzDenied(action string) {
	c.authzDenied.WithLabelValues(action).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
