package middleware

import (
	"net/http"
	"time"
)

// HTTPMetricsRecorder はリクエストメトリクスの記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type HTTPMetricsRecorder interface {
	RecordHTTPRequest(statusCode int)
	RecordHTTPDuration(duration time.Duration)
}

// NewMetricsMiddleware はリクエスト数と処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(rec.statusCode)
			recorder.RecordHTTPDuration(time.Since(start))
		})
	}
}
