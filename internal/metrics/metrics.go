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
// サービス層やHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordTokenIssued()
	RecordTokenRevoked()
	RecordAuthFailure(reason string)
	RecordTodoMutation(operation string)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokensIssued  prometheus.Counter
	tokensRevoked prometheus.Counter
	authFailures  *prometheus.CounterVec
	todoMutations *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoman_tokens_issued_total",
			Help: "発行した認証トークンの合計数",
		}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todoman_tokens_revoked_total",
			Help: "失効させた認証トークンの合計数",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoman_auth_failures_total",
			Help: "認証失敗の合計数（理由別）",
		}, []string{"reason"}),
		todoMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoman_todo_mutations_total",
			Help: "Todoの作成・更新・削除の合計数",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoman_http_requests_total",
			Help: "HTTPリクエスト数（メソッド・ルート・ステータス別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.tokensRevoked,
		c.authFailures,
		c.todoMutations,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordTokenIssued はトークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordTokenRevoked はトークン失効を記録する。
func (c *Collector) RecordTokenRevoked() {
	c.tokensRevoked.Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordTodoMutation はTodoの変更操作を記録する。
func (c *Collector) RecordTodoMutation(operation string) {
	c.todoMutations.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordTokenIssued()                                   {}
func (Nop) RecordTokenRevoked()                                  {}
func (Nop) RecordAuthFailure(string)                             {}
func (Nop) RecordTodoMutation(string)                            {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
