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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordLoginOutcome(outcome string)
	RecordFeedbackSubmitted(sentiment string)
	RecordNotifyDelivery(kind string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordOAuthExchangeLatency(duration time.Duration)
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginOutcomes        *prometheus.CounterVec
	feedbackSubmitted    *prometheus.CounterVec
	notifyDeliveries     *prometheus.CounterVec
	httpStatus           *prometheus.CounterVec
	oauthExchangeLatency prometheus.Histogram
	sessionsSwept        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kansou_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"outcome"}),
		feedbackSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kansou_feedback_submitted_total",
			Help: "投稿されたフィードバックの感情区分別合計数",
		}, []string{"sentiment"}),
		notifyDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kansou_notify_delivery_total",
			Help: "Slack通知配信の種別・結果別合計数",
		}, []string{"kind", "success"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kansou_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		oauthExchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kansou_oauth_exchange_latency_seconds",
			Help:    "OAuthコード交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kansou_sessions_swept_total",
			Help: "ワーカーが削除した期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.loginOutcomes,
		c.feedbackSubmitted,
		c.notifyDeliveries,
		c.httpStatus,
		c.oauthExchangeLatency,
		c.sessionsSwept,
	)

	return c
}

// RecordLoginOutcome はログイン試行の結果を記録する。
// outcomeはsuccess / domain_rejected / oauth_error / invalid_state等。
func (c *Collector) RecordLoginOutcome(outcome string) {
	c.loginOutcomes.WithLabelValues(outcome).Inc()
}

// RecordFeedbackSubmitted はフィードバック投稿を感情区分別に記録する。
func (c *Collector) RecordFeedbackSubmitted(sentiment string) {
	c.feedbackSubmitted.WithLabelValues(sentiment).Inc()
}

// RecordNotifyDelivery はSlack通知配信の結果を記録する。
// kindはprimary（受信者本人）またはmanager（エスカレーションコピー）。
func (c *Collector) RecordNotifyDelivery(kind string, success bool) {
	c.notifyDeliveries.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordOAuthExchangeLatency はOAuthコード交換のレイテンシを記録する。
func (c *Collector) RecordOAuthExchangeLatency(duration time.Duration) {
	c.oauthExchangeLatency.Observe(duration.Seconds())
}

// RecordSessionsSwept はワーカーが削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
