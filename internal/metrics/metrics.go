// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイ、同期コントローラ、スケジューラ、プッシュ受信から利用する。
type MetricsCollector interface {
	RecordGatewayCall(operation string, result string, duration time.Duration)
	RecordStaleResponse(view string)
	RecordRollback(field string)
	RecordPushEvent(kind string, transport string)
	RecordRefreshTick(outcome string)
}

// リフレッシュティックの結果ラベル
const (
	TickFired      = "fired"
	TickDropped    = "dropped_in_flight"
	TickSkippedTab = "skipped_tab"
	TickNotArmed   = "not_scheduled"
	ResultSuccess  = "success"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewayCalls   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	staleResponses *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	pushEvents     *prometheus.CounterVec
	refreshTicks   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswatcher_gateway_calls_total",
			Help: "バックエンド呼び出しの合計数（操作・結果別）",
		}, []string{"operation", "result"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newswatcher_gateway_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswatcher_stale_responses_total",
			Help: "後続リクエストに追い越されて破棄された応答数",
		}, []string{"view"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswatcher_optimistic_rollbacks_total",
			Help: "楽観的更新のロールバック数",
		}, []string{"field"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswatcher_push_events_total",
			Help: "受信したプッシュ通知の合計数",
		}, []string{"kind", "transport"}),
		refreshTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newswatcher_refresh_ticks_total",
			Help: "自動更新ティックの合計数（結果別）",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.gatewayCalls,
		c.gatewayLatency,
		c.staleResponses,
		c.rollbacks,
		c.pushEvents,
		c.refreshTicks,
	)

	return c
}

// RecordGatewayCall はバックエンド呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordGatewayCall(operation string, result string, duration time.Duration) {
	c.gatewayCalls.WithLabelValues(operation, result).Inc()
	c.gatewayLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStaleResponse は破棄された古い応答を記録する。
func (c *Collector) RecordStaleResponse(view string) {
	c.staleResponses.WithLabelValues(view).Inc()
}

// RecordRollback は楽観的更新のロールバックを記録する。
func (c *Collector) RecordRollback(field string) {
	c.rollbacks.WithLabelValues(field).Inc()
}

// RecordPushEvent はプッシュ通知の受信を記録する。
func (c *Collector) RecordPushEvent(kind string, transport string) {
	c.pushEvents.WithLabelValues(kind, transport).Inc()
}

// RecordRefreshTick は自動更新ティックの結果を記録する。
func (c *Collector) RecordRefreshTick(outcome string) {
	c.refreshTicks.WithLabelValues(outcome).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordGatewayCall(string, string, time.Duration) {}
func (Nop) RecordStaleResponse(string)                      {}
func (Nop) RecordRollback(string)                           {}
func (Nop) RecordPushEvent(string, string)                  {}
func (Nop) RecordRefreshTick(string)                        {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
