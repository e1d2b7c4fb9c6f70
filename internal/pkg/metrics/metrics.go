package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
// nil の *Metrics に対する記録メソッドは何もしない
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約作成の試行数（kind: interval/capacity, result: held/confirmed/requested/conflict/...）
	BookingsTotal *prometheus.CounterVec

	// 支払いの試行数（result: success/not_payable/expired/error）
	PaymentsTotal *prometheus.CounterVec

	// 返金ワークフローの操作数（action: requested/approved/rejected）
	RefundsTotal *prometheus.CounterVec

	// 期限切れとなった仮押さえの数（source: sweeper/lazy）
	HoldsExpiredTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts by resource kind and result",
			},
			[]string{"kind", "result"},
		),
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_total",
				Help: "Total number of payment attempts by result",
			},
			[]string{"result"},
		),
		RefundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refunds_total",
				Help: "Total number of refund workflow actions",
			},
			[]string{"action"},
		),
		HoldsExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_holds_expired_total",
				Help: "Total number of held bookings transitioned to expired",
			},
			[]string{"source"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.PaymentsTotal,
		m.RefundsTotal,
		m.HoldsExpiredTotal,
		m.DistributedLockDuration,
	)

	return m
}

func (m *Metrics) ObserveBooking(kind, result string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObservePayment(result string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRefund(action string) {
	if m == nil {
		return
	}
	m.RefundsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveExpired(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HoldsExpiredTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveLock(operation, status string, started time.Time) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
