package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/rendezvous-server/internal/util/logger"
)

var log = logger.Logger("core/metrics")

const namespace = "rendezvous"

// shutdownTimeout 关闭 HTTP 服务的等待时间
const shutdownTimeout = 5 * time.Second

// Metrics 进程内的全部指标
type Metrics struct {
	registry  *prometheus.Registry
	bandwidth *BandwidthCounter

	connsOpened     *prometheus.CounterVec
	connsClosed     *prometheus.CounterVec
	connsActive     prometheus.Gauge
	upgradeFailures *prometheus.CounterVec

	registrations       *prometheus.CounterVec
	registrationsActive prometheus.Gauge
	discovers           *prometheus.CounterVec
	pingRTT             prometheus.Histogram
}

// New 创建指标并注册 Go 运行时与进程采集器
func New() *Metrics {
	return NewWithClock(clock.New())
}

// NewWithClock 使用指定时钟创建指标
func NewWithClock(clk clock.Clock) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		bandwidth: NewBandwidthCounter(clk),
		connsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Connections that completed the upgrade.",
		}, []string{"transport", "direction"}),
		connsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Connections that were closed.",
		}, []string{"transport"}),
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently established connections.",
		}),
		upgradeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrade_failures_total",
			Help:      "Inbound connections that failed to upgrade, by stage.",
		}, []string{"stage"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "REGISTER requests by outcome.",
		}, []string{"result"}),
		registrationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registrations_active",
			Help:      "Registrations currently held.",
		}),
		discovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discover_requests_total",
			Help:      "DISCOVER requests by outcome.",
		}, []string{"result"}),
		pingRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ping_rtt_seconds",
			Help:      "Round trip time of outbound pings.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bandwidth,
		m.connsOpened,
		m.connsClosed,
		m.connsActive,
		m.upgradeFailures,
		m.registrations,
		m.registrationsActive,
		m.discovers,
		m.pingRTT,
	)
	return m
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Bandwidth 返回带宽计数器，m 为 nil 时返回 nil
func (m *Metrics) Bandwidth() *BandwidthCounter {
	if m == nil {
		return nil
	}
	return m.bandwidth
}

// ============================================================================
//                              连接
// ============================================================================

// ConnectionOpened 记录一个完成升级的连接
func (m *Metrics) ConnectionOpened(transport, direction string) {
	if m == nil {
		return
	}
	m.connsOpened.WithLabelValues(transport, direction).Inc()
	m.connsActive.Inc()
}

// ConnectionClosed 记录连接关闭
func (m *Metrics) ConnectionClosed(transport string) {
	if m == nil {
		return
	}
	m.connsClosed.WithLabelValues(transport).Inc()
	m.connsActive.Dec()
}

// UpgradeFailed 记录入站升级失败
func (m *Metrics) UpgradeFailed(stage string) {
	if m == nil {
		return
	}
	m.upgradeFailures.WithLabelValues(stage).Inc()
}

// ============================================================================
//                              rendezvous
// ============================================================================

// Registration 记录 REGISTER 结果（ok 或错误状态名）
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

// SetActiveRegistrations 设置当前注册数
func (m *Metrics) SetActiveRegistrations(n int) {
	if m == nil {
		return
	}
	m.registrationsActive.Set(float64(n))
}

// Discover 记录 DISCOVER 结果
func (m *Metrics) Discover(result string) {
	if m == nil {
		return
	}
	m.discovers.WithLabelValues(result).Inc()
}

// PingRTT 记录一次出站 ping 的往返时间
func (m *Metrics) PingRTT(rtt time.Duration) {
	if m == nil {
		return
	}
	m.pingRTT.Observe(rtt.Seconds())
}

// ============================================================================
//                              HTTP 端点
// ============================================================================

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在 addr 上提供 /metrics，直到 ctx 取消
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.ServeListener(ctx, ln)
}

// ServeListener 在已绑定的监听器上提供 /metrics
func (m *Metrics) ServeListener(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info("指标端点已启动", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
