package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

// Stats 带宽统计快照
type Stats struct {
	TotalIn  int64   // 总入站字节
	TotalOut int64   // 总出站字节
	RateIn   float64 // 入站速率（字节/秒）
	RateOut  float64 // 出站速率（字节/秒）
}

// protoMeter 单个协议的计数
type protoMeter struct {
	in, out         atomic.Int64
	inRate, outRate *RateMeter
}

// BandwidthCounter 按协议统计流字节数
//
// 同时实现 prometheus.Collector，采集时输出累计字节数与速率。
type BandwidthCounter struct {
	clock clock.Clock

	totalIn, totalOut         atomic.Int64
	totalInRate, totalOutRate *RateMeter

	mu     sync.RWMutex
	protos map[types.ProtocolID]*protoMeter

	bytesDesc *prometheus.Desc
	rateDesc  *prometheus.Desc
}

var _ prometheus.Collector = (*BandwidthCounter)(nil)

// NewBandwidthCounter 创建带宽计数器
func NewBandwidthCounter(clk clock.Clock) *BandwidthCounter {
	if clk == nil {
		clk = clock.New()
	}
	return &BandwidthCounter{
		clock:        clk,
		totalInRate:  NewRateMeter(clk),
		totalOutRate: NewRateMeter(clk),
		protos:       make(map[types.ProtocolID]*protoMeter),
		bytesDesc: prometheus.NewDesc(
			namespace+"_stream_bytes_total",
			"Bytes transferred over negotiated streams.",
			[]string{"protocol", "direction"}, nil),
		rateDesc: prometheus.NewDesc(
			namespace+"_stream_bytes_per_second",
			"Average stream throughput over the last minute.",
			[]string{"protocol", "direction"}, nil),
	}
}

func (bwc *BandwidthCounter) meter(proto types.ProtocolID) *protoMeter {
	bwc.mu.RLock()
	m := bwc.protos[proto]
	bwc.mu.RUnlock()
	if m != nil {
		return m
	}

	bwc.mu.Lock()
	defer bwc.mu.Unlock()
	if m = bwc.protos[proto]; m == nil {
		m = &protoMeter{inRate: NewRateMeter(bwc.clock), outRate: NewRateMeter(bwc.clock)}
		bwc.protos[proto] = m
	}
	return m
}

// LogSentStream 记录流发送的字节数
func (bwc *BandwidthCounter) LogSentStream(size int64, proto types.ProtocolID) {
	bwc.totalOut.Add(size)
	bwc.totalOutRate.Add(size)
	m := bwc.meter(proto)
	m.out.Add(size)
	m.outRate.Add(size)
}

// LogRecvStream 记录流接收的字节数
func (bwc *BandwidthCounter) LogRecvStream(size int64, proto types.ProtocolID) {
	bwc.totalIn.Add(size)
	bwc.totalInRate.Add(size)
	m := bwc.meter(proto)
	m.in.Add(size)
	m.inRate.Add(size)
}

// GetBandwidthTotals 返回总带宽统计
func (bwc *BandwidthCounter) GetBandwidthTotals() Stats {
	return Stats{
		TotalIn:  bwc.totalIn.Load(),
		TotalOut: bwc.totalOut.Load(),
		RateIn:   bwc.totalInRate.Rate(),
		RateOut:  bwc.totalOutRate.Rate(),
	}
}

// GetBandwidthForProtocol 返回协议带宽统计
func (bwc *BandwidthCounter) GetBandwidthForProtocol(proto types.ProtocolID) Stats {
	bwc.mu.RLock()
	m := bwc.protos[proto]
	bwc.mu.RUnlock()
	if m == nil {
		return Stats{}
	}
	return Stats{
		TotalIn:  m.in.Load(),
		TotalOut: m.out.Load(),
		RateIn:   m.inRate.Rate(),
		RateOut:  m.outRate.Rate(),
	}
}

// TrimIdle 清理 since 之后没有流量的协议
func (bwc *BandwidthCounter) TrimIdle(since time.Time) {
	bwc.mu.Lock()
	defer bwc.mu.Unlock()
	for proto, m := range bwc.protos {
		if m.inRate.LastUpdate().Before(since) && m.outRate.LastUpdate().Before(since) {
			delete(bwc.protos, proto)
		}
	}
}

// Describe 实现 prometheus.Collector
func (bwc *BandwidthCounter) Describe(ch chan<- *prometheus.Desc) {
	ch <- bwc.bytesDesc
	ch <- bwc.rateDesc
}

// Collect 实现 prometheus.Collector
func (bwc *BandwidthCounter) Collect(ch chan<- prometheus.Metric) {
	bwc.mu.RLock()
	defer bwc.mu.RUnlock()
	for proto, m := range bwc.protos {
		p := string(proto)
		ch <- prometheus.MustNewConstMetric(bwc.bytesDesc, prometheus.CounterValue, float64(m.in.Load()), p, "in")
		ch <- prometheus.MustNewConstMetric(bwc.bytesDesc, prometheus.CounterValue, float64(m.out.Load()), p, "out")
		ch <- prometheus.MustNewConstMetric(bwc.rateDesc, prometheus.GaugeValue, m.inRate.Rate(), p, "in")
		ch <- prometheus.MustNewConstMetric(bwc.rateDesc, prometheus.GaugeValue, m.outRate.Rate(), p, "out")
	}
}
