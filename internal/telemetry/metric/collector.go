package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Herman-H/Snake-Robot-Display/internal/shm"
)

// DiagnosticsSource is implemented by shm.Channel.
type DiagnosticsSource interface {
	Diagnostics() shm.Diagnostics
}

// Collector exports the raw control block of the shared region on every
// scrape.
type Collector struct {
	src DiagnosticsSource

	turn           *prometheus.Desc
	readHeartBeat  *prometheus.Desc
	writeHeartBeat *prometheus.Desc
	msgWritten     *prometheus.Desc
	msgRead        *prometheus.Desc
	iteration      *prometheus.Desc
	misses         *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src DiagnosticsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "region", name), help, nil, nil)
	}
	return &Collector{
		src:            src,
		turn:           desc("turn", "Raw turn token"),
		readHeartBeat:  desc("read_heartbeat", "Reader heartbeat counter"),
		writeHeartBeat: desc("write_heartbeat", "Writer heartbeat counter"),
		msgWritten:     desc("msg_written", "Writer finished flag"),
		msgRead:        desc("msg_read", "Reader released flag"),
		iteration:      desc("iteration", "Live publish counter"),
		misses:         desc("heartbeat_misses", "Consecutive polls without a writer heartbeat"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.turn
	ch <- c.readHeartBeat
	ch <- c.writeHeartBeat
	ch <- c.msgWritten
	ch <- c.msgRead
	ch <- c.iteration
	ch <- c.misses
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	d := c.src.Diagnostics()
	gauge := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	gauge(c.turn, float64(d.Turn))
	gauge(c.readHeartBeat, float64(d.ReadHeartBeat))
	gauge(c.writeHeartBeat, float64(d.WriteHeartBeat))
	gauge(c.msgWritten, boolValue(d.MsgWritten))
	gauge(c.msgRead, boolValue(d.MsgRead))
	gauge(c.iteration, float64(d.Iteration))
	gauge(c.misses, float64(d.Misses))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
