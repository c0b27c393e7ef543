package diag

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// EchoMetrics counts echo responder traffic. It satisfies echo.Observer.
type EchoMetrics struct {
	received prometheus.Counter
	bytes    prometheus.Counter
	replied  prometheus.Counter
	failed   prometheus.Counter
}

// NewEchoMetrics registers the echo traffic counters on reg.
func NewEchoMetrics(reg prometheus.Registerer) *EchoMetrics {
	f := promauto.With(reg)
	return &EchoMetrics{
		received: f.NewCounter(prometheus.CounterOpts{
			Name: "ncp_echo_datagrams_received_total",
			Help: "Datagrams received by the echo responder.",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "ncp_echo_bytes_received_total",
			Help: "Payload bytes received by the echo responder.",
		}),
		replied: f.NewCounter(prometheus.CounterOpts{
			Name: "ncp_echo_replies_sent_total",
			Help: "Echo replies sent.",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Name: "ncp_echo_reply_failures_total",
			Help: "Echo replies that could not be sent.",
		}),
	}
}

func (m *EchoMetrics) Received(n int) {
	m.received.Inc()
	m.bytes.Add(float64(n))
}

func (m *EchoMetrics) Replied(int) { m.replied.Inc() }

func (m *EchoMetrics) Failed() { m.failed.Inc() }

// defaultScrapeTimeout bounds a scrape's counter query, which otherwise has
// no deadline when the query timeout is 0.
const defaultScrapeTimeout = 10 * time.Second

// CounterCollector exports NCP MAC counters, queried fresh on every scrape.
type CounterCollector struct {
	querier Querier
	logger  *zap.SugaredLogger
	timeout time.Duration

	counter *prometheus.Desc
	up      *prometheus.Desc
}

// NewCounterCollector creates a collector backed by q.
func NewCounterCollector(q Querier, logger *zap.SugaredLogger) *CounterCollector {
	return &CounterCollector{
		querier: q,
		logger:  logger,
		timeout: defaultScrapeTimeout,
		counter: prometheus.NewDesc(
			"ncp_counter",
			"NCP MAC layer counter as reported by the status tool",
			[]string{"name"},
			nil,
		),
		up: prometheus.NewDesc(
			"ncp_query_up",
			"1 when the last NCP status query returned the counter block",
			nil,
			nil,
		),
	}
}

func (c *CounterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.counter
	ch <- c.up
}

func (c *CounterCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	record, err := c.querier.Query(ctx)
	if err != nil {
		c.logger.Warnw("ncp counter scrape failed", "error", err)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
	} else {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	}

	for name, raw := range record {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.logger.Debugw("skipping non-numeric ncp counter", "name", name, "value", raw)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.counter, prometheus.GaugeValue, v, name)
	}
}
