package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/arvault/arvault/internal/currency"
)

// Recorder receives exchange counters. Implementations must not block.
type Recorder interface {
	// Processed counts one recorded exchange attempt.
	Processed()
	// Volume adds the absolute amount moved in a currency.
	Volume(cur currency.Currency, amount decimal.Decimal)
	// Net adds the signed house position change in a currency.
	Net(cur currency.Currency, amount decimal.Decimal)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Processed()                                {}
func (Nop) Volume(currency.Currency, decimal.Decimal) {}
func (Nop) Net(currency.Currency, decimal.Decimal)    {}

// Prometheus exposes exchange.processed, exchange.volume.<currency> and
// exchange.net.<currency> as Prometheus series.
type Prometheus struct {
	processed prometheus.Counter
	volume    *prometheus.CounterVec
	net       *prometheus.GaugeVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "processed_total",
			Help:      "Exchange attempts recorded, successful or not.",
		}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "volume",
			Help:      "Amount exchanged per currency.",
		}, []string{"currency"}),
		net: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "net",
			Help:      "Net house position change per currency.",
		}, []string{"currency"}),
	}

	for _, c := range []prometheus.Collector{p.processed, p.volume, p.net} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Processed() {
	p.processed.Inc()
}

func (p *Prometheus) Volume(cur currency.Currency, amount decimal.Decimal) {
	v := amount.Abs().InexactFloat64()
	p.volume.WithLabelValues(string(cur)).Add(v)
}

func (p *Prometheus) Net(cur currency.Currency, amount decimal.Decimal) {
	p.net.WithLabelValues(string(cur)).Add(amount.InexactFloat64())
}
