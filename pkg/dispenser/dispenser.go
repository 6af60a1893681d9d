// Package dispenser issues turn tickets drawn from a shared sequence.Source.
package dispenser

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/sawdustofmind/adv-sync/pkg/sequence"
)

const DefaultName = "default"

var (
	pTicketsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispenser_tickets_issued_total",
		Help: "Turn tickets handed out, per dispenser",
	}, []string{"dispenser"})

	pAdvanceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispenser_advance_failures_total",
		Help: "Failed ticket requests, per dispenser and failure kind [exhausted, fatal, other]",
	}, []string{"dispenser", "kind"})
)

// Dispenser is a stateless front for a shared sequence.Source. Any number of
// dispensers may draw from the same source; they never hand out the same
// turn number because the source does not.
type Dispenser struct {
	name   string
	source sequence.Source
	log    logrus.FieldLogger
	issued prometheus.Counter
}

type Option func(*Dispenser)

// WithName labels the dispenser in logs and metrics.
func WithName(name string) Option {
	return func(d *Dispenser) { d.name = name }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dispenser) { d.log = log }
}

// New binds a dispenser to src. The dispenser does not own src.
func New(src sequence.Source, opts ...Option) *Dispenser {
	d := &Dispenser{
		name:   DefaultName,
		source: src,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("dispenser", d.name)
	d.issued = pTicketsIssued.WithLabelValues(d.name)
	return d
}

func (d *Dispenser) Name() string { return d.name }

// NextTicket advances the shared source exactly once and wraps the result.
// Errors from the source are returned as is (wrapped); nothing is retried.
func (d *Dispenser) NextTicket() (TurnTicket, error) {
	n, err := d.source.Advance()
	if err != nil {
		d.failed(err)
		return TurnTicket{}, fmt.Errorf("dispenser %s: %w", d.name, err)
	}
	d.issued.Inc()
	return TurnTicket{turnNumber: n}, nil
}

func (d *Dispenser) failed(err error) {
	switch {
	case errors.Is(err, sequence.ErrExhausted):
		pAdvanceFailures.WithLabelValues(d.name, "exhausted").Inc()
		d.log.WithError(err).Warn("sequence exhausted")
	case sequence.IsFatal(err):
		pAdvanceFailures.WithLabelValues(d.name, "fatal").Inc()
		d.log.WithError(err).Error("sequence can no longer be trusted")
	default:
		pAdvanceFailures.WithLabelValues(d.name, "other").Inc()
		d.log.WithError(err).Error("advance failed")
	}
}
