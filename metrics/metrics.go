// Package metrics exposes optimizer progress as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rwcarlsen/fabso/fdr"
)

// Collector holds the optimizer metrics.  Counters are summed over every
// trial; gauges carry a seed label so concurrent trials do not overwrite
// each other.
type Collector struct {
	GenerationsTotal prometheus.Counter
	EvaluationsTotal prometheus.Counter
	RestartsTotal    prometheus.Counter
	ReplacedTotal    prometheus.Counter
	BestValue        *prometheus.GaugeVec
	Inertia          *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		GenerationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fabso_generations_total",
			Help: "Total number of completed generations",
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fabso_evaluations_total",
			Help: "Total number of objective evaluations, restarts included",
		}),
		RestartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fabso_restarts_total",
			Help: "Total number of stagnation restarts",
		}),
		ReplacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fabso_archive_replacements_total",
			Help: "Total number of archive entries replaced",
		}),
		BestValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fabso_best_value",
			Help: "Global best fitness of the trial",
		}, []string{"seed"}),
		Inertia: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fabso_inertia",
			Help: "Inertia weight of the trial's last generation",
		}, []string{"seed"}),
	}

	for _, col := range []prometheus.Collector{
		c.GenerationsTotal,
		c.EvaluationsTotal,
		c.RestartsTotal,
		c.ReplacedTotal,
		c.BestValue,
		c.Inertia,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Trial returns the observer feeding c from the trial run with seed.
func (c *Collector) Trial(seed int64) fdr.Observer {
	label := strconv.FormatInt(seed, 10)
	return &trial{
		c:       c,
		best:    c.BestValue.WithLabelValues(label),
		inertia: c.Inertia.WithLabelValues(label),
	}
}

type trial struct {
	c       *Collector
	best    prometheus.Gauge
	inertia prometheus.Gauge
}

func (t *trial) Generation(g fdr.Generation) error {
	t.c.GenerationsTotal.Inc()
	t.c.EvaluationsTotal.Add(float64(g.Evals))
	t.c.ReplacedTotal.Add(float64(g.Replaced))
	if g.Restarted {
		t.c.RestartsTotal.Inc()
	}
	t.best.Set(g.Best.Val)
	t.inertia.Set(g.Inertia)
	return nil
}
