package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom reports cache events as Prometheus counters and a length gauge.
type Prom struct {
	setNew    prometheus.Counter
	setUpdate prometheus.Counter
	getHit    prometheus.Counter
	getMiss   prometheus.Counter
	evicted   prometheus.Counter
	removed   prometheus.Counter
	length    prometheus.Gauge
}

// NewProm creates the collectors under namespace and registers them on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewProm(namespace string, reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	makeC := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	p := &Prom{
		setNew:    makeC("set_new_total", "Number of new keys set"),
		setUpdate: makeC("set_update_total", "Number of existing keys overwritten"),
		getHit:    makeC("get_hit_total", "Number of cache hits"),
		getMiss:   makeC("get_miss_total", "Number of cache misses"),
		evicted:   makeC("evicted_total", "Number of entries evicted for capacity"),
		removed:   makeC("removed_total", "Number of entries removed explicitly"),
		length: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Current number of entries held",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.setNew, p.setUpdate, p.getHit, p.getMiss, p.evicted, p.removed, p.length,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prom) IncSetNew()    { p.setNew.Inc() }
func (p *Prom) IncSetUpdate() { p.setUpdate.Inc() }
func (p *Prom) IncGetHit()    { p.getHit.Inc() }
func (p *Prom) IncGetMiss()   { p.getMiss.Inc() }
func (p *Prom) IncEvicted()   { p.evicted.Inc() }
func (p *Prom) IncRemoved()   { p.removed.Inc() }

func (p *Prom) AddLen(delta int) {
	if delta != 0 {
		p.length.Add(float64(delta))
	}
}
