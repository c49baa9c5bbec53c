package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called from init() in each file of this package.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every collector of this package exactly once, on
// prometheus.DefaultRegisterer unless another registerer is given.
func MustRegister(reg ...prometheus.Registerer) {
	once.Do(func() {
		var r prometheus.Registerer = prometheus.DefaultRegisterer
		if len(reg) > 0 && reg[0] != nil {
			r = reg[0]
		}
		r.MustRegister(collectors...)
	})
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "none"
	}
	return s
}
