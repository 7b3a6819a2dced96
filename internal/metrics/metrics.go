package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry and every metric the booking
// backend exports.  A nil *Collector is valid everywhere it is
// consumed; callers guard their updates so metrics stay optional.
type Collector struct {
	reg *prometheus.Registry

	ServicesGenerated prometheus.Counter
	SeatsBuilt        prometheus.Counter
	SeatsReleased     prometheus.Counter
	SweepCycles       prometheus.Counter
	SweepErrors       prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ServicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_services_generated_total",
			Help: "Total service instances generated by schedule expansion.",
		}),
		SeatsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_seats_built_total",
			Help: "Total seats materialized from layout templates.",
		}),
		SeatsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_seats_released_total",
			Help: "Total expired seat holds returned to the available pool.",
		}),
		SweepCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_sweep_cycles_total",
			Help: "Total hold-release sweep cycles executed.",
		}),
		SweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_sweep_errors_total",
			Help: "Total sweep cycles that failed and were retried next tick.",
		}),
	}

	reg.MustRegister(
		c.ServicesGenerated,
		c.SeatsBuilt,
		c.SeatsReleased,
		c.SweepCycles,
		c.SweepErrors,
	)
	return c
}

// Serve starts an HTTP server exposing /metrics on addr.  The caller
// owns the returned server and is responsible for shutting it down.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return srv
}
