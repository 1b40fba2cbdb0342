package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// Dispatch groups the dispatch engine counters.
type Dispatch struct {
	SearchesTotal       prometheus.Counter
	AssignmentsTotal    prometheus.Counter
	TimeoutsTotal       prometheus.Counter
	ExhaustedTotal      prometheus.Counter
	ClaimConflictsTotal prometheus.Counter
	StaleJobsTotal      prometheus.Counter
}

// NewDispatch creates and registers the dispatch counters. A nil registerer
// falls back to the default one.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	d := &Dispatch{
		SearchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_searches_total",
			Help: "Total number of driver search attempts processed",
		}),
		AssignmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Total number of drivers assigned to orders",
		}),
		TimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_assignment_timeouts_total",
			Help: "Total number of assignments rejected by response timeout",
		}),
		ExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_exhausted_total",
			Help: "Total number of orders cancelled after exhausting dispatch attempts",
		}),
		ClaimConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_claim_conflicts_total",
			Help: "Total number of driver claims lost to a concurrent search",
		}),
		StaleJobsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_stale_jobs_total",
			Help: "Total number of jobs skipped because their state was already resolved",
		}),
	}
	reg.MustRegister(
		d.SearchesTotal, d.AssignmentsTotal, d.TimeoutsTotal,
		d.ExhaustedTotal, d.ClaimConflictsTotal, d.StaleJobsTotal,
	)
	return d
}

// NewDispatchUnregistered creates the dispatch counters without registering
// them, handy for tests.
func NewDispatchUnregistered() *Dispatch {
	return NewDispatch(prometheus.NewRegistry())
}
