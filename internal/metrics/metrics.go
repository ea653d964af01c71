package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the solver
	Registry = prometheus.NewRegistry()
	// Iterations counts search iterations by worker
	Iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_iterations_total", Help: "Total search iterations."},
		[]string{"worker"},
	)
	// Improvements counts new bests by worker
	Improvements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_improvements_total", Help: "New best solutions found."},
		[]string{"worker"},
	)
	// Restarts counts patience-triggered jumps by worker
	Restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_restarts_total", Help: "Patience-triggered jumps."},
		[]string{"worker"},
	)
	// RepairFailures counts iterations reverted because no feasible
	// reinsertion existed
	RepairFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_repair_failures_total", Help: "Iterations reverted after an infeasible repair."},
		[]string{"worker"},
	)
	// BestCost tracks the best known cost per instance
	BestCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "solver_best_cost", Help: "Cost of the best known solution."},
		[]string{"instance"},
	)
	// OperatorWeight exposes the adaptive selector weights by kind and arm
	OperatorWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "solver_operator_weight", Help: "Adaptive operator weight."},
		[]string{"worker", "kind", "operator"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Iterations)
		Registry.MustRegister(Improvements)
		Registry.MustRegister(Restarts)
		Registry.MustRegister(RepairFailures)
		Registry.MustRegister(BestCost)
		Registry.MustRegister(OperatorWeight)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
