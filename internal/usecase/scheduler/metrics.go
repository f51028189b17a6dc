package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type schedulerMetrics struct {
	runs               prometheus.Counter
	transfersProcessed *prometheus.CounterVec
	dueTransfers       prometheus.Gauge
}

func newSchedulerMetrics(registerer prometheus.Registerer) *schedulerMetrics {
	factory := promauto.With(registerer)
	return &schedulerMetrics{
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "chainpay_scheduler_runs_total",
			Help: "number of completed due-transfer polling runs",
		}),
		transfersProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chainpay_scheduler_transfers_processed_total",
			Help: "number of due transfers processed, partitioned by result",
		}, []string{"result"}),
		dueTransfers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chainpay_scheduler_due_transfers",
			Help: "number of due transfers found by the last polling run",
		}),
	}
}
