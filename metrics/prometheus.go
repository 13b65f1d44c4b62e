package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"diagramgen/pipeline"
)

// PipelineCollector records pipeline events as Prometheus metrics. It is a
// pipeline.Observer.
type PipelineCollector struct {
	runsTotal     *prometheus.CounterVec
	stagesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	roundsTaken   prometheus.Histogram
	runDuration   *prometheus.HistogramVec
	inFlight      prometheus.Gauge

	mu   sync.Mutex
	open map[string]openStage
}

type openStage struct {
	state   pipeline.State
	elapsed time.Duration
}

var _ pipeline.Observer = (*PipelineCollector)(nil)

// NewPipelineCollector registers the pipeline metrics with reg.
func NewPipelineCollector(reg prometheus.Registerer) *PipelineCollector {
	f := promauto.With(reg)
	return &PipelineCollector{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diagramgen_runs_total",
				Help: "Total number of finished pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		stagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diagramgen_stage_transitions_total",
				Help: "Total number of state transitions by state",
			},
			[]string{"state"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diagramgen_stage_duration_seconds",
				Help:    "Time spent in each pipeline state",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 240},
			},
			[]string{"state"},
		),
		roundsTaken: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "diagramgen_rounds_taken",
				Help:    "Refinement rounds per completed run",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diagramgen_run_duration_seconds",
				Help:    "Wall time of pipeline runs",
				Buckets: prometheus.ExponentialBuckets(5, 2, 9),
			},
			[]string{"outcome"},
		),
		inFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "diagramgen_runs_in_flight",
				Help: "Number of runs currently executing",
			},
		),
		open: make(map[string]openStage),
	}
}

// OnEvent updates counters and closes the previous state's timer.
func (c *PipelineCollector) OnEvent(e pipeline.Event) {
	c.stagesTotal.WithLabelValues(string(e.State)).Inc()

	c.mu.Lock()
	prev, seen := c.open[e.RunID]
	if e.State.Terminal() {
		delete(c.open, e.RunID)
	} else {
		c.open[e.RunID] = openStage{state: e.State, elapsed: e.Elapsed}
	}
	c.mu.Unlock()

	if seen {
		c.stageDuration.WithLabelValues(string(prev.state)).Observe((e.Elapsed - prev.elapsed).Seconds())
	} else {
		c.inFlight.Inc()
	}

	switch e.State {
	case pipeline.StateAccepted:
		c.runsTotal.WithLabelValues("approved").Inc()
	case pipeline.StateRoundsExhausted:
		c.runsTotal.WithLabelValues("exhausted").Inc()
	case pipeline.StateFailed:
		c.runsTotal.WithLabelValues("failed").Inc()
		c.runDuration.WithLabelValues("failed").Observe(e.Elapsed.Seconds())
	case pipeline.StateCompleted:
		c.roundsTaken.Observe(float64(e.Round))
		c.runDuration.WithLabelValues("completed").Observe(e.Elapsed.Seconds())
	}
	if e.State.Terminal() {
		c.inFlight.Dec()
	}
}
