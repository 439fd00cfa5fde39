// Package metrics holds the Prometheus collectors of the monitor.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// AirWaveRequestsTotal counts AirWave HTTP exchanges by endpoint and status
	// code, "error" when no response arrived.
	AirWaveRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwave_requests_total",
		Help: "Total number of requests sent to AirWave",
	}, []string{"endpoint", "status"})

	AirWaveRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airwave_request_duration_seconds",
		Help:    "AirWave request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// PollRunsTotal counts poll runs by result: success, failure or rejected.
	PollRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwave_poll_runs_total",
		Help: "Total number of AP list poll runs",
	}, []string{"result"})

	PollAccessPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airwave_poll_access_points",
		Help: "Number of access points seen by the last successful poll",
	})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airwave_circuit_breaker_state",
		Help: "State of the AirWave circuit breaker (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})
)

const (
	PollSuccess  = "success"
	PollFailure  = "failure"
	PollRejected = "rejected"
)

// RequestObserver feeds AirWave client requests into the request collectors.
type RequestObserver struct{}

func (RequestObserver) ObserveRequest(endpoint string, statusCode int, duration time.Duration, err error) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	AirWaveRequestsTotal.WithLabelValues(endpoint, status).Inc()
	AirWaveRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPoll counts a poll run and, for successful ones, the APs it saw.
func RecordPoll(result string, apCount int) {
	PollRunsTotal.WithLabelValues(result).Inc()
	if result == PollSuccess {
		PollAccessPoints.Set(float64(apCount))
	}
}

func SetBreakerState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
