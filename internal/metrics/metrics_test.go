package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestRequestObserver(t *testing.T) {
	okBefore := testutil.ToFloat64(AirWaveRequestsTotal.WithLabelValues("ap_list.xml", "200"))
	errBefore := testutil.ToFloat64(AirWaveRequestsTotal.WithLabelValues("ap_list.xml", "error"))

	var o RequestObserver
	o.ObserveRequest("ap_list.xml", 200, 20*time.Millisecond, nil)
	o.ObserveRequest("ap_list.xml", 200, 30*time.Millisecond, nil)
	o.ObserveRequest("ap_list.xml", 0, time.Second, errors.New("connection refused"))

	assert.Equal(t, okBefore+2, testutil.ToFloat64(AirWaveRequestsTotal.WithLabelValues("ap_list.xml", "200")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(AirWaveRequestsTotal.WithLabelValues("ap_list.xml", "error")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(AirWaveRequestDuration), 1)
}

func TestRecordPoll(t *testing.T) {
	successBefore := testutil.ToFloat64(PollRunsTotal.WithLabelValues(PollSuccess))
	failureBefore := testutil.ToFloat64(PollRunsTotal.WithLabelValues(PollFailure))

	RecordPoll(PollSuccess, 4)
	assert.Equal(t, float64(4), testutil.ToFloat64(PollAccessPoints))

	RecordPoll(PollFailure, 0)
	assert.Equal(t, float64(4), testutil.ToFloat64(PollAccessPoints), "failed polls keep the last AP count")

	assert.Equal(t, successBefore+1, testutil.ToFloat64(PollRunsTotal.WithLabelValues(PollSuccess)))
	assert.Equal(t, failureBefore+1, testutil.ToFloat64(PollRunsTotal.WithLabelValues(PollFailure)))
}

func TestSetBreakerState(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}
	for _, tc := range tests {
		SetBreakerState("test", tc.state)
		assert.Equal(t, tc.want, testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test")), tc.state.String())
	}
}
