package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestRecordJoinLabelsOutcome(t *testing.T) {
	RecordJoin(JoinAdmitted)
	RecordJoin(JoinRejected)
	RecordJoin(JoinRejected)

	family := gather(t, "events_service_capacity_join_attempts_total")
	require.NotNil(t, family)

	counts := make(map[string]float64)
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				counts[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	require.GreaterOrEqual(t, counts[JoinAdmitted], 1.0)
	require.GreaterOrEqual(t, counts[JoinRejected], 2.0)
}

func TestRecordLockWaitObserves(t *testing.T) {
	RecordLockWait(5 * time.Millisecond)

	family := gather(t, "events_service_capacity_event_lock_wait_seconds")
	require.NotNil(t, family)
	require.NotEmpty(t, family.GetMetric())
	require.GreaterOrEqual(t, family.GetMetric()[0].GetHistogram().GetSampleCount(), uint64(1))
}
