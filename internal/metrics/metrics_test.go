package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(OrdersTotal.WithLabelValues("placed"))
	RecordOrder("placed")
	assert.Equal(t, before+1, testutil.ToFloat64(OrdersTotal.WithLabelValues("placed")))

	SetOutboxDepth(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(OutboxEntries.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(OutboxEntries.WithLabelValues("failed")))

	RecordImport("created", 2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(ImportProducts.WithLabelValues("created")), 2.0)

	TrackGateway("ping")(time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(GatewayDuration))
}
