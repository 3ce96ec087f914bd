package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imellstorm/wptest/internal/types"
)

func TestRejected_LabelsByKind(t *testing.T) {
	m := NopMetrics()

	m.Rejected(OpSettle, types.Errorf(types.ErrOfferTooLow, "too low"))
	m.Rejected(OpSettle, types.ErrOfferTooLow)
	m.Rejected(OpSettle, errors.New("disk on fire"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues(OpSettle, string(types.KindOfferTooLow))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues(OpSettle, "INTERNAL")))
}

func TestPrometheusMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := PrometheusMetrics(reg)

	m.BidsPlaced.Inc()
	m.Since(OpPlaceBid, time.Now())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["barter_bids_placed_total"])
	assert.True(t, names["barter_operation_duration_seconds"])
}
