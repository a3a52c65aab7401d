package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/spec"
)

func TestInMemoryLookupRoundTrip(t *testing.T) {
	m := NewInMemory()
	m.Metrics["booking_rate"] = MetricDefinition{Name: "booking_rate", Type: MetricRatio}
	m.SemanticModels["bookings_source"] = SemanticModelDefinition{Name: "bookings_source"}
	m.AggTimeDims["bookings"] = spec.NewTimeDimension("ds", spec.GranularityDay)

	def, ok := m.GetMetric("booking_rate")
	require.True(t, ok)
	require.Equal(t, MetricRatio, def.Type)

	model, ok := m.GetSemanticModel("bookings_source")
	require.True(t, ok)
	require.Equal(t, "bookings_source", model.Name)

	dim, ok := m.AggTimeDimensionForMeasure("bookings")
	require.True(t, ok)
	require.True(t, dim.IsTimeDimension())
}

func TestInMemoryLookupMissingKeyReturnsFalse(t *testing.T) {
	m := NewInMemory()
	_, ok := m.GetMetric("nonexistent")
	require.False(t, ok)
}
