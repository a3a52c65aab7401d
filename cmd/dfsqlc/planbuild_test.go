package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/dataflow"
)

func sampleCatalog() *catalogFile {
	return &catalogFile{
		TimeSpine: catalogTimeSpine{Table: "dim_date", Column: "ds", Granularity: "day"},
		SemanticModels: map[string]catalogSemanticModel{
			"bookings_source": {
				Table: "bookings_source",
				Measures: []catalogMeasure{
					{Name: "bookings", AggTimeDimension: "ds"},
				},
				Dimensions: []catalogDimension{
					{Name: "ds", Time: true, Granularity: "day"},
				},
				Entities: []string{"listing"},
			},
		},
		Metrics: map[string]catalogMetric{
			"bookings_total": {
				Type:          "simple",
				InputMeasures: []catalogInputMeasure{{Measure: "bookings"}},
			},
		},
	}
}

func TestBuildSourceDatasetProjectsCatalogModel(t *testing.T) {
	c := sampleCatalog()
	ds, err := buildSourceDataset(c, "bookings_source")
	require.NoError(t, err)
	require.Len(t, ds.InstanceSet.Measures, 1)
	require.Equal(t, "bookings", ds.InstanceSet.Measures[0].Column.ColumnName)
	require.Len(t, ds.InstanceSet.TimeDimensions, 1)
	require.Len(t, ds.InstanceSet.Entities, 1)
	require.Equal(t, "bookings_source", ds.SQLNode.Description()[len("source "):])
}

func TestBuildSourceDatasetRejectsUnknownModel(t *testing.T) {
	_, err := buildSourceDataset(sampleCatalog(), "nope")
	require.ErrorIs(t, err, errUnknownSemanticModel)
}

func TestBuildManifestResolvesAggTimeDimensionAndMetrics(t *testing.T) {
	c := sampleCatalog()
	m, err := buildManifest(c, "bookings_source")
	require.NoError(t, err)

	dim, ok := m.AggTimeDimensionForMeasure("bookings")
	require.True(t, ok)
	require.True(t, dim.IsTimeDimension())

	def, ok := m.GetMetric("bookings_total")
	require.True(t, ok)
	require.Len(t, def.InputMeasures, 1)
	require.Equal(t, "bookings", def.InputMeasures[0].MeasureSpec.ElementName)
}

func TestBuildPlanShapesReadAggregateComputeWrite(t *testing.T) {
	c := sampleCatalog()
	src, err := buildSourceDataset(c, "bookings_source")
	require.NoError(t, err)
	m, err := buildManifest(c, "bookings_source")
	require.NoError(t, err)

	root, err := buildPlan(src, m, planRequest{
		Metrics:     []string{"bookings_total"},
		GroupBy:     []string{"listing"},
		ResultTable: "query_result",
	})
	require.NoError(t, err)

	write, ok := root.(dataflow.WriteToResultTableNode)
	require.True(t, ok)
	require.Equal(t, "query_result", write.TableName)

	filter, ok := write.Parent.(dataflow.FilterElementsNode)
	require.True(t, ok)
	require.Len(t, filter.IncludeSpecs, 2)

	compute, ok := filter.Parent.(dataflow.ComputeMetricsNode)
	require.True(t, ok)
	require.Equal(t, "bookings_total", compute.Metrics[0].MetricRef)

	agg, ok := compute.Parent.(dataflow.AggregateMeasuresNode)
	require.True(t, ok)
	require.Len(t, agg.MetricInputMeasures, 1)
	require.Equal(t, "bookings", agg.MetricInputMeasures[0].MeasureSpec.ElementName)

	_, ok = agg.Parent.(dataflow.ReadSourceNode)
	require.True(t, ok)
}

func TestBuildPlanRejectsUnknownMetric(t *testing.T) {
	c := sampleCatalog()
	src, err := buildSourceDataset(c, "bookings_source")
	require.NoError(t, err)
	m, err := buildManifest(c, "bookings_source")
	require.NoError(t, err)

	_, err = buildPlan(src, m, planRequest{Metrics: []string{"nope"}, ResultTable: "t"})
	require.ErrorIs(t, err, errUnknownMetricRef)
}
