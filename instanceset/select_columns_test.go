package instanceset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

func TestCreateSelectColumnsForInstancesOrderAndAlias(t *testing.T) {
	set := &spec.InstanceSet{
		Measures:   []spec.MeasureInstance{{Spec: spec.New("bookings"), Column: spec.ColumnAssociation{ColumnName: "bookings"}}},
		Dimensions: []spec.DimensionInstance{{Spec: spec.New("is_instant"), Column: spec.ColumnAssociation{ColumnName: "is_instant"}}},
	}
	cols := CreateSelectColumnsForInstances("t0", set, nil)
	require.Len(t, cols, 2)
	require.Equal(t, sqlplan.ColumnRef{TableAlias: "t0", ColumnName: "bookings"}, cols[0].Expr)
	require.Equal(t, "bookings", cols[0].Alias)
	require.Equal(t, sqlplan.ColumnRef{TableAlias: "t0", ColumnName: "is_instant"}, cols[1].Expr)
}

func TestCreateSelectColumnsForInstancesAppliesRename(t *testing.T) {
	m := spec.MeasureInstance{Spec: spec.New("bookings"), Column: spec.ColumnAssociation{ColumnName: "bookings"}}
	set := &spec.InstanceSet{Measures: []spec.MeasureInstance{m}}
	rename := map[string]string{m.Spec.Key(): "total_bookings"}

	cols := CreateSelectColumnsForInstances("t0", set, rename)
	require.Equal(t, "total_bookings", cols[0].Alias)
}

func TestCreateSelectColumnsWithMeasuresAggregatedWrapsAggFunc(t *testing.T) {
	set := &spec.InstanceSet{
		Measures: []spec.MeasureInstance{{Spec: spec.New("bookings"), Column: spec.ColumnAssociation{ColumnName: "bookings"}}},
	}
	aggFuncFor := func(spec.Spec) sqlplan.AggFunc { return sqlplan.AggSum }
	cols := CreateSelectColumnsWithMeasuresAggregated("t0", set, aggFuncFor, nil, nil)
	require.Len(t, cols, 1)
	agg, ok := cols[0].Expr.(sqlplan.AggregateExpr)
	require.True(t, ok)
	require.Equal(t, sqlplan.AggSum, agg.Func)
}

func TestCreateSelectColumnsWithMeasuresAggregatedPercentile(t *testing.T) {
	set := &spec.InstanceSet{
		Measures: []spec.MeasureInstance{{Spec: spec.New("p90_price"), Column: spec.ColumnAssociation{ColumnName: "price"}}},
	}
	aggFuncFor := func(spec.Spec) sqlplan.AggFunc { return sqlplan.AggPercentile }
	percentileFor := func(spec.Spec) float64 { return 0.9 }
	cols := CreateSelectColumnsWithMeasuresAggregated("t0", set, aggFuncFor, percentileFor, nil)
	agg := cols[0].Expr.(sqlplan.AggregateExpr)
	require.Equal(t, 0.9, agg.Percentile)
}

func TestNonMeasureColumnNamesExcludesMeasuresAndMetrics(t *testing.T) {
	set := &spec.InstanceSet{
		Measures:       []spec.MeasureInstance{{Column: spec.ColumnAssociation{ColumnName: "bookings"}}},
		Dimensions:     []spec.DimensionInstance{{Column: spec.ColumnAssociation{ColumnName: "is_instant"}}},
		TimeDimensions: []spec.TimeDimensionInstance{{Column: spec.ColumnAssociation{ColumnName: "ds"}}},
		Entities:       []spec.EntityInstance{{Column: spec.ColumnAssociation{ColumnName: "listing_id"}}},
		Metrics:        []spec.MetricInstance{{Column: spec.ColumnAssociation{ColumnName: "booking_rate"}}},
		Metadata:       []spec.MetadataInstance{{Column: spec.ColumnAssociation{ColumnName: "generated_uuid"}}},
	}
	names := NonMeasureColumnNames(set)
	require.ElementsMatch(t, []string{"is_instant", "ds", "listing_id", "generated_uuid"}, names)
}
