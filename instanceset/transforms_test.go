package instanceset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/resolver"
	"github.com/godosou/dfsql/spec"
)

func measureSet() *spec.InstanceSet {
	return &spec.InstanceSet{
		Measures: []spec.MeasureInstance{
			{Spec: spec.New("bookings"), Column: spec.ColumnAssociation{ColumnName: "bookings"}, AggState: spec.NonAggregated},
		},
		Dimensions: []spec.DimensionInstance{
			{Spec: spec.New("is_instant", spec.EntityLink("listing")), Column: spec.ColumnAssociation{ColumnName: "listing__is_instant"}},
		},
		Entities: []spec.EntityInstance{
			{Spec: spec.New("listing"), Column: spec.ColumnAssociation{ColumnName: "listing_id"}},
		},
	}
}

func TestApplyThreadsThroughTransformsInOrder(t *testing.T) {
	set := measureSet()
	out, err := Apply(set,
		PromoteAllMeasuresTo(spec.Partial),
		PromoteAllMeasuresTo(spec.Complete),
	)
	require.NoError(t, err)
	require.Equal(t, spec.Complete, out.Measures[0].AggState)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	sentinel := errors.New("boom")
	boom := func(*spec.InstanceSet) (*spec.InstanceSet, error) {
		return nil, sentinel
	}
	ranAfter := false
	noop := func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		ranAfter = true
		return s, nil
	}

	_, err := Apply(measureSet(), boom, noop)
	require.ErrorIs(t, err, sentinel)
	require.False(t, ranAfter, "Apply must not run transforms after the first error")
}

func TestChangeAssociatedColumnsIsIdempotent(t *testing.T) {
	r := resolver.NewDefaultResolver()
	transform := ChangeAssociatedColumns(r)

	set := measureSet()
	once, err := transform(set)
	require.NoError(t, err)
	twice, err := transform(once)
	require.NoError(t, err)

	require.Equal(t, once.Measures[0].Column, twice.Measures[0].Column)
	require.Equal(t, "bookings", once.Measures[0].Column.ColumnName)
	require.Equal(t, "listing__is_instant", once.Dimensions[0].Column.ColumnName)
}

func TestChangeAssociatedColumnsLeavesMetadataAlone(t *testing.T) {
	set := spec.Empty()
	set.Metadata = []spec.MetadataInstance{
		{Spec: spec.New("row_uuid"), Column: spec.ColumnAssociation{ColumnName: "generated_uuid"}},
	}
	out, err := ChangeAssociatedColumns(resolver.NewDefaultResolver())(set)
	require.NoError(t, err)
	require.Equal(t, "generated_uuid", out.Metadata[0].Column.ColumnName)
}

func TestFilterElementsIncludeExclude(t *testing.T) {
	set := measureSet()
	bookingsSpec := spec.New("bookings")

	included, err := FilterElements(spec.NewSet(bookingsSpec), nil)(set)
	require.NoError(t, err)
	require.Len(t, included.Measures, 1)
	require.Empty(t, included.Dimensions)
	require.Empty(t, included.Entities)

	excluded, err := FilterElements(nil, spec.NewSet(bookingsSpec))(set)
	require.NoError(t, err)
	require.Empty(t, excluded.Measures)
	require.Len(t, excluded.Dimensions, 1)
}

func TestFilterLinkablesWithLeadingLinkDropsMatchingPath(t *testing.T) {
	set := &spec.InstanceSet{
		Dimensions: []spec.DimensionInstance{
			{Spec: spec.New("is_instant", spec.EntityLink("listing"))},
			{Spec: spec.New("is_lux", spec.EntityLink("host"))},
		},
	}
	out, err := FilterLinkablesWithLeadingLink(spec.EntityLink("listing"))(set)
	require.NoError(t, err)
	require.Len(t, out.Dimensions, 1)
	require.Equal(t, "is_lux", out.Dimensions[0].Spec.ElementName)
}

func TestAddLinkToLinkablesPrependsEveryLinkable(t *testing.T) {
	set := &spec.InstanceSet{
		Dimensions: []spec.DimensionInstance{{Spec: spec.New("is_instant")}},
		Entities:   []spec.EntityInstance{{Spec: spec.New("host")}},
	}
	out, err := AddLinkToLinkables(spec.EntityLink("listing"))(set)
	require.NoError(t, err)
	lead, ok := out.Dimensions[0].Spec.LeadingLink()
	require.True(t, ok)
	require.Equal(t, spec.EntityLink("listing"), lead)
	lead, ok = out.Entities[0].Spec.LeadingLink()
	require.True(t, ok)
	require.Equal(t, spec.EntityLink("listing"), lead)
}

func TestChangeMeasureAggregationStateRejectsUnmappedState(t *testing.T) {
	set := measureSet()
	out, err := ChangeMeasureAggregationState(map[spec.AggregationState]spec.AggregationState{
		spec.NonAggregated: spec.Partial,
	})(set)
	require.NoError(t, err)
	require.Equal(t, spec.Partial, out.Measures[0].AggState)

	again, err := ChangeMeasureAggregationState(map[spec.AggregationState]spec.AggregationState{
		spec.NonAggregated: spec.Complete,
	})(out)
	require.ErrorIs(t, err, dfsqlerr.ErrUnknownAggregationState, "mapping has no entry for PARTIAL")
	require.Nil(t, again)
}

func TestUpdateMeasureFillNullsWithMatchesBySpecKey(t *testing.T) {
	set := measureSet()
	key := set.Measures[0].Spec.Key()
	out, err := UpdateMeasureFillNullsWith(map[string]int64{key: 0})(set)
	require.NoError(t, err)
	require.NotNil(t, out.Measures[0].FillNullsWith)
	require.Equal(t, int64(0), *out.Measures[0].FillNullsWith)
}

func TestAliasAggregatedMeasuresRenamesElement(t *testing.T) {
	set := measureSet()
	key := set.Measures[0].Spec.Key()
	out, err := AliasAggregatedMeasures(map[string]string{key: "total_bookings"})(set)
	require.NoError(t, err)
	require.Equal(t, "total_bookings", out.Measures[0].Spec.ElementName)
}

func TestRemoveMeasuresAndMetrics(t *testing.T) {
	set := measureSet()
	set.Metrics = []spec.MetricInstance{{Spec: spec.New("booking_rate")}}

	noMeasures, err := RemoveMeasures()(set)
	require.NoError(t, err)
	require.Empty(t, noMeasures.Measures)
	require.Len(t, noMeasures.Metrics, 1)

	noMetrics, err := RemoveMetrics()(set)
	require.NoError(t, err)
	require.Empty(t, noMetrics.Metrics)
	require.Len(t, noMetrics.Measures, 1)
}

func TestAddGroupByMetricAppends(t *testing.T) {
	set := spec.Empty()
	gb := spec.GroupByMetricInstance{Spec: spec.New("booking_rate"), EntityLink: spec.EntityLink("listing")}
	out, err := AddGroupByMetric(gb)(set)
	require.NoError(t, err)
	require.Len(t, out.GroupByMetrics, 1)
	require.Equal(t, spec.EntityLink("listing"), out.GroupByMetrics[0].EntityLink)
}
