package dataflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeSpineRangeNilWhenBothEndsEmpty(t *testing.T) {
	r := TimeRange{}
	require.Nil(t, r.TimeSpineRange())
}

func TestTimeSpineRangeCarriesStartAndEnd(t *testing.T) {
	r := TimeRange{Start: "2020-01-01", End: "2020-12-31", Adjustable: true}
	got := r.TimeSpineRange()
	require.NotNil(t, got)
	require.Equal(t, "2020-01-01", got.Start)
	require.Equal(t, "2020-12-31", got.End)
}

func TestJoinKindAndSemiAdditiveAggAreDistinctValues(t *testing.T) {
	require.NotEqual(t, JoinInner, JoinLeft)
	require.NotEqual(t, JoinLeft, JoinCross)
	require.NotEqual(t, SemiAdditiveMin, SemiAdditiveMax)
}
