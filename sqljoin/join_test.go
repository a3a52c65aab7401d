package sqljoin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/sqlplan"
)

func TestBaseOutputBuildsEntityEquality(t *testing.T) {
	jd := BaseOutput(sqlplan.InnerJoin, &sqlplan.TableRef{}, "t1", "t0", "listing_id", "listing_id")
	require.Equal(t, sqlplan.InnerJoin, jd.Type)
	require.Equal(t, "t1", jd.RightAlias)
	require.Equal(t, "(t0.listing_id = t1.listing_id)", jd.OnCondition.String())
}

func TestCumulativeFixedWindowBuildsIntervalBetween(t *testing.T) {
	jd := CumulativeFixedWindow(&sqlplan.TableRef{}, "t1", "spine", "ds", "t0", "ds", 7, "day")
	require.Equal(t, "(spine.ds BETWEEN t0.ds AND (t0.ds + interval '7 day'))", jd.OnCondition.String())
}

func TestCumulativeFixedWindowZeroCountUsesBareUpperBound(t *testing.T) {
	jd := CumulativeFixedWindow(&sqlplan.TableRef{}, "t1", "spine", "ds", "t0", "ds", 0, "day")
	require.Equal(t, "(spine.ds BETWEEN t0.ds AND t0.ds)", jd.OnCondition.String())
}

func TestCumulativeWindowlessBuildsInequality(t *testing.T) {
	jd := CumulativeWindowless(&sqlplan.TableRef{}, "t1", "spine", "ds", "t0", "ds")
	require.Equal(t, "spine.ds >= t0.ds", jd.OnCondition.String())
}

func TestCumulativeGrainToDateTruncatesSpineSide(t *testing.T) {
	jd := CumulativeGrainToDate(&sqlplan.TableRef{}, "t1", "spine", "ds", "t0", "ds", "month")
	require.Equal(t, "(t0.ds BETWEEN DATE_TRUNC('month', spine.ds) AND spine.ds)", jd.OnCondition.String())
}

func TestJoinToTimeSpineAlignedBuildsEquality(t *testing.T) {
	jd := JoinToTimeSpineAligned(sqlplan.LeftJoin, &sqlplan.TableRef{}, "t1", "spine", "ds", "t0", "ds")
	require.Equal(t, sqlplan.LeftJoin, jd.Type)
	require.Equal(t, "(spine.ds = t0.ds)", jd.OnCondition.String())
}

func TestColumnEqualityAndsAllPairs(t *testing.T) {
	jd := ColumnEquality(sqlplan.InnerJoin, &sqlplan.TableRef{}, "t1", "t0", [][2]string{
		{"listing_id", "listing_id"},
		{"host_id", "host_id"},
	})
	require.Equal(t, "((t0.listing_id = t1.listing_id) AND (t0.host_id = t1.host_id))", jd.OnCondition.String())
}

func TestCombineDatasetsCoalescesPriorAliases(t *testing.T) {
	jd := CombineDatasets(sqlplan.FullOuterJoin, &sqlplan.TableRef{}, "t2", []string{"t0", "t1"}, "t2", []string{"listing_id"})
	require.Equal(t, "(COALESCE(t0.listing_id, t1.listing_id) = t2.listing_id)", jd.OnCondition.String())
}

func TestConversionBuildsEntityAndWindowPredicate(t *testing.T) {
	jd := Conversion(&sqlplan.TableRef{}, "conv", "base", "conv",
		[][2]string{{"user_id", "user_id"}},
		"ds", "ds", 7, "day",
		[][2]string{{"campaign", "campaign"}},
	)
	require.Equal(t, sqlplan.InnerJoin, jd.Type)
	require.Equal(t,
		"(((base.user_id = conv.user_id) AND (conv.ds BETWEEN base.ds AND (base.ds + interval '7 day'))) AND (base.campaign = conv.campaign))",
		jd.OnCondition.String(),
	)
}
