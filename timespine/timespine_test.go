package timespine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

func dailySpine() *Service {
	return NewService(StaticSource{Table: "dim_date", Column: "ds", Granularity: spec.GranularityDay})
}

func TestMakeTimeSpineDatasetAtBaseGranularityProjectsDirectly(t *testing.T) {
	svc := dailySpine()
	sel, err := svc.MakeTimeSpineDataset("spine", spec.GranularityDay, nil)
	require.NoError(t, err)
	require.Empty(t, sel.GroupBy)
	require.Equal(t, sqlplan.ColumnRef{TableAlias: "spine", ColumnName: "ds"}, sel.SelectColumns[0].Expr)
}

func TestMakeTimeSpineDatasetAtCoarserGranularityTruncatesAndGroups(t *testing.T) {
	svc := dailySpine()
	sel, err := svc.MakeTimeSpineDataset("spine", spec.GranularityMonth, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ds"}, sel.GroupBy)
	trunc, ok := sel.SelectColumns[0].Expr.(sqlplan.DateTruncExpr)
	require.True(t, ok)
	require.Equal(t, "month", trunc.Granularity)
}

func TestMakeTimeSpineDatasetFinerThanBaseErrors(t *testing.T) {
	svc := NewService(StaticSource{Table: "dim_date", Column: "ds", Granularity: spec.GranularityMonth})
	_, err := svc.MakeTimeSpineDataset("spine", spec.GranularityDay, nil)
	require.ErrorIs(t, err, dfsqlerr.ErrTimeSpineGranularityTooFine)
}

func TestMakeTimeSpineDatasetAppliesRangeRestriction(t *testing.T) {
	svc := dailySpine()
	sel, err := svc.MakeTimeSpineDataset("spine", spec.GranularityDay, &Range{Start: "2024-01-01", End: "2024-01-31"})
	require.NoError(t, err)
	require.NotNil(t, sel.Where)
	between, ok := sel.Where.(sqlplan.BetweenExpr)
	require.True(t, ok)
	require.Equal(t, sqlplan.Literal{Value: "2024-01-01"}, between.Low)
}
