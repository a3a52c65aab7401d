// Package sqljoin is the SQL-join builder: given annotated
// left/right datasets and a join intent, it produces a sqlplan.JoinDescription.
// It has no knowledge of instance sets; callers pass plain column names.
package sqljoin

import "github.com/godosou/dfsql/sqlplan"

func col(alias, name string) sqlplan.Expr {
	return sqlplan.ColumnRef{TableAlias: alias, ColumnName: name}
}

// BaseOutput builds the entity-equality join used by Join-on-entities:
// `left.entityCol = right.entityCol`, with the join type taken verbatim
// from the dataflow request.
func BaseOutput(joinType sqlplan.JoinType, right sqlplan.Node, rightAlias, leftAlias, leftEntityCol, rightEntityCol string) sqlplan.JoinDescription {
	return sqlplan.JoinDescription{
		Type:        joinType,
		Right:       right,
		RightAlias:  rightAlias,
		OnCondition: sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: col(leftAlias, leftEntityCol), Right: col(rightAlias, rightEntityCol)},
	}
}

// CumulativeFixedWindow builds the join-over-time-range predicate for a
// trailing window of windowCount/windowUnit:
// `spine.spineCol BETWEEN base.baseCol AND base.baseCol + interval 'N unit'`.
// The spine dataset is always the join's FROM side (left); base is the
// right side being gathered.
func CumulativeFixedWindow(right sqlplan.Node, rightAlias, spineAlias, spineCol, baseAlias, baseCol string, windowCount int, windowUnit string) sqlplan.JoinDescription {
	upper := sqlplan.Expr(col(baseAlias, baseCol))
	if windowCount > 0 {
		upper = sqlplan.IntervalAddExpr{Target: col(baseAlias, baseCol), Count: windowCount, Unit: windowUnit}
	}
	return sqlplan.JoinDescription{
		Type:        sqlplan.InnerJoin,
		Right:       right,
		RightAlias:  rightAlias,
		OnCondition: sqlplan.BetweenExpr{Target: col(spineAlias, spineCol), Low: col(baseAlias, baseCol), High: upper},
	}
}

// CumulativeWindowless builds the degenerate "all time" predicate:
// `spine.spineCol >= base.baseCol`.
func CumulativeWindowless(right sqlplan.Node, rightAlias, spineAlias, spineCol, baseAlias, baseCol string) sqlplan.JoinDescription {
	return sqlplan.JoinDescription{
		Type:       sqlplan.InnerJoin,
		Right:      right,
		RightAlias: rightAlias,
		OnCondition: sqlplan.Raw{
			SQL:               col(spineAlias, spineCol).String() + " >= " + col(baseAlias, baseCol).String(),
			ReferencedColumns: []string{spineCol, baseCol},
		},
	}
}

// CumulativeGrainToDate builds the grain-to-date predicate:
// `base.baseCol BETWEEN DATE_TRUNC('grain', spine.spineCol) AND spine.spineCol`.
func CumulativeGrainToDate(right sqlplan.Node, rightAlias, spineAlias, spineCol, baseAlias, baseCol, grain string) sqlplan.JoinDescription {
	return sqlplan.JoinDescription{
		Type:       sqlplan.InnerJoin,
		Right:      right,
		RightAlias: rightAlias,
		OnCondition: sqlplan.BetweenExpr{
			Target: col(baseAlias, baseCol),
			Low:    sqlplan.DateTruncExpr{Granularity: grain, Target: col(spineAlias, spineCol)},
			High:   col(spineAlias, spineCol),
		},
	}
}

// JoinToTimeSpineAligned builds the `spine.spineCol = base.baseCol`
// equality join used by Join-to-time-spine when the requested granularity
// matches the spine's base granularity.
func JoinToTimeSpineAligned(joinType sqlplan.JoinType, right sqlplan.Node, rightAlias, spineAlias, spineCol, baseAlias, baseCol string) sqlplan.JoinDescription {
	return sqlplan.JoinDescription{
		Type:        joinType,
		Right:       right,
		RightAlias:  rightAlias,
		OnCondition: sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: col(spineAlias, spineCol), Right: col(baseAlias, baseCol)},
	}
}

// ColumnEquality AND-s together an arbitrary list of (left_col = right_col)
// pairs, used by the semi-additive join to match entities plus a pin
// column.
func ColumnEquality(joinType sqlplan.JoinType, right sqlplan.Node, rightAlias, leftAlias string, pairs [][2]string) sqlplan.JoinDescription {
	var cond sqlplan.Expr
	for _, p := range pairs {
		eq := sqlplan.Expr(sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: col(leftAlias, p[0]), Right: col(rightAlias, p[1])})
		if cond == nil {
			cond = eq
		} else {
			cond = sqlplan.BinaryExpr{Op: sqlplan.OpAnd, Left: cond, Right: eq}
		}
	}
	return sqlplan.JoinDescription{Type: joinType, Right: right, RightAlias: rightAlias, OnCondition: cond}
}

// CombineDatasets builds the ON condition for one step of
// Combine-aggregated-outputs: for each linkable column,
// `COALESCE(a1.c, a2.c, ...) = aN.c` across all prior aliases.
func CombineDatasets(joinType sqlplan.JoinType, right sqlplan.Node, rightAlias string, priorAliases []string, newAlias string, linkableCols []string) sqlplan.JoinDescription {
	var cond sqlplan.Expr
	for _, c := range linkableCols {
		args := make([]sqlplan.Expr, 0, len(priorAliases))
		for _, a := range priorAliases {
			args = append(args, col(a, c))
		}
		eq := sqlplan.Expr(sqlplan.BinaryExpr{
			Op:    sqlplan.OpEquals,
			Left:  sqlplan.CoalesceExpr{Args: args},
			Right: col(newAlias, c),
		})
		if cond == nil {
			cond = eq
		} else {
			cond = sqlplan.BinaryExpr{Op: sqlplan.OpAnd, Left: cond, Right: eq}
		}
	}
	return sqlplan.JoinDescription{Type: joinType, Right: right, RightAlias: rightAlias, OnCondition: cond}
}

// Conversion builds base-event/conversion-event entity equality + a
// conversion-after-base time window inequality, plus optional constant
// property equalities.
func Conversion(right sqlplan.Node, rightAlias, baseAlias, convAlias string, entityCols [][2]string, baseTimeCol, convTimeCol string, windowCount int, windowUnit string, constantPropertyCols [][2]string) sqlplan.JoinDescription {
	var cond sqlplan.Expr
	addAnd := func(e sqlplan.Expr) {
		if cond == nil {
			cond = e
		} else {
			cond = sqlplan.BinaryExpr{Op: sqlplan.OpAnd, Left: cond, Right: e}
		}
	}
	for _, p := range entityCols {
		addAnd(sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: col(baseAlias, p[0]), Right: col(convAlias, p[1])})
	}
	windowHigh := sqlplan.Expr(col(baseAlias, baseTimeCol))
	if windowCount > 0 {
		windowHigh = sqlplan.IntervalAddExpr{Target: col(baseAlias, baseTimeCol), Count: windowCount, Unit: windowUnit}
	}
	addAnd(sqlplan.BetweenExpr{Target: col(convAlias, convTimeCol), Low: col(baseAlias, baseTimeCol), High: windowHigh})
	for _, p := range constantPropertyCols {
		addAnd(sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: col(baseAlias, p[0]), Right: col(convAlias, p[1])})
	}
	return sqlplan.JoinDescription{Type: sqlplan.InnerJoin, Right: right, RightAlias: rightAlias, OnCondition: cond}
}
