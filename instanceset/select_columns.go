package instanceset

import (
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

// CreateSelectColumnsForInstances yields one select column per instance in
// s, referencing alias.column_name, in the category-declared order every
// handler relies on for deterministic output. If rename is
// non-nil, an instance whose spec key is present gets its output alias
// rewritten to rename[key] instead of its resolved column name.
func CreateSelectColumnsForInstances(alias string, s *spec.InstanceSet, rename map[string]string) []sqlplan.SelectColumn {
	var out []sqlplan.SelectColumn
	outputName := func(sp spec.Spec, col spec.ColumnAssociation) string {
		if rename != nil {
			if n, ok := rename[sp.Key()]; ok {
				return n
			}
		}
		return col.ColumnName
	}
	for _, inst := range s.AllInstances() {
		col := inst.Columns()[0]
		out = append(out, sqlplan.SelectColumn{
			Expr:  sqlplan.ColumnRef{TableAlias: alias, ColumnName: col.ColumnName},
			Alias: outputName(inst.InstanceSpec(), col),
		})
	}
	return out
}

// CreateSelectColumnsWithMeasuresAggregated is as
// CreateSelectColumnsForInstances, but every measure column is wrapped in
// its aggregation function.
// aggFuncFor must return the function to apply for a given measure spec.
func CreateSelectColumnsWithMeasuresAggregated(alias string, s *spec.InstanceSet, aggFuncFor func(spec.Spec) sqlplan.AggFunc, percentileFor func(spec.Spec) float64, rename map[string]string) []sqlplan.SelectColumn {
	outputName := func(sp spec.Spec, col spec.ColumnAssociation) string {
		if rename != nil {
			if n, ok := rename[sp.Key()]; ok {
				return n
			}
		}
		return col.ColumnName
	}
	var out []sqlplan.SelectColumn
	for _, m := range s.Measures {
		f := aggFuncFor(m.Spec)
		ref := sqlplan.Expr(sqlplan.ColumnRef{TableAlias: alias, ColumnName: m.Column.ColumnName})
		var expr sqlplan.Expr
		if f == sqlplan.AggNone {
			expr = ref
		} else {
			pct := 0.0
			if f == sqlplan.AggPercentile && percentileFor != nil {
				pct = percentileFor(m.Spec)
			}
			expr = sqlplan.AggregateExpr{Func: f, Operand: ref, Percentile: pct}
		}
		out = append(out, sqlplan.SelectColumn{Expr: expr, Alias: outputName(m.Spec, m.Column)})
	}
	for _, d := range s.Dimensions {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: d.Column.ColumnName}, Alias: outputName(d.Spec, d.Column)})
	}
	for _, t := range s.TimeDimensions {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: t.Column.ColumnName}, Alias: outputName(t.Spec, t.Column)})
	}
	for _, e := range s.Entities {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: e.Column.ColumnName}, Alias: outputName(e.Spec, e.Column)})
	}
	for _, mt := range s.Metrics {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: mt.Column.ColumnName}, Alias: outputName(mt.Spec, mt.Column)})
	}
	for _, g := range s.GroupByMetrics {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: g.Column.ColumnName}, Alias: outputName(g.Spec, g.Column)})
	}
	for _, md := range s.Metadata {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: md.Column.ColumnName}, Alias: outputName(md.Spec, md.Column)})
	}
	return out
}

// NonMeasureColumnNames returns the output column names of the dimension,
// time-dimension, entity and metadata instances in s, the set
// Aggregate-measures GROUP BYs on. Metrics and group-by metrics are not
// included.
func NonMeasureColumnNames(s *spec.InstanceSet) []string {
	var out []string
	for _, d := range s.Dimensions {
		out = append(out, d.Column.ColumnName)
	}
	for _, t := range s.TimeDimensions {
		out = append(out, t.Column.ColumnName)
	}
	for _, e := range s.Entities {
		out = append(out, e.Column.ColumnName)
	}
	for _, md := range s.Metadata {
		out = append(out, md.Column.ColumnName)
	}
	return out
}
