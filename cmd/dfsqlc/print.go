package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

// printSQLPlan renders the compiled SQL plan tree as indented,
// human-readable text. Nothing in package sqlplan renders SQL text
// itself (that is a downstream renderer's job), so this is a debugging
// aid over the tree shape, not a query the target engine could run.
func printSQLPlan(w io.Writer, n sqlplan.Node, indent string) {
	switch v := n.(type) {
	case *sqlplan.TableRef:
		fmt.Fprintf(w, "%stable_ref %s (%s)\n", indent, v.TableName, v.Desc)

	case *sqlplan.Select:
		fmt.Fprintf(w, "%sselect %s\n", indent, v.Desc)
		cols := make([]string, len(v.SelectColumns))
		for i, c := range v.SelectColumns {
			cols[i] = fmt.Sprintf("%s AS %s", c.Expr.String(), c.Alias)
		}
		fmt.Fprintf(w, "%s  columns: %s\n", indent, strings.Join(cols, ", "))
		if len(v.GroupBy) > 0 {
			fmt.Fprintf(w, "%s  group by: %s\n", indent, strings.Join(v.GroupBy, ", "))
		}
		if v.Where != nil {
			fmt.Fprintf(w, "%s  where: %s\n", indent, v.Where.String())
		}
		if v.Distinct {
			fmt.Fprintf(w, "%s  distinct\n", indent)
		}
		fmt.Fprintf(w, "%s  from %s:\n", indent, v.FromAlias)
		printSQLPlan(w, v.From, indent+"    ")
		for _, j := range v.Joins {
			fmt.Fprintf(w, "%s  %s join %s on %s:\n", indent, j.Type, j.RightAlias, conditionString(j.OnCondition))
			printSQLPlan(w, j.Right, indent+"    ")
		}

	case *sqlplan.CreateTableAs:
		fmt.Fprintf(w, "%screate table %s as (%s):\n", indent, v.TableName, v.Desc)
		printSQLPlan(w, v.Select, indent+"  ")

	default:
		fmt.Fprintf(w, "%s<unknown sql node %T>\n", indent, n)
	}
}

func conditionString(e sqlplan.Expr) string {
	if e == nil {
		return "<cross>"
	}
	return e.String()
}

// printInstanceSet renders the output instance set category by
// category, the names and columns a query against the written result
// table would expose.
func printInstanceSet(w io.Writer, s *spec.InstanceSet) {
	if s == nil {
		fmt.Fprintln(w, "  <empty instance set>")
		return
	}
	printCategory(w, "measures", measureLines(s))
	printCategory(w, "dimensions", plainLines(s.Dimensions, func(i spec.DimensionInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
	printCategory(w, "time_dimensions", plainLines(s.TimeDimensions, func(i spec.TimeDimensionInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
	printCategory(w, "entities", plainLines(s.Entities, func(i spec.EntityInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
	printCategory(w, "metrics", plainLines(s.Metrics, func(i spec.MetricInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
	printCategory(w, "group_by_metrics", plainLines(s.GroupByMetrics, func(i spec.GroupByMetricInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
	printCategory(w, "metadata", plainLines(s.Metadata, func(i spec.MetadataInstance) (string, string) {
		return i.Spec.QualifiedName(), i.Column.ColumnName
	}))
}

func printCategory(w io.Writer, label string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, l := range lines {
		fmt.Fprintf(w, "    %s\n", l)
	}
}

func measureLines(s *spec.InstanceSet) []string {
	lines := make([]string, len(s.Measures))
	for i, m := range s.Measures {
		lines[i] = fmt.Sprintf("%s -> %s [%s]", m.Spec.QualifiedName(), m.Column.ColumnName, m.AggState)
	}
	return lines
}

func plainLines[T any](items []T, project func(T) (string, string)) []string {
	lines := make([]string, len(items))
	for i, item := range items {
		name, col := project(item)
		lines[i] = fmt.Sprintf("%s -> %s", name, col)
	}
	return lines
}
