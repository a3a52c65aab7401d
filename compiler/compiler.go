// Package compiler implements the plan walker: the
// polymorphic visitor over dataflow.Node that recursively compiles a
// dataflow plan into a sqlplan.Node tree and a matching spec.InstanceSet.
//
// Control flow is strictly bottom-up recursion on the plan DAG, leaves
// first. The walker has no shared mutable state beyond a
// per-compilation alias counter.
package compiler

import (
	"go.uber.org/zap"

	"github.com/godosou/dfsql/compiler/internal/dataset"
	"github.com/godosou/dfsql/dataflow"
	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/instanceset"
	"github.com/godosou/dfsql/manifest"
	"github.com/godosou/dfsql/optimizer"
	"github.com/godosou/dfsql/resolver"
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqljoin"
	"github.com/godosou/dfsql/sqlplan"
	"github.com/godosou/dfsql/timespine"
)

// Compiler holds the collaborators the walker is parameterized by. It is
// safe to reuse across many Compile calls: the collaborators it holds
// are long-lived and stateless (or, for the resolver, pure); only the
// alias counter is created fresh per call.
type Compiler struct {
	Resolver   resolver.Resolver
	Manifest   manifest.Lookup
	TimeSpine  *timespine.Service
	Optimizers map[OptimizationLevel]optimizer.Pipeline
	Logger     *zap.Logger
}

// New constructs a Compiler from its required collaborators. A nil
// Logger is replaced with zap.NewNop() so callers never need a nil check.
func New(r resolver.Resolver, m manifest.Lookup, ts *timespine.Service, optimizers map[OptimizationLevel]optimizer.Pipeline, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{Resolver: r, Manifest: m, TimeSpine: ts, Optimizers: optimizers, Logger: logger}
}

// Compile is the walker's single entry point: recursively evaluate
// planRoot, then hand the SQL tree to the optimizer pipeline selected
// by optLevel.
func (c *Compiler) Compile(engine EngineKind, planRoot dataflow.Node, optLevel OptimizationLevel, planID string) (*spec.InstanceSet, sqlplan.Node, error) {
	w := &walker{c: c, aliases: newAliasCounter(), useColAliasInGroupBy: engine.UseColumnAliasInGroupBy()}
	ds, err := w.compile(planRoot)
	if err != nil {
		return nil, nil, err
	}

	pipeline := c.Optimizers[optLevel]
	node := ds.SQLNode
	for i, pass := range pipeline {
		c.Logger.Info("applying optimizer pass", zap.String("plan_id", planID), zap.Int("index", i))
		node, err = pass(node)
		if err != nil {
			return nil, nil, dfsqlerr.Wrapf(err, "optimizer pass %d failed", i)
		}
	}
	return ds.InstanceSet, node, nil
}

// walker carries the per-compilation state: the alias counter and the
// engine-sensitive GROUP-BY-alias flag. It is never shared between
// Compile calls.
type walker struct {
	c                    *Compiler
	aliases              *aliasCounter
	useColAliasInGroupBy bool
}

// renormalize applies ChangeAssociatedColumns, the idempotent transform
// every handler runs at the end so the instance set and select-column
// list agree on column names as produced by the resolver.
func (w *walker) renormalize(s *spec.InstanceSet) (*spec.InstanceSet, error) {
	return instanceset.ChangeAssociatedColumns(w.c.Resolver)(s)
}

// compile dispatches on the closed dataflow.Node sum type. This is the
// single type switch the whole walker goes through; see Design Notes
// "Dynamic dispatch -> closed tagged variants".
func (w *walker) compile(node dataflow.Node) (dataset.SQLDataSet, error) {
	switch n := node.(type) {
	case dataflow.ReadSourceNode:
		return w.compileReadSource(n)
	case dataflow.JoinOverTimeRangeNode:
		return w.compileJoinOverTimeRange(n)
	case dataflow.JoinOnEntitiesNode:
		return w.compileJoinOnEntities(n)
	case dataflow.AggregateMeasuresNode:
		return w.compileAggregateMeasures(n)
	case dataflow.ComputeMetricsNode:
		return w.compileComputeMetrics(n)
	case dataflow.OrderByLimitNode:
		return w.compileOrderByLimit(n)
	case dataflow.FilterElementsNode:
		return w.compileFilterElements(n)
	case dataflow.WhereConstraintNode:
		return w.compileWhereConstraint(n)
	case dataflow.CombineAggregatedOutputsNode:
		return w.compileCombineAggregatedOutputs(n)
	case dataflow.ConstrainTimeRangeNode:
		return w.compileConstrainTimeRange(n)
	case dataflow.MetricTimeDimensionTransformNode:
		return w.compileMetricTimeDimensionTransform(n)
	case dataflow.SemiAdditiveJoinNode:
		return w.compileSemiAdditiveJoin(n)
	case dataflow.JoinToTimeSpineNode:
		return w.compileJoinToTimeSpine(n)
	case dataflow.MinMaxNode:
		return w.compileMinMax(n)
	case dataflow.AddGeneratedUUIDColumnNode:
		return w.compileAddGeneratedUUIDColumn(n)
	case dataflow.JoinConversionEventsNode:
		return w.compileJoinConversionEvents(n)
	case dataflow.WriteToResultDataTableNode:
		return w.compile(n.Parent)
	case dataflow.WriteToResultTableNode:
		return w.compileWriteToResultTable(n)
	default:
		return dataset.SQLDataSet{}, dfsqlerr.Wrapf(dfsqlerr.ErrUnknownMetricType, "compiler: unhandled dataflow node type %T", node)
	}
}

// compileReadSource emits the dataset carried by the leaf node verbatim.
func (w *walker) compileReadSource(n dataflow.ReadSourceNode) (dataset.SQLDataSet, error) {
	return n.Dataset, nil
}

// findTimeDimension returns the time-dimension instance in s matching
// target (exact spec equality), or ok=false.
func findTimeDimension(s *spec.InstanceSet, target spec.Spec) (spec.TimeDimensionInstance, bool) {
	for _, t := range s.TimeDimensions {
		if t.Spec.Equal(target) {
			return t, true
		}
	}
	return spec.TimeDimensionInstance{}, false
}

// compileJoinOverTimeRange implements cumulative-window metrics.
func (w *walker) compileJoinOverTimeRange(n dataflow.JoinOverTimeRangeNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	parentAlias := w.aliases.NextAlias()

	aggTimeDim, ok := findTimeDimension(parent.InstanceSet, n.TimeDimensionSpecForJoin)
	if !ok {
		return dataset.SQLDataSet{}, dfsqlerr.Wrapf(dfsqlerr.ErrMissingAggregationTimeDimension, "join-over-time-range: spec %s not found in parent", n.TimeDimensionSpecForJoin.QualifiedName())
	}

	spineAlias := w.aliases.NextAlias()
	var rng *timespine.Range
	if n.TimeRangeConstraint != nil && n.TimeRangeConstraint.Adjustable {
		rng = n.TimeRangeConstraint.TimeSpineRange()
	}
	spineSelect, err := w.c.TimeSpine.MakeTimeSpineDataset(spineAlias, aggTimeDim.Spec.Granularity, rng)
	if err != nil {
		return dataset.SQLDataSet{}, dfsqlerr.Wrap(err, "join-over-time-range: building time spine dataset")
	}
	spineTimeCol := aggTimeDim.Spec.QualifiedName()

	var joinDesc sqlplan.JoinDescription
	switch {
	case n.IsGrainToDate:
		joinDesc = sqljoin.CumulativeGrainToDate(parent.SQLNode, parentAlias, spineAlias, spineTimeCol, parentAlias, aggTimeDim.Column.ColumnName, n.GrainToDateGranularity.String())
	case n.WindowCount == 0:
		joinDesc = sqljoin.CumulativeWindowless(parent.SQLNode, parentAlias, spineAlias, spineTimeCol, parentAlias, aggTimeDim.Column.ColumnName)
	default:
		joinDesc = sqljoin.CumulativeFixedWindow(parent.SQLNode, parentAlias, spineAlias, spineTimeCol, parentAlias, aggTimeDim.Column.ColumnName, n.WindowCount, n.WindowUnit)
	}

	// The parent's aggregation-time-dimension instance is replaced by the
	// spine's in the output instance set.
	modifiedParentSet, err := instanceset.FilterElements(nil, spec.NewSet(aggTimeDim.Spec))(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	spineInstanceSet := &spec.InstanceSet{TimeDimensions: []spec.TimeDimensionInstance{aggTimeDim}}
	outputSet := modifiedParentSet.Merge(spineInstanceSet)
	outputSet, err = w.renormalize(outputSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	selectCols := append(
		instanceset.CreateSelectColumnsForInstances(spineAlias, spineInstanceSet, nil),
		instanceset.CreateSelectColumnsForInstances(parentAlias, modifiedParentSet, nil)...,
	)

	sel := &sqlplan.Select{
		Desc:          "join over time range",
		SelectColumns: selectCols,
		From:          spineSelect,
		FromAlias:     spineAlias,
		Joins:         []sqlplan.JoinDescription{joinDesc},
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileJoinOnEntities recursively compiles the left node as the FROM
// source, joining each target's right node in turn.
func (w *walker) compileJoinOnEntities(n dataflow.JoinOnEntitiesNode) (dataset.SQLDataSet, error) {
	left, err := w.compile(n.Left)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	leftAlias := w.aliases.NextAlias()

	var joinDescs []sqlplan.JoinDescription
	type aliasedSet struct {
		alias string
		set   *spec.InstanceSet
	}
	rightSets := make([]aliasedSet, 0, len(n.JoinTargets))

	for _, target := range n.JoinTargets {
		right, err := w.compile(target.JoinNode)
		if err != nil {
			return dataset.SQLDataSet{}, err
		}
		rightAlias := w.aliases.NextAlias()

		rightSet := right.InstanceSet
		if target.JoinOnEntity != "" {
			rightSet, err = instanceset.FilterLinkablesWithLeadingLink(target.JoinOnEntity)(rightSet)
			if err != nil {
				return dataset.SQLDataSet{}, err
			}
			rightSet, err = instanceset.AddLinkToLinkables(target.JoinOnEntity)(rightSet)
			if err != nil {
				return dataset.SQLDataSet{}, err
			}
		}
		rightSets = append(rightSets, aliasedSet{rightAlias, rightSet})

		leftEntityCol, rightEntityCol := w.entityJoinColumns(left.InstanceSet, rightSet, target.JoinOnEntity)
		joinDescs = append(joinDescs, sqljoin.BaseOutput(toSQLJoinType(target.Type), right.SQLNode, rightAlias, leftAlias, leftEntityCol, rightEntityCol))
	}

	// Left-side measures are demoted from COMPLETE to PARTIAL.
	leftSet, err := instanceset.ChangeMeasureAggregationState(map[spec.AggregationState]spec.AggregationState{
		spec.NonAggregated: spec.NonAggregated,
		spec.Complete:      spec.Partial,
		spec.Partial:       spec.Partial,
	})(left.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	merged := leftSet
	for _, rs := range rightSets {
		merged = merged.Merge(rs.set)
	}
	merged, err = w.renormalize(merged)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	// The physical columns referenced in the SELECT still live under their
	// pre-link names; rename maps each instance's (possibly just-relinked)
	// spec key to the post-renormalize column name so the emitted alias
	// agrees with what merged now claims.
	rename := make(map[string]string, len(merged.AllInstances()))
	for _, inst := range merged.AllInstances() {
		rename[inst.InstanceSpec().Key()] = inst.Columns()[0].ColumnName
	}

	selectCols := instanceset.CreateSelectColumnsForInstances(leftAlias, leftSet, rename)
	for _, rs := range rightSets {
		selectCols = append(selectCols, instanceset.CreateSelectColumnsForInstances(rs.alias, rs.set, rename)...)
	}

	sel := &sqlplan.Select{
		Desc:          "join on entities",
		SelectColumns: selectCols,
		From:          left.SQLNode,
		FromAlias:     leftAlias,
		Joins:         joinDescs,
	}
	return dataset.SQLDataSet{InstanceSet: merged, SQLNode: sel}, nil
}

// entityJoinColumns resolves the left/right physical column names for a
// join-on-entity. The join entity is expected to appear as an
// spec.EntityInstance on both sides; if it is unlinked on one side and
// freshly linked on the other (post Add-link-to-linkables), the lookup
// falls back to matching by element name alone.
func (w *walker) entityJoinColumns(left, right *spec.InstanceSet, entity spec.EntityLink) (string, string) {
	find := func(set *spec.InstanceSet) string {
		for _, e := range set.Entities {
			if e.Spec.ElementName == string(entity) {
				return e.Column.ColumnName
			}
		}
		return string(entity)
	}
	return find(left), find(right)
}

func toSQLJoinType(k dataflow.JoinKind) sqlplan.JoinType {
	switch k {
	case dataflow.JoinLeft:
		return sqlplan.LeftJoin
	case dataflow.JoinCross:
		return sqlplan.CrossJoin
	default:
		return sqlplan.InnerJoin
	}
}

// compileAggregateMeasures promotes every measure to COMPLETE and emits
// aggregated select columns, grouping by every non-measure column.
func (w *walker) compileAggregateMeasures(n dataflow.AggregateMeasuresNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	aggSet, err := instanceset.Apply(parent.InstanceSet,
		instanceset.ChangeMeasureAggregationState(map[spec.AggregationState]spec.AggregationState{
			spec.NonAggregated: spec.Complete,
			spec.Complete:      spec.Complete,
			spec.Partial:       spec.Complete,
		}),
		w.changeAssociatedColumnsTransform(),
		instanceset.UpdateMeasureFillNullsWith(fillNullsBySpecKey(n.MetricInputMeasures)),
	)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	aliasBySpecKey := aliasBySpecKeyFromInputMeasures(n.MetricInputMeasures)
	if len(aliasBySpecKey) > 0 {
		aggSet, err = instanceset.Apply(aggSet,
			instanceset.AliasAggregatedMeasures(aliasBySpecKey),
			w.changeAssociatedColumnsTransform(),
		)
		if err != nil {
			return dataset.SQLDataSet{}, err
		}
	}

	selectCols := instanceset.CreateSelectColumnsWithMeasuresAggregated(fromAlias, aggSet, aggFuncForMeasure, percentileForMeasure, nil)
	groupBy := instanceset.NonMeasureColumnNames(aggSet)

	sel := &sqlplan.Select{
		Desc:          "aggregate measures",
		SelectColumns: selectCols,
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
		GroupBy:       groupBy,
	}
	return dataset.SQLDataSet{InstanceSet: aggSet, SQLNode: sel}, nil
}

func (w *walker) changeAssociatedColumnsTransform() spec.InstanceSetTransform {
	return instanceset.ChangeAssociatedColumns(w.c.Resolver)
}

func fillNullsBySpecKey(inputs []dataflow.MetricInputMeasureSpec) map[string]int64 {
	out := make(map[string]int64)
	for _, m := range inputs {
		if m.FillNullsWith != nil {
			out[m.MeasureSpec.Key()] = *m.FillNullsWith
		}
	}
	return out
}

func aliasBySpecKeyFromInputMeasures(inputs []dataflow.MetricInputMeasureSpec) map[string]string {
	out := make(map[string]string)
	for _, m := range inputs {
		if m.Alias != "" {
			out[m.MeasureSpec.Key()] = m.Alias
		}
	}
	return out
}

// aggFuncForMeasure picks the aggregation function for a measure spec.
// Measures carry their aggregation type via the manifest in a full
// deployment; here the element name's conventional suffix selects the
// function instead. Callers that need a different mapping should pre-alias the
// measure spec before compilation.
func aggFuncForMeasure(s spec.Spec) sqlplan.AggFunc {
	switch {
	case hasSuffix(s.ElementName, "__avg"):
		return sqlplan.AggAvg
	case hasSuffix(s.ElementName, "__max"):
		return sqlplan.AggMax
	case hasSuffix(s.ElementName, "__min"):
		return sqlplan.AggMin
	case hasSuffix(s.ElementName, "__count_distinct"):
		return sqlplan.AggCountDistinct
	case hasSuffix(s.ElementName, "__percentile"):
		return sqlplan.AggPercentile
	case hasSuffix(s.ElementName, "__sum_boolean"):
		return sqlplan.AggSumBoolean
	default:
		return sqlplan.AggSum
	}
}

func percentileForMeasure(spec.Spec) float64 { return 0 }

func hasSuffix(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

// compileComputeMetrics drops measures, keeps linkable instances, and
// appends one select column per requested metric, dispatching on metric
// type.
func (w *walker) compileComputeMetrics(n dataflow.ComputeMetricsNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	outputSet, err := instanceset.Apply(parent.InstanceSet,
		instanceset.RemoveMeasures(),
		w.changeAssociatedColumnsTransform(),
		instanceset.RemoveMetrics(),
	)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	if n.ForGroupBySource {
		if len(n.Metrics) != 1 || len(outputSet.Entities) != 1 {
			return dataset.SQLDataSet{}, dfsqlerr.ErrGroupByMetricArity
		}
	}

	nonMetricCols := instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil)

	var metricCols []sqlplan.SelectColumn
	for _, req := range n.Metrics {
		def, ok := w.c.Manifest.GetMetric(req.MetricRef)
		if !ok {
			return dataset.SQLDataSet{}, dfsqlerr.Wrapf(dfsqlerr.ErrUnknownMetricType, "compute-metrics: unknown metric ref %q", req.MetricRef)
		}
		metricSpec := spec.New(def.Name)
		expr, err := w.metricExpr(def, fromAlias)
		if err != nil {
			return dataset.SQLDataSet{}, err
		}

		if n.ForGroupBySource {
			entitySpec := outputSet.Entities[0].Spec
			gbSpec := metricSpec.WithEntityLinks(append(append([]spec.EntityLink(nil), entitySpec.EntityLinks...), spec.EntityLink(entitySpec.ElementName)))
			col := w.c.Resolver.Resolve(gbSpec)
			leadLink := spec.EntityLink(entitySpec.ElementName)
			if lead, ok := entitySpec.LeadingLink(); ok {
				leadLink = lead
			}
			outputSet, err = instanceset.AddGroupByMetric(spec.GroupByMetricInstance{Spec: gbSpec, Column: col, EntityLink: leadLink})(outputSet)
			if err != nil {
				return dataset.SQLDataSet{}, err
			}
			metricCols = append(metricCols, sqlplan.SelectColumn{Expr: expr, Alias: col.ColumnName})
			continue
		}

		col := w.c.Resolver.Resolve(metricSpec)
		outputSet, err = instanceset.AddMetrics(spec.MetricInstance{Spec: metricSpec, Column: col})(outputSet)
		if err != nil {
			return dataset.SQLDataSet{}, err
		}
		metricCols = append(metricCols, sqlplan.SelectColumn{Expr: expr, Alias: col.ColumnName})
	}

	sel := &sqlplan.Select{
		Desc:          "compute metrics",
		SelectColumns: append(nonMetricCols, metricCols...),
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// metricExpr dispatches on the metric's type. Unknown metric types are a
// programming error.
func (w *walker) metricExpr(def manifest.MetricDefinition, alias string) (sqlplan.Expr, error) {
	switch def.Type {
	case manifest.MetricSimple, manifest.MetricCumulative:
		if len(def.InputMeasures) != 1 {
			return nil, dfsqlerr.Wrapf(dfsqlerr.ErrRatioMetricMissingOperand, "metric %q must have exactly one input measure", def.Name)
		}
		in := def.InputMeasures[0]
		colName := in.MeasureSpec.QualifiedName()
		if in.Alias != "" {
			colName = in.Alias
		}
		ref := sqlplan.Expr(sqlplan.ColumnRef{TableAlias: alias, ColumnName: colName})
		if in.FillNullsWith != nil {
			ref = sqlplan.CoalesceExpr{Args: []sqlplan.Expr{ref, sqlplan.Literal{Value: *in.FillNullsWith}}}
		}
		return ref, nil
	case manifest.MetricRatio:
		if def.NumeratorAlias == "" || def.DenominatorAlias == "" {
			return nil, dfsqlerr.ErrRatioMetricMissingOperand
		}
		return sqlplan.BinaryExpr{
			Op:    sqlplan.OpDivide,
			Left:  sqlplan.ColumnRef{TableAlias: alias, ColumnName: def.NumeratorAlias},
			Right: sqlplan.ColumnRef{TableAlias: alias, ColumnName: def.DenominatorAlias},
		}, nil
	case manifest.MetricDerived:
		return sqlplan.Raw{SQL: def.DerivedExprSQL, ReferencedColumns: def.DerivedReferencedColumns}, nil
	case manifest.MetricConversionRate:
		return sqlplan.BinaryExpr{
			Op:    sqlplan.OpDivide,
			Left:  sqlplan.ColumnRef{TableAlias: alias, ColumnName: def.ConversionMeasureAlias},
			Right: sqlplan.ColumnRef{TableAlias: alias, ColumnName: def.BaseMeasureAlias},
		}, nil
	case manifest.MetricConversions:
		return sqlplan.ColumnRef{TableAlias: alias, ColumnName: def.ConversionMeasureAlias}, nil
	default:
		return nil, dfsqlerr.Wrapf(dfsqlerr.ErrUnknownMetricType, "metric %q has type %d", def.Name, def.Type)
	}
}

// compileOrderByLimit wraps the parent in a SELECT with ORDER BY and an
// optional LIMIT.
func (w *walker) compileOrderByLimit(n dataflow.OrderByLimitNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	outputSet, err := w.renormalize(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	var orderBys []sqlplan.OrderByExpr
	for _, ob := range n.OrderBy {
		col := w.c.Resolver.Resolve(ob.Spec)
		orderBys = append(orderBys, sqlplan.OrderByExpr{
			Expr:       sqlplan.ColumnRef{TableAlias: fromAlias, ColumnName: col.ColumnName},
			Descending: ob.Descending,
		})
	}

	sel := &sqlplan.Select{
		Desc:          "order by / limit",
		SelectColumns: instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil),
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
		OrderBy:       orderBys,
		Limit:         n.Limit,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileFilterElements projects the instance set to the requested specs.
func (w *walker) compileFilterElements(n dataflow.FilterElementsNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	include := spec.NewSet(n.IncludeSpecs...)
	outputSet, err := instanceset.Apply(parent.InstanceSet,
		instanceset.FilterElements(include, nil),
		w.changeAssociatedColumnsTransform(),
	)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	selectCols := instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil)
	var groupBy []string
	if n.Distinct {
		for _, c := range selectCols {
			groupBy = append(groupBy, c.Alias)
		}
	}

	sel := &sqlplan.Select{
		Desc:          "filter elements",
		SelectColumns: selectCols,
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
		GroupBy:       groupBy,
		Distinct:      n.Distinct,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileWhereConstraint wraps the parent in a SELECT with a raw WHERE
// expression.
func (w *walker) compileWhereConstraint(n dataflow.WhereConstraintNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	outputSet, err := w.renormalize(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	referenced := make([]string, 0, len(n.LinkableSpecs))
	for _, s := range n.LinkableSpecs {
		referenced = append(referenced, w.c.Resolver.Resolve(s).ColumnName)
	}

	sel := &sqlplan.Select{
		Desc:          "where constraint",
		SelectColumns: instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil),
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
		Where:         sqlplan.Raw{SQL: n.WhereSQLTemplate, ReferencedColumns: referenced},
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// nonLinkableSelectColumns projects a parent's measures, metrics,
// group-by-metrics and metadata instances only — the columns
// Combine-aggregated-outputs keeps per side after its linkable columns
// have already been coalesced into a single shared projection.
func nonLinkableSelectColumns(alias string, s *spec.InstanceSet) []sqlplan.SelectColumn {
	var out []sqlplan.SelectColumn
	for _, m := range s.Measures {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: m.Column.ColumnName}, Alias: m.Column.ColumnName})
	}
	for _, m := range s.Metrics {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: m.Column.ColumnName}, Alias: m.Column.ColumnName})
	}
	for _, g := range s.GroupByMetrics {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: g.Column.ColumnName}, Alias: g.Column.ColumnName})
	}
	for _, md := range s.Metadata {
		out = append(out, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: alias, ColumnName: md.Column.ColumnName}, Alias: md.Column.ColumnName})
	}
	return out
}

// compileCombineAggregatedOutputs joins N >= 2 parents sharing an
// identical linkable-spec set.
func (w *walker) compileCombineAggregatedOutputs(n dataflow.CombineAggregatedOutputsNode) (dataset.SQLDataSet, error) {
	if len(n.Parents) < 2 {
		return dataset.SQLDataSet{}, dfsqlerr.ErrInsufficientParents
	}

	type parentInfo struct {
		alias string
		ds    dataset.SQLDataSet
	}
	parents := make([]parentInfo, 0, len(n.Parents))
	for _, p := range n.Parents {
		ds, err := w.compile(p)
		if err != nil {
			return dataset.SQLDataSet{}, err
		}
		parents = append(parents, parentInfo{alias: w.aliases.NextAlias(), ds: ds})
	}

	linkableKey := func(set *spec.InstanceSet) map[string]struct{} {
		m := map[string]struct{}{}
		for _, l := range set.Linkables() {
			m[l.InstanceSpec().Key()] = struct{}{}
		}
		return m
	}
	first := linkableKey(parents[0].ds.InstanceSet)
	for _, p := range parents[1:] {
		other := linkableKey(p.ds.InstanceSet)
		if len(other) != len(first) {
			return dataset.SQLDataSet{}, dfsqlerr.ErrNonIdenticalLinkableSpecs
		}
		for k := range first {
			if _, ok := other[k]; !ok {
				return dataset.SQLDataSet{}, dfsqlerr.ErrNonIdenticalLinkableSpecs
			}
		}
	}

	var linkableCols []string
	for _, l := range parents[0].ds.InstanceSet.Linkables() {
		linkableCols = append(linkableCols, l.Columns()[0].ColumnName)
	}

	joinType := sqlplan.FullOuterJoin
	if len(linkableCols) == 0 {
		joinType = sqlplan.CrossJoin
	}

	var joinDescs []sqlplan.JoinDescription
	aliasesSeen := []string{parents[0].alias}
	for _, p := range parents[1:] {
		jd := sqljoin.CombineDatasets(joinType, p.ds.SQLNode, p.alias, aliasesSeen, p.alias, linkableCols)
		joinDescs = append(joinDescs, jd)
		aliasesSeen = append(aliasesSeen, p.alias)
	}

	// The coalesced linkable columns are shared across every parent, so
	// only parents[0]'s linkable instances are kept; every parent still
	// contributes its own measures/metrics/metadata.
	merged := parents[0].ds.InstanceSet.Clone()
	for _, p := range parents[1:] {
		merged.Measures = append(merged.Measures, p.ds.InstanceSet.Measures...)
		merged.Metrics = append(merged.Metrics, p.ds.InstanceSet.Metrics...)
		merged.GroupByMetrics = append(merged.GroupByMetrics, p.ds.InstanceSet.GroupByMetrics...)
		merged.Metadata = append(merged.Metadata, p.ds.InstanceSet.Metadata...)
	}
	merged, err := w.renormalize(merged)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	var selectCols []sqlplan.SelectColumn
	for _, c := range linkableCols {
		args := make([]sqlplan.Expr, 0, len(aliasesSeen))
		for _, a := range aliasesSeen {
			args = append(args, sqlplan.ColumnRef{TableAlias: a, ColumnName: c})
		}
		selectCols = append(selectCols, sqlplan.SelectColumn{Expr: sqlplan.CoalesceExpr{Args: args}, Alias: c})
	}
	for _, p := range parents {
		selectCols = append(selectCols, nonLinkableSelectColumns(p.alias, p.ds.InstanceSet)...)
	}

	sel := &sqlplan.Select{
		Desc:          "combine aggregated outputs",
		SelectColumns: selectCols,
		From:          parents[0].ds.SQLNode,
		FromAlias:     parents[0].alias,
		Joins:         joinDescs,
		GroupBy:       linkableCols,
	}
	return dataset.SQLDataSet{InstanceSet: merged, SQLNode: sel}, nil
}

// compileConstrainTimeRange selects the finest-grain metric-time instance
// in the parent and emits a BETWEEN WHERE clause.
func (w *walker) compileConstrainTimeRange(n dataflow.ConstrainTimeRangeNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	var finest *spec.TimeDimensionInstance
	for i := range parent.InstanceSet.TimeDimensions {
		t := parent.InstanceSet.TimeDimensions[i]
		if t.Spec.ElementName != spec.MetricTimeElementName {
			continue
		}
		if finest == nil || t.Spec.Granularity.Rank() < finest.Spec.Granularity.Rank() {
			tCopy := t
			finest = &tCopy
		}
	}
	if finest == nil {
		return dataset.SQLDataSet{}, dfsqlerr.ErrMissingAggregationTimeDimension
	}

	outputSet, err := w.renormalize(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	where := sqlplan.BetweenExpr{
		Target: sqlplan.ColumnRef{TableAlias: fromAlias, ColumnName: finest.Column.ColumnName},
		Low:    sqlplan.Literal{Value: n.Range.Start},
		High:   sqlplan.Literal{Value: n.Range.End},
	}

	sel := &sqlplan.Select{
		Desc:          "constrain time range",
		SelectColumns: instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil),
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
		Where:         where,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileMetricTimeDimensionTransform keeps only measures whose declared
// aggregation time dimension matches the node's, and mirrors matching
// time-dimension instances as metric_time.
func (w *walker) compileMetricTimeDimensionTransform(n dataflow.MetricTimeDimensionTransformNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	var keptMeasures []spec.MeasureInstance
	for _, m := range parent.InstanceSet.Measures {
		modelAggDim, ok := w.c.Manifest.AggTimeDimensionForMeasure(m.Spec.ElementName)
		if ok && modelAggDim.Equal(n.AggregationTimeDimension) {
			keptMeasures = append(keptMeasures, m)
		} else if !ok {
			// No manifest entry: keep the measure unfiltered rather than
			// silently dropping it, since the lookup is an external
			// collaborator the core does not validate.
			keptMeasures = append(keptMeasures, m)
		}
	}

	outputSet := parent.InstanceSet.Clone()
	outputSet.Measures = keptMeasures

	mirrored := make([]spec.TimeDimensionInstance, 0)
	for _, t := range parent.InstanceSet.TimeDimensions {
		if len(t.Spec.EntityLinks) != 0 || t.Spec.ElementName != n.AggregationTimeDimension.ElementName || t.Spec.DatePart != "" {
			continue
		}
		metricTimeSpec := spec.NewTimeDimension(spec.MetricTimeElementName, t.Spec.Granularity)
		mirrored = append(mirrored, spec.TimeDimensionInstance{
			Spec:   metricTimeSpec,
			Column: w.c.Resolver.Resolve(metricTimeSpec),
			From:   t.From,
		})
	}
	outputSet.TimeDimensions = append(append([]spec.TimeDimensionInstance(nil), outputSet.TimeDimensions...), mirrored...)

	outputSet, err = w.renormalize(outputSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	sel := &sqlplan.Select{
		Desc:          "metric time dimension transform",
		SelectColumns: instanceset.CreateSelectColumnsForInstances(fromAlias, outputSet, nil),
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileSemiAdditiveJoin builds a first/last-value point-in-time
// snapshot.
func (w *walker) compileSemiAdditiveJoin(n dataflow.SemiAdditiveJoinNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	parentAlias := w.aliases.NextAlias()
	innerAlias := w.aliases.NextAlias()

	timeCol := w.c.Resolver.Resolve(n.TimeDimensionSpec).ColumnName

	aggFunc := sqlplan.AggMin
	if n.AggFunc == dataflow.SemiAdditiveMax {
		aggFunc = sqlplan.AggMax
	}

	var innerGroupBy []string
	var pairs [][2]string
	for _, e := range n.PartitionByEntities {
		innerGroupBy = append(innerGroupBy, string(e))
		pairs = append(pairs, [2]string{string(e), string(e)})
	}
	if n.QueriedTimeDimension != nil {
		qCol := w.c.Resolver.Resolve(*n.QueriedTimeDimension).ColumnName
		innerGroupBy = append(innerGroupBy, qCol)
		pairs = append(pairs, [2]string{qCol, qCol})
	}

	pinCol := timeCol + "__pin"
	innerSel := &sqlplan.Select{
		Desc:      "semi-additive pin",
		From:      parent.SQLNode,
		FromAlias: innerAlias,
		GroupBy:   innerGroupBy,
	}
	for _, g := range innerGroupBy {
		innerSel.SelectColumns = append(innerSel.SelectColumns, sqlplan.SelectColumn{
			Expr:  sqlplan.ColumnRef{TableAlias: innerAlias, ColumnName: g},
			Alias: g,
		})
	}
	innerSel.SelectColumns = append(innerSel.SelectColumns, sqlplan.SelectColumn{
		Expr:  sqlplan.AggregateExpr{Func: aggFunc, Operand: sqlplan.ColumnRef{TableAlias: innerAlias, ColumnName: timeCol}},
		Alias: pinCol,
	})

	pairs = append(pairs, [2]string{timeCol, pinCol})
	joinDesc := sqljoin.ColumnEquality(sqlplan.InnerJoin, innerSel, w.aliases.NextAlias(), parentAlias, pairs)

	outputSet, err := w.renormalize(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	sel := &sqlplan.Select{
		Desc:          "semi-additive join",
		SelectColumns: instanceset.CreateSelectColumnsForInstances(parentAlias, outputSet, nil),
		From:          parent.SQLNode,
		FromAlias:     parentAlias,
		Joins:         []sqlplan.JoinDescription{joinDesc},
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileJoinToTimeSpine densifies a parent against the calendar spine,
// emitting one derived column per requested granularity/date-part.
func (w *walker) compileJoinToTimeSpine(n dataflow.JoinToTimeSpineNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	parentAlias := w.aliases.NextAlias()

	aggTimeDim, ok := findTimeDimension(parent.InstanceSet, n.AggTimeDimensionSpec)
	if !ok {
		return dataset.SQLDataSet{}, dfsqlerr.Wrapf(dfsqlerr.ErrMissingAggregationTimeDimension, "join-to-time-spine: spec %s not found", n.AggTimeDimensionSpec.QualifiedName())
	}

	spineAlias := w.aliases.NextAlias()
	spineSelect, err := w.c.TimeSpine.MakeTimeSpineDataset(spineAlias, aggTimeDim.Spec.Granularity, nil)
	if err != nil {
		return dataset.SQLDataSet{}, dfsqlerr.Wrap(err, "join-to-time-spine: building time spine dataset")
	}
	spineCol := aggTimeDim.Spec.QualifiedName()

	joinDesc := sqljoin.JoinToTimeSpineAligned(toSQLJoinType(n.JoinType), parent.SQLNode, parentAlias, spineAlias, spineCol, parentAlias, aggTimeDim.Column.ColumnName)

	remainingSet, err := instanceset.FilterElements(nil, spec.NewSet(aggTimeDim.Spec))(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	remainingSet, err = w.renormalize(remainingSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	selectCols := instanceset.CreateSelectColumnsForInstances(parentAlias, remainingSet, nil)

	var derivedTimeDims []spec.TimeDimensionInstance
	var where []sqlplan.Expr
	for _, gran := range n.RequestedGranularities {
		var expr sqlplan.Expr = sqlplan.ColumnRef{TableAlias: spineAlias, ColumnName: spineCol}
		if gran != aggTimeDim.Spec.Granularity {
			expr = sqlplan.DateTruncExpr{Granularity: gran.String(), Target: expr}
		}
		outSpec := spec.NewTimeDimension(aggTimeDim.Spec.ElementName, gran, aggTimeDim.Spec.EntityLinks...)
		col := w.c.Resolver.Resolve(outSpec)
		selectCols = append(selectCols, sqlplan.SelectColumn{Expr: expr, Alias: col.ColumnName})
		derivedTimeDims = append(derivedTimeDims, spec.TimeDimensionInstance{Spec: outSpec, Column: col, From: aggTimeDim.From})

		if n.OffsetToGrain != nil && gran != *n.OffsetToGrain {
			truncd := sqlplan.DateTruncExpr{Granularity: n.OffsetToGrain.String(), Target: sqlplan.ColumnRef{TableAlias: spineAlias, ColumnName: spineCol}}
			where = append(where, sqlplan.BinaryExpr{Op: sqlplan.OpEquals, Left: truncd, Right: sqlplan.ColumnRef{TableAlias: spineAlias, ColumnName: spineCol}})
		}
	}
	for _, part := range n.RequestedDateParts {
		expr := sqlplan.Expr(sqlplan.ExtractExpr{DatePart: string(part), Target: sqlplan.ColumnRef{TableAlias: spineAlias, ColumnName: spineCol}})
		outSpec := aggTimeDim.Spec.WithDatePart(part)
		col := w.c.Resolver.Resolve(outSpec)
		selectCols = append(selectCols, sqlplan.SelectColumn{Expr: expr, Alias: col.ColumnName})
		derivedTimeDims = append(derivedTimeDims, spec.TimeDimensionInstance{Spec: outSpec, Column: col, From: aggTimeDim.From})
	}

	outputSet := remainingSet.Clone()
	outputSet.TimeDimensions = append(outputSet.TimeDimensions, derivedTimeDims...)

	var whereExpr sqlplan.Expr
	for _, w2 := range where {
		if whereExpr == nil {
			whereExpr = w2
		} else {
			whereExpr = sqlplan.BinaryExpr{Op: sqlplan.OpAnd, Left: whereExpr, Right: w2}
		}
	}

	sel := &sqlplan.Select{
		Desc:          "join to time spine",
		SelectColumns: selectCols,
		From:          spineSelect,
		FromAlias:     spineAlias,
		Joins:         []sqlplan.JoinDescription{joinDesc},
		Where:         whereExpr,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileMinMax emits MIN/MAX over the parent's single column as metadata
// instances.
func (w *walker) compileMinMax(n dataflow.MinMaxNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	all := parent.InstanceSet.AllInstances()
	if len(all) != 1 {
		return dataset.SQLDataSet{}, dfsqlerr.ErrColumnCountMismatch
	}
	col := all[0].Columns()[0]
	ref := sqlplan.ColumnRef{TableAlias: fromAlias, ColumnName: col.ColumnName}

	minName := resolver.MetadataColumnName(col.ColumnName, "min", 0)
	maxName := resolver.MetadataColumnName(col.ColumnName, "max", 0)

	outputSet := spec.Empty()
	outputSet.Metadata = []spec.MetadataInstance{
		{Spec: spec.New(minName), Column: spec.ColumnAssociation{ColumnName: minName}},
		{Spec: spec.New(maxName), Column: spec.ColumnAssociation{ColumnName: maxName}},
	}

	sel := &sqlplan.Select{
		Desc: "min max",
		SelectColumns: []sqlplan.SelectColumn{
			{Expr: sqlplan.AggregateExpr{Func: sqlplan.AggMin, Operand: ref}, Alias: minName},
			{Expr: sqlplan.AggregateExpr{Func: sqlplan.AggMax, Operand: ref}, Alias: maxName},
		},
		From:      parent.SQLNode,
		FromAlias: fromAlias,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileAddGeneratedUUIDColumn appends a UUID-generating metadata column.
func (w *walker) compileAddGeneratedUUIDColumn(n dataflow.AddGeneratedUUIDColumnNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	fromAlias := w.aliases.NextAlias()

	renormed, err := w.renormalize(parent.InstanceSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	const uuidCol = "mf_internal_uuid"
	outputSet := renormed.Clone()
	outputSet.Metadata = append(outputSet.Metadata, spec.MetadataInstance{
		Spec:   spec.New(uuidCol),
		Column: spec.ColumnAssociation{ColumnName: uuidCol},
	})

	selectCols := instanceset.CreateSelectColumnsForInstances(fromAlias, renormed, nil)
	selectCols = append(selectCols, sqlplan.SelectColumn{Expr: sqlplan.UUIDExpr{}, Alias: uuidCol})

	sel := &sqlplan.Select{
		Desc:          "add generated uuid column",
		SelectColumns: selectCols,
		From:          parent.SQLNode,
		FromAlias:     fromAlias,
	}
	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: sel}, nil
}

// compileJoinConversionEvents produces a deduplicated set of
// (base-event, conversion-event) pairs via a "closest opportunity"
// FIRST_VALUE window.
func (w *walker) compileJoinConversionEvents(n dataflow.JoinConversionEventsNode) (dataset.SQLDataSet, error) {
	base, err := w.compile(n.BaseNode)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	conv, err := w.compile(n.ConversionNode)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	baseAlias := w.aliases.NextAlias()
	convAlias := w.aliases.NextAlias()
	joinAlias := w.aliases.NextAlias()

	entityPairs := make([][2]string, 0, len(n.EntitySpecs))
	for _, e := range n.EntitySpecs {
		colName := w.c.Resolver.Resolve(e).ColumnName
		entityPairs = append(entityPairs, [2]string{colName, colName})
	}
	baseTimeCol := w.c.Resolver.Resolve(n.BaseTimeDimensionSpec).ColumnName
	convTimeCol := w.c.Resolver.Resolve(n.ConversionTimeDimensionSpec).ColumnName

	constPairs := make([][2]string, 0, len(n.ConstantPropertySpecs))
	for _, cp := range n.ConstantPropertySpecs {
		constPairs = append(constPairs, [2]string{w.c.Resolver.Resolve(cp.BaseSpec).ColumnName, w.c.Resolver.Resolve(cp.ConversionSpec).ColumnName})
	}

	joinDesc := sqljoin.Conversion(conv.SQLNode, convAlias, baseAlias, convAlias, entityPairs, baseTimeCol, convTimeCol, n.WindowCount, n.WindowUnit, constPairs)

	joinedSel := &sqlplan.Select{
		Desc:      "join conversion events",
		From:      base.SQLNode,
		FromAlias: baseAlias,
		Joins:     []sqlplan.JoinDescription{joinDesc},
	}

	partitionBy := []sqlplan.Expr{sqlplan.ColumnRef{TableAlias: convAlias, ColumnName: convTimeCol}}
	for _, e := range n.EntitySpecs {
		colName := w.c.Resolver.Resolve(e).ColumnName
		partitionBy = append(partitionBy, sqlplan.ColumnRef{TableAlias: baseAlias, ColumnName: colName})
	}
	for _, u := range n.UniqueIdentifierKeys {
		partitionBy = append(partitionBy, sqlplan.ColumnRef{TableAlias: convAlias, ColumnName: w.c.Resolver.Resolve(u).ColumnName})
	}
	for _, cp := range n.ConstantPropertySpecs {
		partitionBy = append(partitionBy, sqlplan.ColumnRef{TableAlias: baseAlias, ColumnName: w.c.Resolver.Resolve(cp.BaseSpec).ColumnName})
	}

	var windowCols []sqlplan.SelectColumn
	var baseLinkables []spec.Instance
	for _, l := range base.InstanceSet.Linkables() {
		col := l.Columns()[0]
		windowCols = append(windowCols, sqlplan.SelectColumn{
			Expr: sqlplan.WindowExpr{
				Func:        "FIRST_VALUE",
				Operand:     sqlplan.ColumnRef{TableAlias: baseAlias, ColumnName: col.ColumnName},
				PartitionBy: partitionBy,
				OrderBy:     []sqlplan.OrderByExpr{{Expr: sqlplan.ColumnRef{TableAlias: baseAlias, ColumnName: baseTimeCol}, Descending: true}},
			},
			Alias: col.ColumnName,
		})
		baseLinkables = append(baseLinkables, l)
	}
	convMeasureCol := w.c.Resolver.Resolve(n.ConversionMeasureSpec).ColumnName
	windowCols = append(windowCols, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: convAlias, ColumnName: convMeasureCol}, Alias: convMeasureCol})
	for _, u := range n.UniqueIdentifierKeys {
		c := w.c.Resolver.Resolve(u).ColumnName
		windowCols = append(windowCols, sqlplan.SelectColumn{Expr: sqlplan.ColumnRef{TableAlias: convAlias, ColumnName: c}, Alias: c})
	}
	joinedSel.SelectColumns = windowCols

	// Wrap in DISTINCT over (base columns + conversion unique keys +
	// conversion measure) to collapse fanout.
	distinctSel := &sqlplan.Select{
		Desc:          "join conversion events (distinct)",
		From:          joinedSel,
		FromAlias:     joinAlias,
		Distinct:      true,
		SelectColumns: nil,
	}
	for _, c := range windowCols[len(baseLinkables):] {
		distinctSel.SelectColumns = append(distinctSel.SelectColumns, sqlplan.SelectColumn{
			Expr:  sqlplan.ColumnRef{TableAlias: joinAlias, ColumnName: c.Alias},
			Alias: c.Alias,
		})
	}
	for _, l := range baseLinkables {
		col := l.Columns()[0]
		distinctSel.SelectColumns = append([]sqlplan.SelectColumn{{
			Expr:  sqlplan.ColumnRef{TableAlias: joinAlias, ColumnName: col.ColumnName},
			Alias: col.ColumnName,
		}}, distinctSel.SelectColumns...)
	}

	outputSet := base.InstanceSet.Clone()
	outputSet.Measures = nil
	outputSet.Metrics = nil
	outputSet.Metadata = nil
	outputSet.Measures = append(outputSet.Measures, spec.MeasureInstance{
		Spec:     n.ConversionMeasureSpec,
		Column:   spec.ColumnAssociation{ColumnName: convMeasureCol},
		AggState: spec.NonAggregated,
	})
	outputSet, err = w.renormalize(outputSet)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}

	return dataset.SQLDataSet{InstanceSet: outputSet, SQLNode: distinctSel}, nil
}

// compileWriteToResultTable wraps the parent SELECT in a CREATE TABLE AS
// node.
func (w *walker) compileWriteToResultTable(n dataflow.WriteToResultTableNode) (dataset.SQLDataSet, error) {
	parent, err := w.compile(n.Parent)
	if err != nil {
		return dataset.SQLDataSet{}, err
	}
	sel, ok := parent.SQLNode.(*sqlplan.Select)
	if !ok {
		return dataset.SQLDataSet{}, dfsqlerr.Wrapf(dfsqlerr.ErrUnexpectedParentNode, "write-to-result-table requires a SELECT parent, got %T", parent.SQLNode)
	}
	return dataset.SQLDataSet{
		InstanceSet: parent.InstanceSet,
		SQLNode:     &sqlplan.CreateTableAs{Desc: "write to result table", TableName: n.TableName, Select: sel},
	}, nil
}
