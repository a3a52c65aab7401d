// Package dataflow defines the closed set of dataflow-plan node variants
// that form the plan walker's input. The upstream logical
// planner that produces these nodes is out of scope; this
// package only declares the shape the compiler consumes.
package dataflow

import (
	"github.com/godosou/dfsql/compiler/internal/dataset"
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/timespine"
)

// Node is the sum type of dataflow plan nodes. The compiler's walker
// type-switches over this closed set; see Design Notes "Dynamic dispatch
// -> closed tagged variants".
type Node interface {
	isDataflowNode()
	Description() string
}

type base struct{ Desc string }

func (b base) Description() string { return b.Desc }

// ReadSourceNode is a leaf: it carries the dataset (instance set + SQL
// node) produced by the upstream logical planner verbatim.
type ReadSourceNode struct {
	base
	Dataset dataset.SQLDataSet
}

func (ReadSourceNode) isDataflowNode() {}

// TimeRange restricts a node to a closed interval of time. Adjustable
// marks whether the interval is safe to push down into a spine-side WHERE
// clause.
type TimeRange struct {
	Start      string
	End        string
	Adjustable bool
}

// JoinOverTimeRangeNode realizes cumulative-window metrics.
type JoinOverTimeRangeNode struct {
	base
	Parent               Node
	TimeDimensionSpecForJoin spec.Spec
	WindowCount          int    // 0 means windowless ("all time")
	WindowUnit           string
	IsGrainToDate        bool
	GrainToDateGranularity spec.Granularity
	TimeRangeConstraint  *TimeRange
}

func (JoinOverTimeRangeNode) isDataflowNode() {}

// JoinTarget is one right-hand side of a Join-on-entities node.
type JoinTarget struct {
	JoinNode     Node
	JoinOnEntity spec.EntityLink
	Type         JoinKind
}

// JoinKind is the closed set of dataflow-level join intents.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinCross
)

// JoinOnEntitiesNode joins a left parent to N right-hand targets on
// shared entities.
type JoinOnEntitiesNode struct {
	base
	Left        Node
	JoinTargets []JoinTarget
}

func (JoinOnEntitiesNode) isDataflowNode() {}

// AggregateMeasuresNode promotes every measure to COMPLETE and emits an
// aggregated SELECT.
type AggregateMeasuresNode struct {
	base
	Parent               Node
	MetricInputMeasures  []MetricInputMeasureSpec
}

func (AggregateMeasuresNode) isDataflowNode() {}

// MetricInputMeasureSpec names one measure input a metric definition
// consumes, with optional per-metric alias / fill-nulls-with overrides.
type MetricInputMeasureSpec struct {
	MeasureSpec   spec.Spec
	Alias         string
	FillNullsWith *int64
}

// MetricRequest is one metric compute-metrics is asked to produce.
type MetricRequest struct {
	MetricRef string
}

// ComputeMetricsNode computes one or more metrics from aggregated measures.
type ComputeMetricsNode struct {
	base
	Parent           Node
	Metrics          []MetricRequest
	ForGroupBySource bool
}

func (ComputeMetricsNode) isDataflowNode() {}

// OrderByLimitNode wraps its parent in an ORDER BY / LIMIT.
type OrderByLimitNode struct {
	base
	Parent  Node
	OrderBy []OrderBySpec
	Limit   *int
}

// OrderBySpec orders by a spec, optionally descending.
type OrderBySpec struct {
	Spec       spec.Spec
	Descending bool
}

func (OrderByLimitNode) isDataflowNode() {}

// FilterElementsNode projects to a requested spec set.
type FilterElementsNode struct {
	base
	Parent      Node
	IncludeSpecs []spec.Spec
	Distinct    bool
}

func (FilterElementsNode) isDataflowNode() {}

// WhereConstraintNode wraps its parent in a raw WHERE expression.
type WhereConstraintNode struct {
	base
	Parent            Node
	WhereSQLTemplate  string // opaque SQL text; referenced columns below
	LinkableSpecs     []spec.Spec
}

func (WhereConstraintNode) isDataflowNode() {}

// CombineAggregatedOutputsNode joins N >= 2 parents that share an
// identical linkable-spec set.
type CombineAggregatedOutputsNode struct {
	base
	Parents []Node
}

func (CombineAggregatedOutputsNode) isDataflowNode() {}

// ConstrainTimeRangeNode filters the finest-grain metric-time instance to
// a BETWEEN range.
type ConstrainTimeRangeNode struct {
	base
	Parent Node
	Range  TimeRange
}

func (ConstrainTimeRangeNode) isDataflowNode() {}

// MetricTimeDimensionTransformNode mirrors time-dimension instances
// matching a declared aggregation time dimension as metric_time.
type MetricTimeDimensionTransformNode struct {
	base
	Parent                Node
	AggregationTimeDimension spec.Spec
}

func (MetricTimeDimensionTransformNode) isDataflowNode() {}

// SemiAdditiveJoinNode implements first/last-value point-in-time
// snapshots.
type SemiAdditiveJoinNode struct {
	base
	Parent              Node
	TimeDimensionSpec   spec.Spec
	AggFunc             SemiAdditiveAgg
	PartitionByEntities []spec.EntityLink
	QueriedTimeDimension *spec.Spec
}

// SemiAdditiveAgg is the closed set {MIN, MAX} for semi-additive pinning.
type SemiAdditiveAgg int

const (
	SemiAdditiveMin SemiAdditiveAgg = iota
	SemiAdditiveMax
)

func (SemiAdditiveJoinNode) isDataflowNode() {}

// JoinToTimeSpineNode densifies a parent against the time spine.
type JoinToTimeSpineNode struct {
	base
	Parent               Node
	AggTimeDimensionSpec spec.Spec
	RequestedGranularities []spec.Granularity
	RequestedDateParts   []spec.DatePart
	JoinType             JoinKind
	OffsetToGrain        *spec.Granularity
}

func (JoinToTimeSpineNode) isDataflowNode() {}

// MinMaxNode emits MIN/MAX metadata columns over its parent's single column.
type MinMaxNode struct {
	base
	Parent Node
}

func (MinMaxNode) isDataflowNode() {}

// AddGeneratedUUIDColumnNode appends a UUID-generating metadata column.
type AddGeneratedUUIDColumnNode struct {
	base
	Parent Node
}

func (AddGeneratedUUIDColumnNode) isDataflowNode() {}

// JoinConversionEventsNode produces deduplicated (base-event,
// conversion-event) pairs.
type JoinConversionEventsNode struct {
	base
	BaseNode                Node
	ConversionNode          Node
	EntitySpecs             []spec.Spec
	BaseTimeDimensionSpec   spec.Spec
	ConversionTimeDimensionSpec spec.Spec
	WindowCount             int
	WindowUnit              string
	ConstantPropertySpecs   []ConstantPropertyPair
	ConversionMeasureSpec   spec.Spec
	UniqueIdentifierKeys    []spec.Spec
}

// ConstantPropertyPair names a base-side and conversion-side spec that
// must be equal for a conversion event to count.
type ConstantPropertyPair struct {
	BaseSpec       spec.Spec
	ConversionSpec spec.Spec
}

func (JoinConversionEventsNode) isDataflowNode() {}

// WriteToResultDataTableNode is a no-op pass-through: the data-table
// variant has no SQL representation.
type WriteToResultDataTableNode struct {
	base
	Parent Node
}

func (WriteToResultDataTableNode) isDataflowNode() {}

// WriteToResultTableNode wraps its parent in a CREATE TABLE AS targeting
// TableName.
type WriteToResultTableNode struct {
	base
	Parent    Node
	TableName string
}

func (WriteToResultTableNode) isDataflowNode() {}

// TimeSpineRange adapts TimeRange to timespine.Range for nodes that defer
// to the time-spine service.
func (r TimeRange) TimeSpineRange() *timespine.Range {
	if r.Start == "" && r.End == "" {
		return nil
	}
	return &timespine.Range{Start: r.Start, End: r.End}
}
