// Package manifest declares the semantic-manifest lookup collaborator:
// get_metric, get_semantic_model, agg_time_dimension_for_measure. The
// compiler treats manifest loading as out of scope and depends only on
// this narrow interface.
package manifest

import "github.com/godosou/dfsql/spec"

// MetricType is the closed enumeration compute-metrics dispatches on.
type MetricType int

const (
	MetricSimple MetricType = iota
	MetricRatio
	MetricCumulative
	MetricDerived
	MetricConversionRate
	MetricConversions
)

// MetricInputMeasure names one measure a metric definition consumes,
// plus the per-metric overrides (alias, fill-nulls-with) that
// Aggregate-measures and Update-measure-fill-nulls-with apply.
type MetricInputMeasure struct {
	MeasureSpec   spec.Spec
	Alias         string
	FillNullsWith *int64
}

// MetricDefinition is the subset of a metric's manifest entry the
// compiler needs.
type MetricDefinition struct {
	Name            string
	Type            MetricType
	InputMeasures   []MetricInputMeasure // simple, cumulative: len 1; ratio: numerator+denominator
	NumeratorAlias  string               // ratio only
	DenominatorAlias string              // ratio only
	DerivedExprSQL  string               // derived only: opaque expression text
	DerivedReferencedColumns []string    // derived only
	ConversionMeasureAlias string        // conversion only
	BaseMeasureAlias        string        // conversion only
}

// SemanticModelDefinition is the subset of a semantic model's manifest
// entry the compiler needs: which time dimension each of its measures
// aggregates against.
type SemanticModelDefinition struct {
	Name                       string
	AggTimeDimensionByMeasure map[string]spec.Spec
}

// Lookup is the manifest collaborator interface.
type Lookup interface {
	GetMetric(ref string) (MetricDefinition, bool)
	GetSemanticModel(ref string) (SemanticModelDefinition, bool)
	AggTimeDimensionForMeasure(measureRef string) (spec.Spec, bool)
}

// InMemory is a trivial Lookup backed by maps, for tests and small
// deployments that load their manifest once at startup.
type InMemory struct {
	Metrics        map[string]MetricDefinition
	SemanticModels map[string]SemanticModelDefinition
	AggTimeDims    map[string]spec.Spec
}

// NewInMemory constructs an empty in-memory manifest lookup.
func NewInMemory() *InMemory {
	return &InMemory{
		Metrics:        make(map[string]MetricDefinition),
		SemanticModels: make(map[string]SemanticModelDefinition),
		AggTimeDims:    make(map[string]spec.Spec),
	}
}

func (m *InMemory) GetMetric(ref string) (MetricDefinition, bool) {
	d, ok := m.Metrics[ref]
	return d, ok
}

func (m *InMemory) GetSemanticModel(ref string) (SemanticModelDefinition, bool) {
	d, ok := m.SemanticModels[ref]
	return d, ok
}

func (m *InMemory) AggTimeDimensionForMeasure(measureRef string) (spec.Spec, bool) {
	d, ok := m.AggTimeDims[measureRef]
	return d, ok
}
