// Package instanceset is the instance-set algebra: a library of pure
// transforms over spec.InstanceSet. Every transform here
// has the shape spec.InstanceSetTransform so it composes via Apply and
// via (*spec.InstanceSet).Transform.
package instanceset

import (
	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/resolver"
	"github.com/godosou/dfsql/spec"
)

// Apply threads set through each transform in order, stopping at the
// first error. Transforms within a handler are typically order-independent
// of one another, but Apply always runs them left-to-right for determinism.
func Apply(set *spec.InstanceSet, transforms ...spec.InstanceSetTransform) (*spec.InstanceSet, error) {
	cur := set
	for _, t := range transforms {
		next, err := t(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// ChangeAssociatedColumns re-resolves every instance's column name
// through r. It is idempotent: re-running it after it has already run
// yields the same instance set, because Resolver.Resolve is a pure
// function of the spec alone.
func ChangeAssociatedColumns(r resolver.Resolver) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, m := range out.Measures {
			out.Measures[i] = m.WithColumns([]spec.ColumnAssociation{r.Resolve(m.Spec)}).(spec.MeasureInstance)
		}
		for i, d := range out.Dimensions {
			out.Dimensions[i] = d.WithColumns([]spec.ColumnAssociation{r.Resolve(d.Spec)}).(spec.DimensionInstance)
		}
		for i, t := range out.TimeDimensions {
			out.TimeDimensions[i] = t.WithColumns([]spec.ColumnAssociation{r.Resolve(t.Spec)}).(spec.TimeDimensionInstance)
		}
		for i, e := range out.Entities {
			out.Entities[i] = e.WithColumns([]spec.ColumnAssociation{r.Resolve(e.Spec)}).(spec.EntityInstance)
		}
		for i, m := range out.Metrics {
			out.Metrics[i] = m.WithColumns([]spec.ColumnAssociation{r.Resolve(m.Spec)}).(spec.MetricInstance)
		}
		for i, g := range out.GroupByMetrics {
			out.GroupByMetrics[i] = g.WithColumns([]spec.ColumnAssociation{r.Resolve(g.Spec)}).(spec.GroupByMetricInstance)
		}
		// Metadata instances are never resolver-driven: their column names
		// are minted directly by the node that introduced them.
		return out, nil
	}
}

// FilterElements keeps only instances whose spec is in include (when
// include is non-nil) and drops those whose spec is in exclude (when
// exclude is non-nil). Passing both filters in one call avoids an extra
// pass over every category.
func FilterElements(include, exclude *spec.Set) spec.InstanceSetTransform {
	keep := func(sp spec.Spec) bool {
		if include != nil && !include.Contains(sp) {
			return false
		}
		if exclude != nil && exclude.Contains(sp) {
			return false
		}
		return true
	}
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := spec.Empty()
		for _, m := range s.Measures {
			if keep(m.Spec) {
				out.Measures = append(out.Measures, m)
			}
		}
		for _, d := range s.Dimensions {
			if keep(d.Spec) {
				out.Dimensions = append(out.Dimensions, d)
			}
		}
		for _, t := range s.TimeDimensions {
			if keep(t.Spec) {
				out.TimeDimensions = append(out.TimeDimensions, t)
			}
		}
		for _, e := range s.Entities {
			if keep(e.Spec) {
				out.Entities = append(out.Entities, e)
			}
		}
		for _, m := range s.Metrics {
			if keep(m.Spec) {
				out.Metrics = append(out.Metrics, m)
			}
		}
		for _, g := range s.GroupByMetrics {
			if keep(g.Spec) {
				out.GroupByMetrics = append(out.GroupByMetrics, g)
			}
		}
		for _, md := range s.Metadata {
			if keep(md.Spec) {
				out.Metadata = append(out.Metadata, md)
			}
		}
		return out, nil
	}
}

// FilterLinkablesWithLeadingLink drops every linkable instance (dimension,
// time dimension, entity) whose first entity link equals entity. Used by
// Join-on-entities to avoid path duplication.
func FilterLinkablesWithLeadingLink(entity spec.EntityLink) spec.InstanceSetTransform {
	matches := func(sp spec.Spec) bool {
		lead, ok := sp.LeadingLink()
		return ok && lead == entity
	}
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.Dimensions = filterOutDims(out.Dimensions, matches)
		out.TimeDimensions = filterOutTimeDims(out.TimeDimensions, matches)
		out.Entities = filterOutEntities(out.Entities, matches)
		return out, nil
	}
}

// AddLinkToLinkables prepends entity to every linkable instance's
// entity-link chain.
func AddLinkToLinkables(entity spec.EntityLink) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, d := range out.Dimensions {
			out.Dimensions[i] = d.WithSpec(d.Spec.WithLeadingLink(entity)).(spec.DimensionInstance)
		}
		for i, t := range out.TimeDimensions {
			out.TimeDimensions[i] = t.WithSpec(t.Spec.WithLeadingLink(entity)).(spec.TimeDimensionInstance)
		}
		for i, e := range out.Entities {
			out.Entities[i] = e.WithSpec(e.Spec.WithLeadingLink(entity)).(spec.EntityInstance)
		}
		return out, nil
	}
}

// ChangeMeasureAggregationState remaps each measure's aggregation state
// through a fixed {from: to} dictionary. A measure whose current state has
// no entry fails the transform with dfsqlerr.ErrUnknownAggregationState.
func ChangeMeasureAggregationState(mapping map[spec.AggregationState]spec.AggregationState) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, m := range out.Measures {
			to, ok := mapping[m.AggState]
			if !ok {
				return nil, dfsqlerr.Wrapf(dfsqlerr.ErrUnknownAggregationState, "measure %s in state %v", m.Spec.ElementName, m.AggState)
			}
			out.Measures[i] = m.WithState(to)
		}
		return out, nil
	}
}

// PromoteAllMeasuresTo sets every measure's aggregation state to state
// unconditionally.
func PromoteAllMeasuresTo(state spec.AggregationState) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, m := range out.Measures {
			out.Measures[i] = m.WithState(state)
		}
		return out, nil
	}
}

// UpdateMeasureFillNullsWith copies FillNullsWith from the metric-input
// spec map onto the matching measure instance.
func UpdateMeasureFillNullsWith(fillBySpecKey map[string]int64) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, m := range out.Measures {
			if v, ok := fillBySpecKey[m.Spec.Key()]; ok {
				v := v
				m.FillNullsWith = &v
				out.Measures[i] = m
			}
		}
		return out, nil
	}
}

// AliasAggregatedMeasures renames measure instances per a spec-key ->
// new-element-name map, used when an input measure spec carries an alias.
func AliasAggregatedMeasures(aliasBySpecKey map[string]string) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		for i, m := range out.Measures {
			if newName, ok := aliasBySpecKey[m.Spec.Key()]; ok {
				m.Spec.ElementName = newName
				out.Measures[i] = m
			}
		}
		return out, nil
	}
}

// RemoveMeasures drops every measure instance.
func RemoveMeasures() spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.Measures = nil
		return out, nil
	}
}

// RemoveMetrics drops every metric instance.
func RemoveMetrics() spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.Metrics = nil
		return out, nil
	}
}

// ConvertToMetadata reclassifies measure and dimension instances matching
// specSet as metadata instances, preserving their resolved column. Matching
// time dimensions, entities, metrics and group-by metrics are left in place.
func ConvertToMetadata(specSet *spec.Set) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		var newMeasures []spec.MeasureInstance
		for _, m := range out.Measures {
			if specSet.Contains(m.Spec) {
				out.Metadata = append(out.Metadata, spec.MetadataInstance{Spec: m.Spec, Column: m.Column})
				continue
			}
			newMeasures = append(newMeasures, m)
		}
		out.Measures = newMeasures
		var newDims []spec.DimensionInstance
		for _, d := range out.Dimensions {
			if specSet.Contains(d.Spec) {
				out.Metadata = append(out.Metadata, spec.MetadataInstance{Spec: d.Spec, Column: d.Column})
				continue
			}
			newDims = append(newDims, d)
		}
		out.Dimensions = newDims
		return out, nil
	}
}

// AddMetadata appends metadata instances to the set.
func AddMetadata(instances ...spec.MetadataInstance) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.Metadata = append(out.Metadata, instances...)
		return out, nil
	}
}

// AddMetrics appends metric instances to the set.
func AddMetrics(instances ...spec.MetricInstance) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.Metrics = append(out.Metrics, instances...)
		return out, nil
	}
}

// AddGroupByMetric appends a single group-by-metric instance.
func AddGroupByMetric(instance spec.GroupByMetricInstance) spec.InstanceSetTransform {
	return func(s *spec.InstanceSet) (*spec.InstanceSet, error) {
		out := s.Clone()
		out.GroupByMetrics = append(out.GroupByMetrics, instance)
		return out, nil
	}
}

func filterOutDims(in []spec.DimensionInstance, drop func(spec.Spec) bool) []spec.DimensionInstance {
	var out []spec.DimensionInstance
	for _, d := range in {
		if !drop(d.Spec) {
			out = append(out, d)
		}
	}
	return out
}

func filterOutTimeDims(in []spec.TimeDimensionInstance, drop func(spec.Spec) bool) []spec.TimeDimensionInstance {
	var out []spec.TimeDimensionInstance
	for _, t := range in {
		if !drop(t.Spec) {
			out = append(out, t)
		}
	}
	return out
}

func filterOutEntities(in []spec.EntityInstance, drop func(spec.Spec) bool) []spec.EntityInstance {
	var out []spec.EntityInstance
	for _, e := range in {
		if !drop(e.Spec) {
			out = append(out, e)
		}
	}
	return out
}
