package main

import (
	"github.com/godosou/dfsql/compiler/internal/dataset"
	"github.com/godosou/dfsql/dataflow"
	"github.com/godosou/dfsql/manifest"
	"github.com/godosou/dfsql/spec"
)

// planRequest is the CLI-level query shape: produce one or more metrics
// out of a single semantic model, grouped by a set of its dimensions and
// entities, written to a result table.
type planRequest struct {
	Metrics     []string
	GroupBy     []string
	ResultTable string
}

// buildPlan assembles the dataflow node tree a planRequest describes:
// read the source, aggregate the measures every requested metric
// consumes, compute the metrics, optionally project down to the
// requested group-by columns, then write the result.
//
// This mirrors, at CLI scale, the job the upstream logical planner
// (out of scope for the compiler package) would do for a full query
// engine: turn a declarative request into the closed node set the
// walker consumes.
func buildPlan(src dataset.SQLDataSet, m *manifest.InMemory, req planRequest) (dataflow.Node, error) {
	var parent dataflow.Node = dataflow.ReadSourceNode{Dataset: src}

	inputMeasures, metricRequests, err := resolveMetricInputs(m, req.Metrics)
	if err != nil {
		return nil, err
	}

	if len(inputMeasures) > 0 {
		parent = dataflow.AggregateMeasuresNode{Parent: parent, MetricInputMeasures: inputMeasures}
		parent = dataflow.ComputeMetricsNode{Parent: parent, Metrics: metricRequests}
	}

	if len(req.GroupBy) > 0 {
		includeSpecs := make([]spec.Spec, 0, len(req.GroupBy)+len(req.Metrics))
		for _, g := range req.GroupBy {
			includeSpecs = append(includeSpecs, spec.New(g))
		}
		for _, metricName := range req.Metrics {
			includeSpecs = append(includeSpecs, spec.New(metricName))
		}
		parent = dataflow.FilterElementsNode{Parent: parent, IncludeSpecs: includeSpecs}
	}

	return dataflow.WriteToResultTableNode{Parent: parent, TableName: req.ResultTable}, nil
}

// resolveMetricInputs looks up every requested metric in m and flattens
// their input measures into the deduplicated set aggregate-measures
// needs, plus the compute-metrics request list in the order requested.
func resolveMetricInputs(m *manifest.InMemory, metricNames []string) ([]dataflow.MetricInputMeasureSpec, []dataflow.MetricRequest, error) {
	seen := make(map[string]bool)
	var inputs []dataflow.MetricInputMeasureSpec
	requests := make([]dataflow.MetricRequest, 0, len(metricNames))

	for _, name := range metricNames {
		def, ok := m.GetMetric(name)
		if !ok {
			return nil, nil, errUnknownMetric(name)
		}
		for _, im := range def.InputMeasures {
			key := im.MeasureSpec.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			inputs = append(inputs, dataflow.MetricInputMeasureSpec{
				MeasureSpec:   im.MeasureSpec,
				Alias:         im.Alias,
				FillNullsWith: im.FillNullsWith,
			})
		}
		requests = append(requests, dataflow.MetricRequest{MetricRef: name})
	}

	return inputs, requests, nil
}
