package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/godosou/dfsql/compiler/internal/dataset"
	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/manifest"
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
	"github.com/godosou/dfsql/timespine"
)

// errUnknownSemanticModel is raised when a --semantic-model flag names a
// model absent from the loaded catalog.
var errUnknownSemanticModel = errors.New("dfsqlc: unknown semantic model")

// errUnknownMetricRef is raised when a --metric flag names a metric
// absent from the loaded catalog.
var errUnknownMetricRef = errors.New("dfsqlc: unknown metric")

func errUnknownMetric(name string) error {
	return dfsqlerr.Wrapf(errUnknownMetricRef, "%q", name)
}

// catalogFile is the on-disk description of the semantic models and
// metrics a compile run draws from: a small, flat stand-in for the
// manifest a real deployment would load from its semantic layer.
type catalogFile struct {
	TimeSpine      catalogTimeSpine                `json:"time_spine"`
	SemanticModels map[string]catalogSemanticModel `json:"semantic_models"`
	Metrics        map[string]catalogMetric        `json:"metrics"`
}

type catalogTimeSpine struct {
	Table       string `json:"table"`
	Column      string `json:"column"`
	Granularity string `json:"granularity"`
}

type catalogSemanticModel struct {
	Table      string             `json:"table"`
	Measures   []catalogMeasure   `json:"measures"`
	Dimensions []catalogDimension `json:"dimensions"`
	Entities   []string           `json:"entities"`
}

type catalogMeasure struct {
	Name             string `json:"name"`
	AggTimeDimension string `json:"agg_time_dimension"`
}

type catalogDimension struct {
	Name        string `json:"name"`
	Time        bool   `json:"time"`
	Granularity string `json:"granularity"`
}

type catalogMetric struct {
	Type          string                `json:"type"`
	InputMeasures []catalogInputMeasure `json:"input_measures"`
}

type catalogInputMeasure struct {
	Measure string `json:"measure"`
	Alias   string `json:"alias"`
}

func loadCatalog(path string) (*catalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dfsqlerr.Wrapf(err, "open catalog %q", path)
	}
	defer f.Close()

	var c catalogFile
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, dfsqlerr.Wrapf(err, "decode catalog %q", path)
	}
	return &c, nil
}

func parseGranularity(s string) spec.Granularity {
	switch s {
	case "day":
		return spec.GranularityDay
	case "week":
		return spec.GranularityWeek
	case "month":
		return spec.GranularityMonth
	case "quarter":
		return spec.GranularityQuarter
	case "year":
		return spec.GranularityYear
	default:
		return spec.GranularityUnknown
	}
}

func parseMetricType(s string) (manifest.MetricType, error) {
	switch s {
	case "simple":
		return manifest.MetricSimple, nil
	case "ratio":
		return manifest.MetricRatio, nil
	case "cumulative":
		return manifest.MetricCumulative, nil
	case "derived":
		return manifest.MetricDerived, nil
	case "conversion_rate":
		return manifest.MetricConversionRate, nil
	case "conversions":
		return manifest.MetricConversions, nil
	default:
		return 0, dfsqlerr.Wrapf(dfsqlerr.ErrUnknownMetricType, "catalog metric type %q", s)
	}
}

// buildTimeSpine turns the catalog's time-spine declaration into a
// service, the same collaborator compiler.New expects.
func buildTimeSpine(c *catalogFile) *timespine.Service {
	return timespine.NewService(timespine.StaticSource{
		Table:       c.TimeSpine.Table,
		Column:      c.TimeSpine.Column,
		Granularity: parseGranularity(c.TimeSpine.Granularity),
	})
}

// buildManifest projects every metric in the catalog into a
// manifest.InMemory lookup, plus the agg-time-dimension each measure in
// modelName resolves against.
func buildManifest(c *catalogFile, modelName string) (*manifest.InMemory, error) {
	model, ok := c.SemanticModels[modelName]
	if !ok {
		return nil, dfsqlerr.Wrapf(errUnknownSemanticModel, "%q", modelName)
	}

	granByDimName := make(map[string]spec.Granularity, len(model.Dimensions))
	for _, d := range model.Dimensions {
		if d.Time {
			granByDimName[d.Name] = parseGranularity(d.Granularity)
		}
	}

	m := manifest.NewInMemory()
	for _, ms := range model.Measures {
		if ms.AggTimeDimension == "" {
			continue
		}
		m.AggTimeDims[ms.Name] = spec.NewTimeDimension(ms.AggTimeDimension, granByDimName[ms.AggTimeDimension])
	}

	for name, cm := range c.Metrics {
		mt, err := parseMetricType(cm.Type)
		if err != nil {
			return nil, err
		}
		inputs := make([]manifest.MetricInputMeasure, len(cm.InputMeasures))
		for i, im := range cm.InputMeasures {
			inputs[i] = manifest.MetricInputMeasure{MeasureSpec: spec.New(im.Measure), Alias: im.Alias}
		}
		m.Metrics[name] = manifest.MetricDefinition{Name: name, Type: mt, InputMeasures: inputs}
	}
	m.SemanticModels[modelName] = manifest.SemanticModelDefinition{Name: modelName}

	return m, nil
}

// buildSourceDataset projects modelName's measures, dimensions and
// entities into the instance set a read-source node carries, bound to
// the physical table the model declares.
func buildSourceDataset(c *catalogFile, modelName string) (dataset.SQLDataSet, error) {
	model, ok := c.SemanticModels[modelName]
	if !ok {
		return dataset.SQLDataSet{}, dfsqlerr.Wrapf(errUnknownSemanticModel, "%q", modelName)
	}

	set := spec.Empty()
	for _, ms := range model.Measures {
		set.Measures = append(set.Measures, spec.MeasureInstance{
			Spec:     spec.New(ms.Name),
			Column:   spec.ColumnAssociation{ColumnName: ms.Name},
			From:     spec.Provenance(modelName),
			AggState: spec.NonAggregated,
		})
	}
	for _, d := range model.Dimensions {
		if d.Time {
			set.TimeDimensions = append(set.TimeDimensions, spec.TimeDimensionInstance{
				Spec:   spec.NewTimeDimension(d.Name, parseGranularity(d.Granularity)),
				Column: spec.ColumnAssociation{ColumnName: d.Name},
				From:   spec.Provenance(modelName),
			})
			continue
		}
		set.Dimensions = append(set.Dimensions, spec.DimensionInstance{
			Spec:   spec.New(d.Name),
			Column: spec.ColumnAssociation{ColumnName: d.Name},
			From:   spec.Provenance(modelName),
		})
	}
	for _, e := range model.Entities {
		set.Entities = append(set.Entities, spec.EntityInstance{
			Spec:   spec.New(e),
			Column: spec.ColumnAssociation{ColumnName: e},
			From:   spec.Provenance(modelName),
		})
	}

	return dataset.SQLDataSet{
		InstanceSet: set,
		SQLNode:     &sqlplan.TableRef{Desc: "source " + modelName, TableName: model.Table},
	}, nil
}
