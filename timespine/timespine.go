// Package timespine implements the time-spine service: a
// parameterized source of calendar rows at a configurable base
// granularity, used by cumulative, grain-to-date and join-to-time-spine
// operators.
package timespine

import (
	"github.com/godosou/dfsql/dfsqlerr"
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

// Range restricts a time-spine projection to [Start, End] inclusive.
type Range struct {
	Start string
	End   string
}

// Source is a read-only description of the spine table and its base
// granularity — an external collaborator: the core only ever reads it,
// never constructs or mutates it.
type Source interface {
	TableName() string
	TimeColumnName() string
	TimeColumnGranularity() spec.Granularity
}

// StaticSource is the simplest Source implementation: a fixed table and
// column name at a fixed granularity, suitable for tests and for a single
// project's one declared time spine.
type StaticSource struct {
	Table       string
	Column      string
	Granularity spec.Granularity
}

func (s StaticSource) TableName() string                  { return s.Table }
func (s StaticSource) TimeColumnName() string              { return s.Column }
func (s StaticSource) TimeColumnGranularity() spec.Granularity { return s.Granularity }

// Service wraps a Source and builds spine datasets at a requested
// granularity.
type Service struct {
	source Source
}

// NewService constructs a time-spine service over source.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// Source returns the underlying Source.
func (svc *Service) Source() Source {
	return svc.source
}

// MakeTimeSpineDataset projects the spine at requestedGranularity.
//
// If requestedGranularity matches the spine's base granularity, the
// column is projected directly. If requestedGranularity is coarser, the
// column is wrapped in DATE_TRUNC and the result GROUP BYed to
// deduplicate (one row per coarse bucket). Requesting a granularity finer
// than the spine's base is an unsupported-input error.
//
// If rng is non-nil, a BETWEEN range restriction is added to the spine's
// own WHERE clause.
func (svc *Service) MakeTimeSpineDataset(alias string, requestedGranularity spec.Granularity, rng *Range) (*sqlplan.Select, error) {
	baseGran := svc.source.TimeColumnGranularity()
	if requestedGranularity.Rank() < baseGran.Rank() {
		return nil, dfsqlerr.ErrTimeSpineGranularityTooFine
	}

	base := &sqlplan.TableRef{Desc: "time spine source", TableName: svc.source.TableName()}
	timeCol := svc.source.TimeColumnName()

	var selectCol sqlplan.Expr = sqlplan.ColumnRef{TableAlias: alias, ColumnName: timeCol}
	groupBy := []string(nil)
	if requestedGranularity != baseGran {
		selectCol = sqlplan.DateTruncExpr{Granularity: requestedGranularity.String(), Target: sqlplan.ColumnRef{TableAlias: alias, ColumnName: timeCol}}
		groupBy = []string{timeCol}
	}

	sel := &sqlplan.Select{
		Desc:      "time spine at " + requestedGranularity.String(),
		From:      base,
		FromAlias: alias,
		SelectColumns: []sqlplan.SelectColumn{
			{Expr: selectCol, Alias: timeCol},
		},
		GroupBy: groupBy,
	}
	if rng != nil {
		sel.Where = sqlplan.BetweenExpr{
			Target: sqlplan.ColumnRef{TableAlias: alias, ColumnName: timeCol},
			Low:    sqlplan.Literal{Value: rng.Start},
			High:   sqlplan.Literal{Value: rng.End},
		}
	}
	return sel, nil
}
