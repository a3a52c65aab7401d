// Package dataset declares SQLDataSet, the currency of the plan walker:
// the pair (instance_set, sql_node) that flows bottom-up through every
// handler. It is kept in its own leaf package
// so that both package dataflow (leaf nodes carry a literal dataset) and
// package compiler (the walker produces and consumes them) can depend on
// it without creating an import cycle between dataflow and compiler.
package dataset

import (
	"github.com/godosou/dfsql/spec"
	"github.com/godosou/dfsql/sqlplan"
)

// SQLDataSet is the pair (instance_set, sql_node).
type SQLDataSet struct {
	InstanceSet *spec.InstanceSet
	SQLNode     sqlplan.Node
}
