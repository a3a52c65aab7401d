// Package optimizer declares the SQL-optimizer pipeline collaborator.
// It is out of scope for this module: the core's contract ends at
// producing a correct, un-optimized SQL plan, and must not depend on
// any specific pass existing.
package optimizer

import "github.com/godosou/dfsql/sqlplan"

// Pass is one optimizer step: sql_node -> sql_node.
type Pass func(sqlplan.Node) (sqlplan.Node, error)

// Pipeline is an ordered sequence of passes selected by optimization
// level. An empty Pipeline is valid and simply returns its input
// unchanged — the core must be correct with no optimizer at all.
type Pipeline []Pass

// Apply runs every pass in order, threading the result forward.
func (p Pipeline) Apply(node sqlplan.Node) (sqlplan.Node, error) {
	cur := node
	for _, pass := range p {
		next, err := pass(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// NoopPipeline is the identity pipeline, useful as a default and in tests
// that want to inspect the un-optimized plan the core itself produces.
func NoopPipeline() Pipeline {
	return nil
}
