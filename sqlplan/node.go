// Package sqlplan defines the emitted SQL query plan: a tree of SELECT
// statements, joins, WHERE/GROUP BY/ORDER BY clauses and expressions.
// The tree is built bottom-up and is immutable once constructed;
// nothing in this package renders SQL text — that is the downstream
// renderer's job.
package sqlplan

// Node is the sum type of SQL plan nodes: *TableRef (leaf) and *Select /
// *CreateTableAs (interior). It is intentionally a marker interface
// rather than a closed Go sum type (Go has no sealed interfaces), but the
// compiler package only ever constructs these three concrete types —
// see Design Notes "Dynamic dispatch -> closed tagged variants".
type Node interface {
	isSQLNode()
	// Description is a short human-readable label carried for debugging
	// and snapshot-test diffing.
	Description() string
}

// TableRef is a leaf node: a reference to a physical or logical source
// table (read-source, time-spine source).
type TableRef struct {
	Desc      string
	TableName string
}

func (t *TableRef) isSQLNode()        {}
func (t *TableRef) Description() string { return t.Desc }

// SelectColumn is one projected output column: an expression paired with
// the output alias it is exposed under.
type SelectColumn struct {
	Expr  Expr
	Alias string
}

// JoinType is the closed enumeration of join intents the join builder
// (package sqljoin) can produce.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	CrossJoin
	FullOuterJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case CrossJoin:
		return "CROSS"
	case FullOuterJoin:
		return "FULL OUTER"
	default:
		return "UNKNOWN"
	}
}

// JoinDescription is one join clause of a SELECT: a right-hand source
// joined in with a type and an ON predicate (nil for CROSS).
type JoinDescription struct {
	Type        JoinType
	Right       Node
	RightAlias  string
	OnCondition Expr
}

// OrderByExpr is one ORDER BY term.
type OrderByExpr struct {
	Expr       Expr
	Descending bool
}

// Select is an interior node: one SELECT statement.
type Select struct {
	Desc          string
	SelectColumns []SelectColumn
	From          Node
	FromAlias     string
	Joins         []JoinDescription
	Where         Expr // nil if no WHERE clause
	GroupBy       []string
	OrderBy       []OrderByExpr
	Limit         *int
	Distinct      bool
}

func (s *Select) isSQLNode()        {}
func (s *Select) Description() string { return s.Desc }

// ColumnNames returns the select column aliases in projection order, the
// quantity the "column closure" invariant is checked
// against.
func (s *Select) ColumnNames() []string {
	out := make([]string, len(s.SelectColumns))
	for i, c := range s.SelectColumns {
		out[i] = c.Alias
	}
	return out
}

// CreateTableAs wraps a Select targeting a declared result table.
type CreateTableAs struct {
	Desc      string
	TableName string
	Select    *Select
}

func (c *CreateTableAs) isSQLNode()        {}
func (c *CreateTableAs) Description() string { return c.Desc }
