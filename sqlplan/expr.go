package sqlplan

import "fmt"

// AggFunc is the closed set of aggregation functions Aggregate-measures
// can wrap a measure column in.
type AggFunc int

const (
	AggNone AggFunc = iota
	AggSum
	AggAvg
	AggMax
	AggMin
	AggCountDistinct
	AggPercentile
	AggSumBoolean // SUM(col) with a preceding boolean->int cast
)

func (f AggFunc) String() string {
	switch f {
	case AggSum, AggSumBoolean:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMax:
		return "MAX"
	case AggMin:
		return "MIN"
	case AggCountDistinct:
		return "COUNT_DISTINCT"
	case AggPercentile:
		return "PERCENTILE"
	default:
		return "NONE"
	}
}

// Expr is the sum type of SQL scalar expressions. Like Node, it is a
// marker interface over a closed set of concrete constructors in this
// package.
type Expr interface {
	isExpr()
	fmt.Stringer
}

// ColumnRef references a column on an aliased source, rendered "alias.col".
type ColumnRef struct {
	TableAlias string
	ColumnName string
}

func (ColumnRef) isExpr() {}
func (c ColumnRef) String() string {
	if c.TableAlias == "" {
		return c.ColumnName
	}
	return c.TableAlias + "." + c.ColumnName
}

// Literal is a constant scalar value.
type Literal struct {
	Value interface{}
}

func (Literal) isExpr() {}
func (l Literal) String() string { return fmt.Sprintf("%v", l.Value) }

// Raw is an opaque, already-rendered SQL string expression plus the
// column names it references — used for derived-metric expressions and
// WHERE filters, whose text the core never parses.
type Raw struct {
	SQL               string
	ReferencedColumns []string
}

func (Raw) isExpr() {}
func (r Raw) String() string { return r.SQL }

// AggregateExpr wraps an operand column in an aggregation function,
// optionally casting (SUM_BOOLEAN) or parameterizing (PERCENTILE).
type AggregateExpr struct {
	Func      AggFunc
	Operand   Expr
	Percentile float64 // only meaningful when Func == AggPercentile
}

func (AggregateExpr) isExpr() {}
func (a AggregateExpr) String() string {
	if a.Func == AggPercentile {
		return fmt.Sprintf("PERCENTILE(%s, %v)", a.Operand, a.Percentile)
	}
	if a.Func == AggSumBoolean {
		return fmt.Sprintf("SUM(CAST(%s AS INT))", a.Operand)
	}
	return fmt.Sprintf("%s(%s)", a.Func, a.Operand)
}

// BinaryOp is the closed set of binary scalar operators the compiler
// itself constructs (arithmetic for ratio metrics, boolean for join/filter
// predicates).
type BinaryOp int

const (
	OpDivide BinaryOp = iota
	OpEquals
	OpAnd
	OpBetween // ternary in practice; see BetweenExpr
)

func (o BinaryOp) symbol() string {
	switch o {
	case OpDivide:
		return "/"
	case OpEquals:
		return "="
	case OpAnd:
		return "AND"
	default:
		return "?"
	}
}

// BinaryExpr is a simple `left OP right` expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
func (b BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op.symbol(), b.Right)
}

// BetweenExpr renders `expr BETWEEN lo AND hi`.
type BetweenExpr struct {
	Target Expr
	Low    Expr
	High   Expr
}

func (BetweenExpr) isExpr() {}
func (b BetweenExpr) String() string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", b.Target, b.Low, b.High)
}

// CoalesceExpr renders `COALESCE(args...)`.
type CoalesceExpr struct {
	Args []Expr
}

func (CoalesceExpr) isExpr() {}
func (c CoalesceExpr) String() string {
	s := "COALESCE("
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// DateTruncExpr renders `DATE_TRUNC('granularity', expr)`.
type DateTruncExpr struct {
	Granularity string
	Target      Expr
}

func (DateTruncExpr) isExpr() {}
func (d DateTruncExpr) String() string {
	return fmt.Sprintf("DATE_TRUNC('%s', %s)", d.Granularity, d.Target)
}

// ExtractExpr renders `EXTRACT(datepart FROM expr)`.
type ExtractExpr struct {
	DatePart string
	Target   Expr
}

func (ExtractExpr) isExpr() {}
func (e ExtractExpr) String() string {
	return fmt.Sprintf("EXTRACT(%s FROM %s)", e.DatePart, e.Target)
}

// IntervalAddExpr renders `expr + interval 'N unit'`.
type IntervalAddExpr struct {
	Target Expr
	Count  int
	Unit   string
}

func (IntervalAddExpr) isExpr() {}
func (i IntervalAddExpr) String() string {
	return fmt.Sprintf("(%s + interval '%d %s')", i.Target, i.Count, i.Unit)
}

// WindowExpr renders a windowed aggregate: the only window function the
// core emits is the conversion "closest opportunity" FIRST_VALUE.
type WindowExpr struct {
	Func        string // "FIRST_VALUE"
	Operand     Expr
	PartitionBy []Expr
	OrderBy     []OrderByExpr
}

func (WindowExpr) isExpr() {}
func (w WindowExpr) String() string {
	s := fmt.Sprintf("%s(%s) OVER (PARTITION BY ", w.Func, w.Operand)
	for i, p := range w.PartitionBy {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += " ORDER BY "
	for i, o := range w.OrderBy {
		if i > 0 {
			s += ", "
		}
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		s += fmt.Sprintf("%s %s", o.Expr, dir)
	}
	return s + ")"
}

// UUIDExpr renders the engine's UUID-generation builtin.
type UUIDExpr struct{}

func (UUIDExpr) isExpr() {}
func (UUIDExpr) String() string { return "UUID()" }
