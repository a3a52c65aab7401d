package optimizer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/sqlplan"
)

func TestNoopPipelineReturnsInputUnchanged(t *testing.T) {
	in := &sqlplan.TableRef{TableName: "t"}
	out, err := NoopPipeline().Apply(in)
	require.NoError(t, err)
	require.Same(t, sqlplan.Node(in), out)
}

func TestPipelineAppliesPassesInOrder(t *testing.T) {
	var order []int
	passAt := func(i int) Pass {
		return func(n sqlplan.Node) (sqlplan.Node, error) {
			order = append(order, i)
			return n, nil
		}
	}
	p := Pipeline{passAt(0), passAt(1), passAt(2)}

	in := &sqlplan.TableRef{TableName: "t"}
	out, err := p.Apply(in)
	require.NoError(t, err)
	require.Same(t, sqlplan.Node(in), out)
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestPipelineStopsAtFirstFailingPass(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	p := Pipeline{
		func(n sqlplan.Node) (sqlplan.Node, error) { return nil, boom },
		func(n sqlplan.Node) (sqlplan.Node, error) { ran = true; return n, nil },
	}

	_, err := p.Apply(&sqlplan.TableRef{TableName: "t"})
	require.ErrorIs(t, err, boom)
	require.False(t, ran)
}
