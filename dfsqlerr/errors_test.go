package dfsqlerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinelForErrorsIs(t *testing.T) {
	err := Wrap(ErrInsufficientParents, "combine-aggregated-outputs")
	require.ErrorIs(t, err, ErrInsufficientParents)
	require.Contains(t, err.Error(), "combine-aggregated-outputs")
}

func TestWrapfFormatsAndPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrUnexpectedParentNode, "got %T", 42)
	require.ErrorIs(t, err, ErrUnexpectedParentNode)
	require.Contains(t, err.Error(), "got int")
}

func TestWrapOfNilReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "no-op"))
}

func TestWrapOfNonSentinelStillUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "context")
	require.ErrorIs(t, err, base)
}
