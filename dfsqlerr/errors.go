// Package dfsqlerr declares the sentinel errors raised by the compiler's
// error-handling design. Every error here is fatal to the
// single compilation that raised it: the core never retries and never
// catches one of these locally, it only wraps with context via
// errors.Wrap/Wrapf before returning.
package dfsqlerr

import "github.com/pkg/errors"

// Invariant violations.
var (
	// ErrMissingAggregationTimeDimension is raised when a node that needs
	// the parent's aggregation-time-dimension instance (join-over-time-range,
	// join-to-time-spine, constrain-time-range) cannot find one.
	ErrMissingAggregationTimeDimension = errors.New("dfsql: parent instance set has no matching aggregation time dimension")

	// ErrColumnCountMismatch is raised by min-max when its parent does not
	// expose exactly one column.
	ErrColumnCountMismatch = errors.New("dfsql: node requires exactly one input column")

	// ErrRatioMetricMissingOperand is raised when a ratio metric definition
	// lacks a numerator or denominator input measure.
	ErrRatioMetricMissingOperand = errors.New("dfsql: ratio metric is missing a numerator or denominator")

	// ErrUnknownAggregationState is raised when an aggregation-state
	// remapping is asked to move a measure through a state it does not
	// recognize.
	ErrUnknownAggregationState = errors.New("dfsql: unknown measure aggregation state")
)

// Unsupported input.
var (
	// ErrTimeSpineGranularityTooFine is raised when a node asks the
	// time-spine service for a granularity finer than its declared base.
	ErrTimeSpineGranularityTooFine = errors.New("dfsql: requested granularity is finer than the time spine's base granularity")

	// ErrUnknownMetricType is raised when compute-metrics is asked to
	// dispatch on a metric type outside the closed enumeration.
	ErrUnknownMetricType = errors.New("dfsql: unknown metric type")
)

// Malformed plan.
var (
	// ErrInsufficientParents is raised when combine-aggregated-outputs is
	// given fewer than two parents.
	ErrInsufficientParents = errors.New("dfsql: combine-aggregated-outputs requires at least two parents")

	// ErrGroupByMetricArity is raised when a "for group-by source"
	// compute-metrics node does not have exactly one metric and one entity.
	ErrGroupByMetricArity = errors.New("dfsql: group-by-metric source requires exactly one metric and one entity")

	// ErrNonIdenticalLinkableSpecs is raised when combine-aggregated-outputs'
	// parents do not share an identical linkable-spec set.
	ErrNonIdenticalLinkableSpecs = errors.New("dfsql: combine-aggregated-outputs parents must share an identical linkable spec set")

	// ErrUnexpectedParentNode is raised when a node requires its compiled
	// parent to be a specific sqlplan.Node shape and it is not.
	ErrUnexpectedParentNode = errors.New("dfsql: node has an unexpected parent SQL node shape")
)

// Wrap annotates err with msg using errors.Wrap, preserving a stack trace
// for the first wrap in the chain. Every handler in package compiler
// calls this (rather than fmt.Errorf) so error construction stays uniform.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted variant of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
