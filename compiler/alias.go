package compiler

import "strconv"

// aliasCounter mints globally-unique table aliases within one
// compilation. A process-wide counter would let two concurrent Compile
// calls race on the same mutable state, so Compile constructs a fresh
// aliasCounter per call instead: alias IDs are deterministic given the
// same plan, and concurrent compilations never share state.
type aliasCounter struct {
	next int64
}

func newAliasCounter() *aliasCounter {
	return &aliasCounter{}
}

// NextAlias returns the next unique table alias, e.g. "t0", "t1", ...
func (c *aliasCounter) NextAlias() string {
	alias := "t" + strconv.FormatInt(c.next, 10)
	c.next++
	return alias
}
