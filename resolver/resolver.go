// Package resolver implements the column-association resolver: the
// deterministic function from a semantic spec to the physical column
// name it is bound to. The compiler treats the resolver as an opaque
// collaborator and relies only on its determinism.
package resolver

import (
	"strconv"
	"strings"

	"github.com/godosou/dfsql/spec"
)

// Resolver maps a Spec to the ColumnAssociation it should be projected
// under in the current SELECT. Implementations must be deterministic:
// the same Spec always resolves to the same column name within one
// compilation.
type Resolver interface {
	Resolve(s spec.Spec) spec.ColumnAssociation
}

// DefaultResolver implements the semantic system's naming rules: the
// spec's qualified name, prefixed by its entity-link chain and suffixed
// by granularity/date-part, with entity links joined by "__".
type DefaultResolver struct{}

// NewDefaultResolver constructs the default, naming-convention resolver.
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// Resolve implements Resolver.
func (r *DefaultResolver) Resolve(s spec.Spec) spec.ColumnAssociation {
	return spec.ColumnAssociation{ColumnName: s.QualifiedName()}
}

// sanitizeIdent is applied to any user-supplied alias text that ends up
// embedded in a generated identifier (e.g. metric aliases), so that the
// resulting column name stays a plain lower-snake-case identifier.
func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// MetadataColumnName renders a reserved metadata column name such as
// "col__min" or "col__row_count_N".
func MetadataColumnName(base, suffix string, n int) string {
	out := sanitizeIdent(base) + "__" + suffix
	if n > 0 {
		out += "_" + strconv.Itoa(n)
	}
	return out
}
