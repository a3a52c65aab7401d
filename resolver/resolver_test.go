package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godosou/dfsql/spec"
)

func TestDefaultResolverUsesQualifiedName(t *testing.T) {
	r := NewDefaultResolver()
	s := spec.New("bookings", spec.EntityLink("listing"))
	require.Equal(t, "listing__bookings", r.Resolve(s).ColumnName)
}

func TestMetadataColumnNameSanitizesAndSuffixes(t *testing.T) {
	require.Equal(t, "user_email__min", MetadataColumnName("User Email", "min", 0))
	require.Equal(t, "user_email__row_count_2", MetadataColumnName("User Email", "row_count", 2))
}
