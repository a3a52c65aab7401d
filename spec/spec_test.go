package spec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecQualifiedName(t *testing.T) {
	s := New("revenue", EntityLink("listing"), EntityLink("country"))
	require.Equal(t, "listing__country__revenue", s.QualifiedName())
}

func TestSpecQualifiedNameTimeDimension(t *testing.T) {
	s := NewTimeDimension("ds", GranularityMonth, EntityLink("booking")).WithDatePart("day_of_week")
	require.Equal(t, "booking__ds__month__day_of_week", s.QualifiedName())
}

func TestSpecEqualIgnoresConstructionPath(t *testing.T) {
	a := New("bookings", EntityLink("listing"))
	b := Spec{ElementName: "bookings", EntityLinks: []EntityLink{"listing"}}
	require.True(t, a.Equal(b))
}

func TestSpecWithLeadingLinkPrepends(t *testing.T) {
	s := New("is_instant", EntityLink("country"))
	s = s.WithLeadingLink(EntityLink("listing"))
	require.Equal(t, []EntityLink{"listing", "country"}, s.EntityLinks)

	lead, ok := s.LeadingLink()
	require.True(t, ok)
	require.Equal(t, EntityLink("listing"), lead)
}

func TestSpecLeadingLinkUnlinked(t *testing.T) {
	s := New("bookings")
	_, ok := s.LeadingLink()
	require.False(t, ok)
}

func TestSpecIsTimeDimension(t *testing.T) {
	require.False(t, New("bookings").IsTimeDimension())
	require.True(t, NewTimeDimension("ds", GranularityDay).IsTimeDimension())
}

func TestGranularityRankOrdersCoarsestLast(t *testing.T) {
	require.True(t, GranularityDay.Rank() < GranularityWeek.Rank())
	require.True(t, GranularityWeek.Rank() < GranularityMonth.Rank())
	require.True(t, GranularityMonth.Rank() < GranularityQuarter.Rank())
	require.True(t, GranularityQuarter.Rank() < GranularityYear.Rank())
}

func TestSetDeduplicatesByKey(t *testing.T) {
	s1 := New("bookings", EntityLink("listing"))
	s2 := Spec{ElementName: "bookings", EntityLinks: []EntityLink{"listing"}}
	set := NewSet(s1, s2, New("revenue"))
	require.Len(t, set.Specs(), 2)
	require.True(t, set.Contains(s1))
	require.True(t, set.Contains(New("revenue")))
}

func TestSetPreservesInsertionOrder(t *testing.T) {
	set := NewSet()
	set.Add(New("c"))
	set.Add(New("a"))
	set.Add(New("b"))
	got := set.Specs()
	require.Equal(t, []string{"c", "a", "b"}, []string{got[0].ElementName, got[1].ElementName, got[2].ElementName})
}
