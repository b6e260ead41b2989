package answers

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/topten/internal/model"
)

type ResolverSuite struct {
	suite.Suite
	candidates []model.Answer
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.candidates = []model.Answer{
		{ID: "a1", Rank: 1, Text: "Pizza", Aliases: []string{"pizza pie"}},
		{ID: "a2", Rank: 2, Text: "Burger", Aliases: []string{"hamburger", "cheeseburger"}},
		{ID: "a3", Rank: 3, Text: "Ice Cream"},
		{ID: "a4", Rank: 4, Text: "Pie", Aliases: []string{"burger"}},
	}
}

// Resolve tests

func (s *ResolverSuite) TestResolveExactCanonical() {
	got, matched := Resolve("Pizza", s.candidates)
	s.True(matched)
	s.Equal("a1", got.ID)
	s.Equal(1, got.Rank)
}

func (s *ResolverSuite) TestResolveIgnoresCaseAndWhitespace() {
	got, matched := Resolve("   iCe    CREAM  ", s.candidates)
	s.True(matched)
	s.Equal("a3", got.ID)
}

func (s *ResolverSuite) TestResolveAlias() {
	got, matched := Resolve("Hamburger", s.candidates)
	s.True(matched)
	s.Equal("a2", got.ID)
}

func (s *ResolverSuite) TestResolveCanonicalBeatsAlias() {
	// "burger" is an alias of a4 but the canonical text of a2
	got, matched := Resolve("burger", s.candidates)
	s.True(matched)
	s.Equal("a2", got.ID)
}

func (s *ResolverSuite) TestResolveNoMatch() {
	_, matched := Resolve("sushi", s.candidates)
	s.False(matched)
}

func (s *ResolverSuite) TestResolveNoFuzzyMatching() {
	_, matched := Resolve("piza", s.candidates)
	s.False(matched)

	_, matched = Resolve("pizzas", s.candidates)
	s.False(matched)
}

func (s *ResolverSuite) TestResolveEmptySubmission() {
	_, matched := Resolve("   ", s.candidates)
	s.False(matched)
}

func (s *ResolverSuite) TestResolveNoCandidates() {
	_, matched := Resolve("pizza", nil)
	s.False(matched)
}

// PointsForRank tests

func (s *ResolverSuite) TestPointsForRankLinear() {
	s.Equal(100, PointsForRank(1))
	s.Equal(90, PointsForRank(2))
	s.Equal(50, PointsForRank(6))
	s.Equal(10, PointsForRank(10))
}

func (s *ResolverSuite) TestPointsForRankNonIncreasing() {
	for rank := 2; rank <= model.BoardSize; rank++ {
		s.LessOrEqual(PointsForRank(rank), PointsForRank(rank-1), "rank %d", rank)
	}
}

func (s *ResolverSuite) TestPointsForRankOutOfRangeYieldsMinimum() {
	for _, rank := range []int{0, -1, 11, 1000} {
		s.Equal(PointsForRank(10), PointsForRank(rank), "rank %d", rank)
		s.Positive(PointsForRank(rank))
	}
}
