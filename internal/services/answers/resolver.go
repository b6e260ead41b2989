package answers

import (
	"strings"

	"github.com/mcoot/topten/internal/model"
)

const (
	// MaxPoints is awarded for the top ranked answer
	MaxPoints = model.BoardSize * 10
	// MinPoints is awarded for the lowest rank and for any out-of-range rank
	MinPoints = 10
)

// Normalize prepares text for comparison: trimmed, inner whitespace collapsed, case-folded
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Resolve matches submitted text against candidate answers.
// Canonical text is checked for every candidate before any alias, so an alias
// never shadows another answer's canonical text.
func Resolve(text string, candidates []model.Answer) (model.Answer, bool) {
	needle := Normalize(text)
	if needle == "" {
		return model.Answer{}, false
	}

	for _, a := range candidates {
		if Normalize(a.Text) == needle {
			return a, true
		}
	}

	for _, a := range candidates {
		for _, alias := range a.Aliases {
			if Normalize(alias) == needle {
				return a, true
			}
		}
	}

	return model.Answer{}, false
}

// PointsForRank returns the points for revealing an answer of the given rank.
// Rank 1 is worth the most. Malformed ranks score the minimum rather than nothing.
func PointsForRank(rank int) int {
	if rank < 1 || rank > model.BoardSize {
		return MinPoints
	}
	return (model.BoardSize + 1 - rank) * 10
}
