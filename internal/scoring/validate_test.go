package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

func criteria(names ...string) []models.Criterion {
	res := make([]models.Criterion, len(names))
	for i, name := range names {
		res[i] = models.Criterion{ID: uint(i + 1), Name: name, Active: true, MaxScore: models.DefaultCriterionMaxScore}
	}
	return res
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	sub := &Submission{
		Scores:  map[string]int{"innovation": 8, "execution": 10},
		Remarks: "solid demo, rough edges",
	}
	require.NoError(t, DefaultRules().Validate(sub, criteria("innovation", "execution")))
}

func TestValidateWithoutCriteriaAcceptsAnyName(t *testing.T) {
	sub := &Submission{Scores: map[string]int{"whatever": 3}, Remarks: "ten chars!"}
	require.NoError(t, DefaultRules().Validate(sub, nil))
}

func TestValidateProblems(t *testing.T) {
	for _, tc := range []struct {
		name    string
		sub     *Submission
		problem string
	}{
		{
			name:    "nil",
			sub:     nil,
			problem: "empty submission",
		},
		{
			name:    "above range",
			sub:     &Submission{Scores: map[string]int{"innovation": 11, "execution": 5}, Remarks: "long enough remarks"},
			problem: `score for "innovation" must be within [1, 10], got 11`,
		},
		{
			name:    "below range",
			sub:     &Submission{Scores: map[string]int{"innovation": 0, "execution": 5}, Remarks: "long enough remarks"},
			problem: `score for "innovation" must be within [1, 10], got 0`,
		},
		{
			name:    "unknown criterion",
			sub:     &Submission{Scores: map[string]int{"innovation": 5, "execution": 5, "vibes": 5}, Remarks: "long enough remarks"},
			problem: `unknown or inactive criterion "vibes"`,
		},
		{
			name:    "missing criterion",
			sub:     &Submission{Scores: map[string]int{"innovation": 5}, Remarks: "long enough remarks"},
			problem: `missing score for criterion "execution"`,
		},
		{
			name:    "short remarks",
			sub:     &Submission{Scores: map[string]int{"innovation": 5, "execution": 5}, Remarks: "  meh   "},
			problem: "remarks must be at least 10 characters, got 3",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := DefaultRules().Validate(tc.sub, criteria("innovation", "execution"))
			require.Error(t, err)
			require.True(t, IsValidationError(err))
			assert.Contains(t, err.(*ValidationError).Problems, tc.problem)
		})
	}
}

func TestValidateRespectsCriterionMax(t *testing.T) {
	active := criteria("innovation")
	active[0].MaxScore = 5

	sub := &Submission{Scores: map[string]int{"innovation": 6}, Remarks: "long enough remarks"}
	err := DefaultRules().Validate(sub, active)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1, 5]")
}
