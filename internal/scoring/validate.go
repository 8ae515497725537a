package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

var validate = validator.New()

// Submission is what a jury panel sends for a single team.
type Submission struct {
	Scores           map[string]int `json:"scores" validate:"required,min=1,dive,keys,required,endkeys"`
	Remarks          string         `json:"remarks" validate:"required"`
	AIFeedback       *string        `json:"aiFeedback,omitempty" validate:"omitempty,max=8000"`
	GenerateFeedback bool           `json:"generateFeedback"`
}

type Rules struct {
	MinScore         int
	MaxScore         int
	RemarksMinLength int
}

func DefaultRules() Rules {
	return Rules{
		MinScore:         1,
		MaxScore:         10,
		RemarksMinLength: 10,
	}
}

// Validate checks the submission against the rules and the event's active
// criteria. With no active criteria any criterion names are accepted.
func (r Rules) Validate(sub *Submission, active []models.Criterion) error {
	if sub == nil {
		return &ValidationError{Problems: []string{"empty submission"}}
	}

	problems := make([]string, 0)
	if err := validate.Struct(sub); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	byName := make(map[string]*models.Criterion, len(active))
	for i := range active {
		byName[active[i].Name] = &active[i]
	}

	names := maps.Keys(sub.Scores)
	slices.Sort(names)
	for _, name := range names {
		value := sub.Scores[name]
		max := r.MaxScore
		if len(byName) > 0 {
			criterion, found := byName[name]
			if !found {
				problems = append(problems, fmt.Sprintf("unknown or inactive criterion %q", name))
				continue
			}
			if criterion.MaxScore > 0 && criterion.MaxScore < max {
				max = criterion.MaxScore
			}
		}
		if value < r.MinScore || value > max {
			problems = append(problems, fmt.Sprintf("score for %q must be within [%d, %d], got %d", name, r.MinScore, max, value))
		}
	}

	required := maps.Keys(byName)
	slices.Sort(required)
	for _, name := range required {
		if _, found := sub.Scores[name]; !found {
			problems = append(problems, fmt.Sprintf("missing score for criterion %q", name))
		}
	}

	if length := utf8.RuneCountInString(strings.TrimSpace(sub.Remarks)); length < r.RemarksMinLength {
		problems = append(problems, fmt.Sprintf("remarks must be at least %d characters, got %d", r.RemarksMinLength, length))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
