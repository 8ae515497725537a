// Package rubric reads judging criteria from YAML.
//
// Two layouts are accepted: a bare list of criteria, or a document with a
// title and a "criteria" list.
package rubric

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

const MaxCriterionScore = 100

type Criterion struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	MaxScore    int    `yaml:"maxScore,omitempty" json:"maxScore,omitempty"`
	Active      *bool  `yaml:"active,omitempty" json:"active,omitempty"`
}

func (c *Criterion) IsActive() bool {
	return c.Active == nil || *c.Active
}

type Rubric struct {
	Title    string      `yaml:"title,omitempty"`
	Criteria []Criterion `yaml:"criteria"`
}

func Parse(body []byte) (*Rubric, error) {
	rubric := &Rubric{}

	list := []Criterion{}
	if err := yaml.Unmarshal(body, &list); err == nil {
		rubric.Criteria = list
	} else if err = yaml.Unmarshal(body, rubric); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal rubric")
	}

	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	return rubric, nil
}

func Load(path string) (*Rubric, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rubric")
	}
	return Parse(body)
}

// Validate normalizes names and default max scores in place.
func (r *Rubric) Validate() error {
	if len(r.Criteria) == 0 {
		return errors.New("rubric has no criteria")
	}

	seen := make(map[string]bool, len(r.Criteria))
	for i := range r.Criteria {
		c := &r.Criteria[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return errors.Errorf("criterion #%d has no name", i+1)
		}
		if seen[c.Name] {
			return errors.Errorf("duplicate criterion %q", c.Name)
		}
		seen[c.Name] = true

		if c.MaxScore == 0 {
			c.MaxScore = models.DefaultCriterionMaxScore
		}
		if c.MaxScore < 1 || c.MaxScore > MaxCriterionScore {
			return errors.Errorf("criterion %q: maxScore must be within [1, %d]", c.Name, MaxCriterionScore)
		}
	}
	return nil
}

func (r *Rubric) Models(eventID uint) []models.Criterion {
	res := make([]models.Criterion, len(r.Criteria))
	for i, c := range r.Criteria {
		res[i] = models.Criterion{
			EventID:     eventID,
			Name:        c.Name,
			Description: c.Description,
			Active:      c.IsActive(),
			MaxScore:    c.MaxScore,
		}
	}
	return res
}

func (r *Rubric) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}
