package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

var (
	ErrInvalidSlot          = errors.New("panel slot must be 1, 2 or 3")
	ErrAlreadyScored        = errors.New("already scored")
	ErrTeamNotFound         = errors.New("team not found")
	ErrNothingToConsolidate = errors.New("no panel has submitted yet")
	ErrFeedbackDisabled     = errors.New("feedback generation is not configured")
)

// ValidationError lists every problem found in a submission.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Problems, "; ")
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// PartialFailure means the panel score is durable but the average could not be
// written. The next submission or a manual recompute repairs it.
type PartialFailure struct {
	TeamID uint
	Panel  models.PanelSlot
	Err    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("panel %d score for team %d stored, average not updated: %v", e.Panel, e.TeamID, e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

func IsPartialFailure(err error) bool {
	var perr *PartialFailure
	return errors.As(err, &perr)
}
