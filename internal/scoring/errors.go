package scoring

import (
	"errors"
	"fmt"
)

// ErrMissingAnswer matches any *MissingAnswerError via errors.Is.
var ErrMissingAnswer = errors.New("missing answer")

// MissingAnswerError reports the question that had no response.
type MissingAnswerError struct {
	QuestionID string
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("missing answer for question %s", e.QuestionID)
}

func (e *MissingAnswerError) Is(target error) bool { return target == ErrMissingAnswer }
