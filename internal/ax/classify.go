package ax

import (
	"errors"

	"github.com/axstate/windowstate/internal/werrors"
)

// Classify rewrites a low-level Facade error into the property-error
// taxonomy, per spec.md §4.2's table:
//
//	cannot-complete  -> timeout
//	invalid-element  -> invalid-object
//	illegal-argument -> illegal-value
//	others           -> invalid-object(cause)
func Classify(err error) *werrors.PropertyError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrCannotComplete):
		var te *TimeoutError
		if errors.As(err, &te) {
			return werrors.NewTimeout(te.Duration)
		}
		return werrors.New(werrors.Timeout, err)
	case errors.Is(err, ErrInvalidElement):
		return werrors.NewInvalidObject(err)
	case errors.Is(err, ErrIllegalArgument):
		return werrors.New(werrors.IllegalValue, err)
	default:
		return werrors.NewInvalidObject(err)
	}
}
