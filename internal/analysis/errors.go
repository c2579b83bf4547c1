package analysis

import (
	"github.com/cockroachdb/errors"
)

// Error taxonomy shared by the repository, techniques and dispatcher.
var (
	// ErrDataUnavailable means a source table is missing or empty. Fatal for
	// any technique that needs the table.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientSample means a grouping produced fewer units than the
	// technique needs. Techniques recover by returning Insufficient.
	ErrInsufficientSample = errors.New("insufficient sample")
	// ErrInvalidParameter covers unknown technique, dataset, panel, mode or
	// threshold identifiers.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrArithmeticDegenerate is returned by numeric helpers when a zero
	// denominator or singular system makes the result undefined.
	ErrArithmeticDegenerate = errors.New("arithmetic degenerate")
	// ErrInternal is the dispatch-boundary error for a technique that panicked.
	ErrInternal = errors.New("internal analysis failure")
)

// InvalidParameter builds an ErrInvalidParameter with the offending value and
// the accepted choices attached as a hint.
func InvalidParameter(what, got string, valid []string) error {
	err := errors.Mark(errors.Newf("unknown %s %q", what, got), ErrInvalidParameter)
	if len(valid) > 0 {
		err = errors.WithHintf(err, "valid %s values: %v", what, valid)
	}
	return err
}
