// Package bonds prices fixed cashflow schedules, bootstraps implied discount
// factors from a set of bond prices, and measures duration.
package bonds

import (
	"fmt"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
)

// Schedule is the ordered cashflow schedule of a single instrument.
//
// Times are in periods (not years) and must be non-negative and strictly
// increasing. Cashflows keep the sign the caller gives them.
type Schedule struct {
	Times     []float64
	Cashflows []float64
}

// NewSchedule builds a validated Schedule.
func NewSchedule(times, cashflows []float64) (Schedule, error) {
	s := Schedule{Times: times, Cashflows: cashflows}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Len returns the number of cashflows.
func (s Schedule) Len() int {
	return len(s.Times)
}

// Validate checks the schedule invariants.
func (s Schedule) Validate() error {
	if len(s.Times) != len(s.Cashflows) {
		return domain.Shape("schedule cashflows", len(s.Times), len(s.Cashflows))
	}
	if len(s.Times) == 0 {
		return domain.ShapeError{Op: "schedule", Want: "at least one cashflow", Got: "none"}
	}
	for i, t := range s.Times {
		if t < 0 {
			return fmt.Errorf("schedule: time %g at index %d is negative: %w", t, i, domain.ErrDomain)
		}
		if i > 0 && t <= s.Times[i-1] {
			return fmt.Errorf("schedule: time %g at index %d does not follow %g: %w", t, i, s.Times[i-1], domain.ErrDomain)
		}
	}
	return nil
}
