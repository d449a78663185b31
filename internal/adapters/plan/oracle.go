package plan

import (
	"errors"
	"time"
)

var errUnconfigured = errors.New("reading plan is not configured")

// FixedOracle answers plan questions from static configuration. The start
// date is parsed once at construction.
type FixedOracle struct {
	start  time.Time
	length int
	err    error
}

// NewFixedOracle builds an oracle from the configured start date (layout
// 2006-01-02) and plan length. A missing or malformed start date is not fatal
// here: callers decide how to degrade when the oracle errors.
func NewFixedOracle(startDate string, length int, loc *time.Location) *FixedOracle {
	o := &FixedOracle{length: length}
	if startDate == "" || length <= 0 {
		o.err = errUnconfigured
		return o
	}
	start, err := time.ParseInLocation("2006-01-02", startDate, loc)
	if err != nil {
		o.err = err
		return o
	}
	o.start = start
	return o
}

func (o *FixedOracle) PlanStartDate() (time.Time, error) {
	if o.err != nil {
		return time.Time{}, o.err
	}
	return o.start, nil
}

func (o *FixedOracle) PlanLength() (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.length, nil
}
