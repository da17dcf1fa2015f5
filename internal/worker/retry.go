package worker

import "time"

// RetryPolicy controls how failed sync tasks are rescheduled. Delays grow
// geometrically from InitialDelay until MaxDelay caps them; after MaxRetries
// attempts the task goes to the dead-letter list.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay computes the pause before the given attempt (first attempt is 1).
// Zero or negative policy fields fall back to one second doubling.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := float64(base)
	for i := 1; i < attempt; i++ {
		d *= factor
		if r.MaxDelay > 0 && time.Duration(d) >= r.MaxDelay {
			return r.MaxDelay
		}
	}

	delay := time.Duration(d)
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}
