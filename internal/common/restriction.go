package common

import "time"

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int
	Duration time.Duration
}

// Spacing is the minimum time between two consecutive requests
// that keeps the traffic inside the restriction.
// A restriction without requests imposes no spacing
func (rest Restriction) Spacing() time.Duration {
	if rest.Requests <= 0 || rest.Duration <= 0 {
		return 0
	}
	return rest.Duration / time.Duration(rest.Requests)
}
