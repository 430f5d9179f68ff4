package session

import "fmt"

// DefaultMaxCascadeSteps bounds the events one Restart may expand into,
// counting nested expansions.
const DefaultMaxCascadeSteps = 10000

// cascadeQuota counts events interpreted while expanding one Restart.
//
// Removal cascades are finite by construction; the quota turns a
// non-terminating expansion into an error instead of a hang.
type cascadeQuota struct {
	limit   int
	current int
}

func newCascadeQuota(limit int) *cascadeQuota {
	return &cascadeQuota{limit: limit}
}

// check counts one more step and fails once the quota is exceeded.
func (q *cascadeQuota) check(ev fmt.Stringer) error {
	q.current++
	if q.current > q.limit {
		return &Error{
			Code:    ErrCodeCascadeLimit,
			Message: fmt.Sprintf("cascade exceeded %d steps", q.limit),
			Event:   ev.String(),
		}
	}
	return nil
}
