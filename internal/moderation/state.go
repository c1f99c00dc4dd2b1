package moderation

import (
	"fmt"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

// InvalidTransitionError reports a status change the moderation table does
// not allow.
type InvalidTransitionError struct {
	From domain.Status
	To   domain.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:  {domain.StatusApproved, domain.StatusRejected, domain.StatusIgnored},
	domain.StatusApproved: {domain.StatusPublished},
}

// Transition validates a status change against the moderation table.
// Rejected, ignored and published records accept no further transitions.
func Transition(from, to domain.Status) error {
	for _, allowed := range transitions[from] {
		if to == allowed {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
