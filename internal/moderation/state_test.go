package moderation

import (
	"errors"
	"testing"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

func TestTransitionAllowsModerationDecisions(t *testing.T) {
	cases := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusPending, domain.StatusApproved},
		{domain.StatusPending, domain.StatusRejected},
		{domain.StatusPending, domain.StatusIgnored},
		{domain.StatusApproved, domain.StatusPublished},
	}
	for _, c := range cases {
		if err := Transition(c.from, c.to); err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", c.from, c.to, err)
		}
	}
}

func TestTransitionRejectsEverythingElse(t *testing.T) {
	cases := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusPending, domain.StatusPublished},
		{domain.StatusRejected, domain.StatusApproved},
		{domain.StatusIgnored, domain.StatusPending},
		{domain.StatusPublished, domain.StatusApproved},
		{domain.StatusPublished, domain.StatusPending},
		{domain.StatusApproved, domain.StatusRejected},
	}
	for _, c := range cases {
		err := Transition(c.from, c.to)
		if err == nil {
			t.Errorf("expected %s -> %s to be rejected", c.from, c.to)
			continue
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("expected InvalidTransitionError, got %T", err)
		}
	}
}
