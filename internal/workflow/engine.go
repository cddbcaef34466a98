package workflow

import (
	"time"

	"allocation-engine/internal/domain"
)

// transitions is the full walk graph. CANCELLED and ARCHIVED are reachable
// from every non-terminal state; the five terminal states allow nothing.
var transitions = map[domain.AllocationStatus][]domain.AllocationStatus{
	domain.StatusPending: {
		domain.StatusApproved,
		domain.StatusRejected,
		domain.StatusCancelled,
		domain.StatusArchived,
	},
	domain.StatusApproved: {
		domain.StatusSubmitted,
		domain.StatusRejected, // reviewer reversal before submission
		domain.StatusCancelled,
		domain.StatusArchived,
	},
	domain.StatusSubmitted: {
		domain.StatusAllocated,
		domain.StatusDuplicate,
		domain.StatusCancelled,
		domain.StatusArchived,
	},
}

// requiredCapability maps each target status to the capability that may
// drive a request into it. CANCELLED is special-cased in Authorize: the
// requester may withdraw their own request.
var requiredCapability = map[domain.AllocationStatus]domain.Capability{
	domain.StatusApproved:  domain.CapabilityReviewer,
	domain.StatusRejected:  domain.CapabilityReviewer,
	domain.StatusSubmitted: domain.CapabilityReviewer,
	domain.StatusAllocated: domain.CapabilityAllocator,
	domain.StatusDuplicate: domain.CapabilityAllocator,
	domain.StatusArchived:  domain.CapabilityAdmin,
}

// CanTransition reports whether from -> to is an edge of the walk graph.
func CanTransition(from, to domain.AllocationStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Engine validates and applies workflow transitions. It holds no state;
// the persisted status is re-read and the write conditioned on it by the
// repository layer.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Authorize checks that identity may drive req into target. It does not
// check the transition itself; Apply does both.
func (e *Engine) Authorize(identity domain.Identity, req *domain.AllocationRequest, target domain.AllocationStatus) error {
	if target == domain.StatusCancelled {
		if identity.UserID == req.RequestedBy || identity.Has(domain.CapabilityAdmin) {
			return nil
		}
		return &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        target,
			Reason:    "only the requester may cancel",
		}
	}

	capability, ok := requiredCapability[target]
	if !ok || !identity.Has(capability) {
		return &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        target,
			Reason:    "caller lacks capability " + string(capability),
		}
	}
	return nil
}

// Apply validates the transition and authorization, then returns a copy of
// req with the new status, the per-transition timestamp, and the rejection
// reason where applicable. The input is not mutated; persistence happens
// in the repository under an optimistic-concurrency condition.
func (e *Engine) Apply(identity domain.Identity, req *domain.AllocationRequest, target domain.AllocationStatus, reason string, now time.Time) (*domain.AllocationRequest, error) {
	if !target.IsKnown() {
		return nil, &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        target,
			Reason:    "unknown target status",
		}
	}
	if !CanTransition(req.Status, target) {
		return nil, &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        target,
		}
	}
	if err := e.Authorize(identity, req, target); err != nil {
		return nil, err
	}
	if target == domain.StatusRejected && reason == "" {
		return nil, &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        target,
			Reason:    "rejection requires a reason",
		}
	}

	updated := *req
	updated.Status = target
	updated.UpdatedAt = now

	switch target {
	case domain.StatusApproved:
		updated.ApprovedAt = &now
	case domain.StatusRejected:
		updated.RejectedAt = &now
		updated.RejectionReason = &reason
	case domain.StatusSubmitted:
		updated.SubmittedAt = &now
	case domain.StatusCancelled:
		updated.CancelledAt = &now
	}

	return &updated, nil
}
