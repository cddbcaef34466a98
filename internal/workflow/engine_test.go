package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-engine/internal/domain"
)

func identityWith(userID string, caps ...domain.Capability) domain.Identity {
	m := make(map[domain.Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return domain.Identity{UserID: userID, Capabilities: m}
}

func pendingRequest() *domain.AllocationRequest {
	return &domain.AllocationRequest{
		ID:            uuid.New(),
		TransactionID: 1,
		PolicyNumber:  "P-100",
		Status:        domain.StatusPending,
		RequestedBy:   "alice",
	}
}

func TestCanTransition_Graph(t *testing.T) {
	allowed := []struct{ from, to domain.AllocationStatus }{
		{domain.StatusPending, domain.StatusApproved},
		{domain.StatusPending, domain.StatusRejected},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusPending, domain.StatusArchived},
		{domain.StatusApproved, domain.StatusSubmitted},
		{domain.StatusApproved, domain.StatusRejected},
		{domain.StatusApproved, domain.StatusCancelled},
		{domain.StatusApproved, domain.StatusArchived},
		{domain.StatusSubmitted, domain.StatusAllocated},
		{domain.StatusSubmitted, domain.StatusDuplicate},
		{domain.StatusSubmitted, domain.StatusCancelled},
		{domain.StatusSubmitted, domain.StatusArchived},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to domain.AllocationStatus }{
		{domain.StatusPending, domain.StatusSubmitted},
		{domain.StatusPending, domain.StatusAllocated},
		{domain.StatusApproved, domain.StatusApproved},
		{domain.StatusSubmitted, domain.StatusApproved},
		{domain.StatusSubmitted, domain.StatusRejected},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestCanTransition_TerminalStatesAllowNothing(t *testing.T) {
	terminals := []domain.AllocationStatus{
		domain.StatusAllocated, domain.StatusDuplicate, domain.StatusRejected,
		domain.StatusCancelled, domain.StatusArchived,
	}
	everything := []domain.AllocationStatus{
		domain.StatusPending, domain.StatusApproved, domain.StatusRejected,
		domain.StatusSubmitted, domain.StatusAllocated, domain.StatusDuplicate,
		domain.StatusCancelled, domain.StatusArchived,
	}

	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range everything {
			assert.False(t, CanTransition(from, to), "%s must permit no transitions", from)
		}
	}
}

func TestApply_Approve(t *testing.T) {
	engine := NewEngine()
	req := pendingRequest()
	now := time.Now().UTC()

	updated, err := engine.Apply(identityWith("bob", domain.CapabilityReviewer), req, domain.StatusApproved, "", now)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedAt)
	assert.Equal(t, now, *updated.ApprovedAt)

	// The input record is untouched; persistence happens elsewhere.
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Nil(t, req.ApprovedAt)
}

func TestApply_RejectRequiresReason(t *testing.T) {
	engine := NewEngine()
	reviewer := identityWith("bob", domain.CapabilityReviewer)

	_, err := engine.Apply(reviewer, pendingRequest(), domain.StatusRejected, "", time.Now())

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	updated, err := engine.Apply(reviewer, pendingRequest(), domain.StatusRejected, "wrong policy", time.Now())
	require.NoError(t, err)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, "wrong policy", *updated.RejectionReason)
	assert.NotNil(t, updated.RejectedAt)
}

func TestApply_PostApprovalRejection(t *testing.T) {
	engine := NewEngine()
	req := pendingRequest()
	req.Status = domain.StatusApproved

	updated, err := engine.Apply(identityWith("bob", domain.CapabilityReviewer), req, domain.StatusRejected, "duplicate evidence surfaced", time.Now())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, updated.Status)
}

func TestApply_CapabilityChecks(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	// A requester without reviewer capability cannot approve.
	_, err := engine.Apply(identityWith("alice", domain.CapabilityRequester), pendingRequest(), domain.StatusApproved, "", now)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	// A reviewer cannot allocate.
	submitted := pendingRequest()
	submitted.Status = domain.StatusSubmitted
	_, err = engine.Apply(identityWith("bob", domain.CapabilityReviewer), submitted, domain.StatusAllocated, "", now)
	require.ErrorAs(t, err, &transitionErr)

	// An allocator can.
	submitted = pendingRequest()
	submitted.Status = domain.StatusSubmitted
	updated, err := engine.Apply(identityWith("carol", domain.CapabilityAllocator), submitted, domain.StatusAllocated, "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAllocated, updated.Status)
}

func TestApply_CancelOnlyByRequesterOrAdmin(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	req := pendingRequest() // requested by alice
	updated, err := engine.Apply(identityWith("alice"), req, domain.StatusCancelled, "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.NotNil(t, updated.CancelledAt)

	_, err = engine.Apply(identityWith("mallory"), pendingRequest(), domain.StatusCancelled, "", now)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	updated, err = engine.Apply(identityWith("root", domain.CapabilityAdmin), pendingRequest(), domain.StatusCancelled, "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
}

func TestApply_ArchiveRequiresAdmin(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Apply(identityWith("bob", domain.CapabilityReviewer), pendingRequest(), domain.StatusArchived, "", time.Now())
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	updated, err := engine.Apply(identityWith("root", domain.CapabilityAdmin), pendingRequest(), domain.StatusArchived, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, updated.Status)
}

func TestApply_InvalidTransitionLeavesRecordUnchanged(t *testing.T) {
	engine := NewEngine()
	req := pendingRequest()
	req.Status = domain.StatusAllocated
	before := *req

	_, err := engine.Apply(identityWith("bob", domain.CapabilityReviewer), req, domain.StatusApproved, "", time.Now())

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, before, *req, "a failed transition must not mutate the record")
}

func TestApply_UnknownTarget(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Apply(identityWith("bob", domain.CapabilityReviewer), pendingRequest(), domain.AllocationStatus("NONSENSE"), "", time.Now())

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}
