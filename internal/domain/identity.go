package domain

// Capability is a named permission checked by the workflow engine. Caller
// identity is always passed explicitly; nothing is inferred from ambient
// session state.
type Capability string

const (
	CapabilityRequester Capability = "requester"
	CapabilityReviewer  Capability = "reviewer"
	CapabilityAllocator Capability = "allocator"
	CapabilityAdmin     Capability = "admin"
)

// Identity is the authenticated caller of a workflow operation.
type Identity struct {
	UserID       string
	Capabilities map[Capability]bool
}

// Has reports whether the identity carries the capability. Admin does not
// imply the others; operational roles are granted explicitly.
func (i Identity) Has(c Capability) bool {
	return i.Capabilities[c]
}

// NewIdentity builds an Identity from a user id and capability names.
// Unknown names are ignored.
func NewIdentity(userID string, capabilities []string) Identity {
	caps := make(map[Capability]bool, len(capabilities))
	for _, c := range capabilities {
		switch Capability(c) {
		case CapabilityRequester, CapabilityReviewer, CapabilityAllocator, CapabilityAdmin:
			caps[Capability(c)] = true
		}
	}
	return Identity{UserID: userID, Capabilities: caps}
}
