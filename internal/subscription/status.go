// Package subscription defines the application's subscription status
// vocabulary, the mapping from the billing provider's statuses onto it, and
// the access predicate used to gate premium content.
package subscription

// Status is the application-level subscription status stored on a user
// record. It is a strictly smaller vocabulary than the provider's.
type Status string

const (
	StatusFree     Status = "free"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// FromProvider maps a provider status string onto the application
// vocabulary. The second return value reports whether the provider status was
// recognized; unrecognized statuses (unpaid, incomplete, anything the
// provider adds in the future) map to StatusFree so that unknown states never
// grant access.
func FromProvider(raw string) (Status, bool) {
	switch raw {
	case "active":
		return StatusActive, true
	case "trialing":
		return StatusTrialing, true
	case "past_due":
		return StatusPastDue, true
	case "canceled":
		return StatusCanceled, true
	default:
		return StatusFree, false
	}
}

// AccessPolicy decides which statuses grant premium access.
//
// Whether past_due keeps access during a grace period is a product decision,
// so it is a configuration point rather than a hardcoded branch.
type AccessPolicy struct {
	PastDueKeepsAccess bool
}

// HasAccess reports whether the given mapped status grants premium content
// access. It must only ever be fed application statuses, never raw provider
// statuses, so all call sites agree.
func (p AccessPolicy) HasAccess(s Status) bool {
	switch s {
	case StatusActive, StatusTrialing:
		return true
	case StatusPastDue:
		return p.PastDueKeepsAccess
	default:
		return false
	}
}
