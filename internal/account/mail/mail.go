// Package mail delivers account lifecycle email. Registration blocks on the
// verification send: an account whose owner can never receive the link is
// useless, so delivery failure fails the registration.
package mail

import "context"

// Sender delivers account email. Implementations must be safe for concurrent
// use.
type Sender interface {
	// SendVerificationEmail sends the verify-account link to a freshly
	// registered address.
	SendVerificationEmail(ctx context.Context, to, username, verifyURL string) error
}
