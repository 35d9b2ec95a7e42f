package port

import "context"

// GoogleProfile is the verified subset of a Google ID-token payload the
// session manager needs.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier validates a third-party identity assertion out-of-band and
// returns the verified profile.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleProfile, error)
}
