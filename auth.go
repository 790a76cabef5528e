package docuchat

import "crypto/subtle"

// TokenVerifier resolves a bearer token to a user identifier. Token issuance
// and identity management live outside this system; the service only consumes
// the verified identifier.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// StaticTokenVerifier accepts a single pre-shared token and maps it to a
// fixed user identifier. Suitable for single-user deployments; multi-user
// setups plug in an external identity provider behind the same interface.
type StaticTokenVerifier struct {
	token  string
	userID string
}

func NewStaticTokenVerifier(cfg AuthConfig) *StaticTokenVerifier {
	return &StaticTokenVerifier{
		token:  cfg.Token,
		userID: cfg.UserID,
	}
}

func (v *StaticTokenVerifier) Verify(token string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return "", ErrUnauthorized
	}

	return v.userID, nil
}
