package services

import "crypto/subtle"

// ModeSubscribe is the only hub.mode accepted by the verification handshake.
const ModeSubscribe = "subscribe"

// Verifier answers the provider's webhook subscription handshake.
type Verifier struct {
	Token string
}

// Verify returns challenge when mode is "subscribe" and token matches the
// configured secret; otherwise ErrForbiddenVerification.
func (v Verifier) Verify(mode, token, challenge string) (string, error) {
	if mode != ModeSubscribe || v.Token == "" {
		return "", ErrForbiddenVerification
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.Token)) != 1 {
		return "", ErrForbiddenVerification
	}
	return challenge, nil
}
