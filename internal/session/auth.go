package session

import "crypto/subtle"

// AdminGate checks the admin secret presented by a client. An empty
// configured secret disables admin access entirely.
type AdminGate struct {
	secret []byte
}

func NewAdminGate(secret string) AdminGate {
	return AdminGate{secret: []byte(secret)}
}

// Check reports whether given grants admin. A wrong secret is an error rather
// than a silent downgrade so clients notice misconfiguration.
func (g AdminGate) Check(given string) (bool, error) {
	if given == "" {
		return false, nil
	}
	if len(g.secret) == 0 || subtle.ConstantTimeCompare(g.secret, []byte(given)) != 1 {
		return false, ErrAdminDenied
	}
	return true, nil
}
