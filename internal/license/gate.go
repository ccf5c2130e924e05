package license

import (
	"log"
	"sync"
)

// PremiumGate permits premium features once a key or token is activated.
type PremiumGate struct {
	secret []byte

	mu     sync.RWMutex
	active bool
	claims *Claims
}

// NewPremiumGate returns an inactive gate that verifies tokens with secret.
// A nil secret accepts only plain keys.
func NewPremiumGate(secret []byte) *PremiumGate {
	return &PremiumGate{secret: secret}
}

// Activate accepts either a QMPDF key or a signed license token.
func (g *PremiumGate) Activate(key string) error {
	if ValidKeyFormat(key) {
		g.mu.Lock()
		g.active = true
		g.mu.Unlock()
		log.Printf("license: activated key %s", key[:11]+"...")
		return nil
	}
	if g.secret == nil {
		return ErrInvalidKey
	}
	claims, err := VerifyToken(g.secret, key)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.active = true
	g.claims = claims
	g.mu.Unlock()
	log.Printf("license: activated for %s", claims.Email)
	return nil
}

// Deactivate returns the gate to free features only.
func (g *PremiumGate) Deactivate() {
	g.mu.Lock()
	g.active = false
	g.claims = nil
	g.mu.Unlock()
}

// Active reports whether premium features are unlocked.
func (g *PremiumGate) Active() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// Claims returns the verified token claims, if a token was used.
func (g *PremiumGate) Claims() *Claims {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.claims
}

// Permitted implements Gate.
func (g *PremiumGate) Permitted(f Feature) bool {
	return !IsPremium(f) || g.Active()
}
