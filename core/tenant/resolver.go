package tenant

import "strings"

// Resolver maps a platform sender identifier to a tenant id. Implementations must not fail:
// unknown input resolves to some tenant id, usually DefaultID.
type Resolver interface {
	Resolve(senderID string) string
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(senderID string) string

// Resolve calls f.
func (f ResolverFunc) Resolve(senderID string) string {
	return f(senderID)
}

// DigitParity picks a tenant from the parity of the sender's trailing decimal digit.
// It is a placeholder for a real account mapping.
type DigitParity struct {
	Even string
	Odd  string
}

// NewDigitParity returns the reference rule: even → premium, odd or non-digit → default.
func NewDigitParity() DigitParity {
	return DigitParity{Even: PremiumID, Odd: DefaultID}
}

// Resolve implements Resolver.
func (p DigitParity) Resolve(senderID string) string {
	odd := p.Odd
	if odd == "" {
		odd = DefaultID
	}
	id := strings.TrimSpace(senderID)
	if id == "" {
		return odd
	}
	last := id[len(id)-1]
	if last < '0' || last > '9' {
		return odd
	}
	if (last-'0')%2 == 0 && p.Even != "" {
		return p.Even
	}
	return odd
}

// Mapped resolves senders listed in Routes explicitly and defers everything else to Fallback.
type Mapped struct {
	Routes   map[string]string
	Fallback Resolver
}

// Resolve implements Resolver.
func (m Mapped) Resolve(senderID string) string {
	if id, ok := m.Routes[strings.TrimSpace(senderID)]; ok && id != "" {
		return id
	}
	if m.Fallback != nil {
		return m.Fallback.Resolve(senderID)
	}
	return DefaultID
}
