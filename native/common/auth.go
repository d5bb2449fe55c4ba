package common

import (
	"errors"

	"alphaledger/crypto"
)

// ErrUnauthorized is returned when an operation is invoked without a token
// carrying the required capability.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Role enumerates the capabilities a token can carry.
type Role uint8

const (
	// RoleAccount authorizes operations on a single account, named by the
	// token subject.
	RoleAccount Role = iota + 1
	// RoleProtocol authorizes internal ledger mutations performed on behalf
	// of the protocol (fee routing, quota minting, revenue splits).
	RoleProtocol
	// RoleOracle authorizes price feed updates.
	RoleOracle
	// RoleAdmin authorizes administrative recovery paths (forfeiture, forced
	// loan settlement, partner registration).
	RoleAdmin
)

// Token is a typed authorization capability. Fields are unexported so a token
// can only be minted through the constructors below; engines refuse to mutate
// state without one, which keeps the "cannot call without presenting the
// right capability" guarantee of the original object model.
type Token struct {
	role    Role
	subject crypto.Address
}

// NewAccountToken mints a token scoped to a single account.
func NewAccountToken(subject crypto.Address) Token {
	return Token{role: RoleAccount, subject: subject}
}

// NewProtocolToken mints a protocol-privileged token.
func NewProtocolToken() Token {
	return Token{role: RoleProtocol}
}

// NewOracleToken mints a token authorizing oracle rate updates.
func NewOracleToken() Token {
	return Token{role: RoleOracle}
}

// NewAdminToken mints a token authorizing administrative operations.
func NewAdminToken() Token {
	return Token{role: RoleAdmin}
}

// Role returns the capability carried by the token.
func (t Token) Role() Role { return t.role }

// Subject returns the account an account-scoped token is bound to.
func (t Token) Subject() crypto.Address { return t.subject }

// Allows reports whether the token may act on the supplied account. Protocol
// and admin tokens act on any account; an account token only on its subject.
func (t Token) Allows(addr crypto.Address) bool {
	switch t.role {
	case RoleProtocol, RoleAdmin:
		return true
	case RoleAccount:
		return t.subject.Equal(addr)
	default:
		return false
	}
}

// RequireAccount fails unless the token may act on the supplied account.
func RequireAccount(t Token, addr crypto.Address) error {
	if !t.Allows(addr) {
		return ErrUnauthorized
	}
	return nil
}

// RequireProtocol fails unless the token carries protocol privileges.
func RequireProtocol(t Token) error {
	if t.role != RoleProtocol && t.role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

// RequireOracle fails unless the token carries the oracle capability.
func RequireOracle(t Token) error {
	if t.role != RoleOracle {
		return ErrUnauthorized
	}
	return nil
}

// RequireAdmin fails unless the token carries the admin capability.
func RequireAdmin(t Token) error {
	if t.role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}
