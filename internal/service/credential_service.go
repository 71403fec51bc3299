package service

import (
	"crypto/subtle"
	"fmt"

	"pin-ledger/internal/core/ports"
)

// PlainCredentialVerifier stores PINs as given and compares them by exact match.
type PlainCredentialVerifier struct{}

// NewPlainCredentialVerifier creates the default verifier.
func NewPlainCredentialVerifier() *PlainCredentialVerifier {
	return &PlainCredentialVerifier{}
}

func (PlainCredentialVerifier) Seal(credential string) (string, error) {
	return credential, nil
}

func (PlainCredentialVerifier) Verify(supplied, sealed string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(sealed)) == 1, nil
}

// HashedCredentialVerifier seals PINs with a ports.HashService.
type HashedCredentialVerifier struct {
	hasher ports.HashService
}

// NewHashedCredentialVerifier wraps hasher as a credential verifier.
func NewHashedCredentialVerifier(hasher ports.HashService) *HashedCredentialVerifier {
	return &HashedCredentialVerifier{hasher: hasher}
}

func (v *HashedCredentialVerifier) Seal(credential string) (string, error) {
	sealed, err := v.hasher.Hash(credential)
	if err != nil {
		return "", fmt.Errorf("sealing credential: %w", err)
	}
	return sealed, nil
}

func (v *HashedCredentialVerifier) Verify(supplied, sealed string) (bool, error) {
	ok, err := v.hasher.Verify(supplied, sealed)
	if err != nil {
		return false, fmt.Errorf("verifying credential: %w", err)
	}
	return ok, nil
}
