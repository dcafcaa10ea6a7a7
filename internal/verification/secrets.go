package verification

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SecretProvider yields the TOTP secret for a popup. The on-site display and
// this service must agree on it.
type SecretProvider interface {
	SecretFor(popupID string) []byte
}

// DerivedSecrets derives per-popup secrets from one master secret with HMAC,
// so no per-popup state needs provisioning or storage: knowing the master
// secret and the popup ID is enough to run a venue display.
type DerivedSecrets struct {
	master []byte
}

// NewDerivedSecrets creates a provider over the master secret.
func NewDerivedSecrets(master []byte) *DerivedSecrets {
	return &DerivedSecrets{master: master}
}

// SecretFor returns HMAC-SHA-256(master, popupID).
func (d *DerivedSecrets) SecretFor(popupID string) []byte {
	mac := hmac.New(sha256.New, d.master)
	mac.Write([]byte(popupID))
	return mac.Sum(nil)
}
