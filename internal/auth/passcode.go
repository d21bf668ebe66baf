package auth

import (
	"crypto/subtle"
	"fmt"

	"go-archive-app/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// Gate checks the shared admin passcode. A bcrypt hash takes precedence over the
// plaintext setting.
type Gate struct {
	hash  []byte
	plain string
}

// NewGate builds a Gate from the admin configuration.
func NewGate(cfg config.AdminConfig) (*Gate, error) {
	if cfg.PasscodeHash != "" {
		hash := []byte(cfg.PasscodeHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid admin passcode hash: %w", err)
		}
		return &Gate{hash: hash}, nil
	}
	plain := cfg.Passcode
	if plain == "" {
		plain = config.DefaultPasscode
	}
	return &Gate{plain: plain}, nil
}

// Check reports whether passcode unlocks the admin console.
func (g *Gate) Check(passcode string) bool {
	if g.hash != nil {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(passcode)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.plain), []byte(passcode)) == 1
}

// IsDefault reports whether the gate still uses the built-in passcode.
func (g *Gate) IsDefault() bool {
	if g.hash != nil {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(config.DefaultPasscode)) == nil
	}
	return g.plain == config.DefaultPasscode
}

// HashPasscode returns the bcrypt hash to put in admin.passcodeHash.
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", fmt.Errorf("passcode must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
