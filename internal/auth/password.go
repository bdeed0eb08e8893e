// Package auth hides passwords at rest.
//
// A stored credential is "<version>$<hash>". Version v1 is bcrypt over an
// HMAC-SHA256 of the password keyed with a secret supplied by configuration,
// so the stored value alone is not enough to mount an offline guess.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const versionV1 = "v1"

var ErrEmptySecret = errors.New("credential secret must not be empty")

type Hasher struct {
	secret []byte
	cost   int
}

func NewHasher(secret string) (*Hasher, error) {
	return NewHasherWithCost(secret, bcrypt.DefaultCost)
}

// NewHasherWithCost is NewHasher with an explicit bcrypt cost; tests use
// bcrypt.MinCost.
func NewHasherWithCost(secret string, cost int) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Hasher{secret: []byte(secret), cost: cost}, nil
}

func (h *Hasher) GeneratePasswordHash(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword(h.pepper(password), h.cost)
	if err != nil {
		return "", err
	}

	return versionV1 + "$" + string(hashedPassword), nil
}

// ComparePasswordHash reports whether password matches the stored value.
// Values in an unknown format never match.
func (h *Hasher) ComparePasswordHash(stored, password string) bool {
	version, hashed, ok := strings.Cut(stored, "$")
	if !ok || version != versionV1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), h.pepper(password)) == nil
}

// pepper keeps the bcrypt input at 64 bytes, below its 72 byte limit.
func (h *Hasher) pepper(password string) []byte {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(password))
	return []byte(hex.EncodeToString(mac.Sum(nil)))
}
