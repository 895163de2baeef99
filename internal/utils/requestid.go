package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// RequestIDHookFunc defines the signature for the NewRequestID test hook.
// It returns an ID and a boolean indicating whether to override the default generation.
type RequestIDHookFunc func() (id string, override bool)

// NewRequestIDHook is a package-level variable that tests can set to override NewRequestID behavior.
var NewRequestIDHook RequestIDHookFunc

const (
	requestIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	requestIDDigits  = "0123456789"
)

var requestIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{6}$`)

// NewRequestID returns a human-shareable request identifier: 3 uppercase letters
// followed by 6 digits. Uniqueness is enforced by the store, not here.
func NewRequestID() string {
	if NewRequestIDHook != nil {
		if id, override := NewRequestIDHook(); override {
			return id
		}
	}

	var sb strings.Builder
	sb.Grow(9)
	for i := 0; i < 3; i++ {
		sb.WriteByte(randomChar(requestIDLetters))
	}
	for i := 0; i < 6; i++ {
		sb.WriteByte(randomChar(requestIDDigits))
	}
	return sb.String()
}

// IsValidRequestID reports whether s has the request identifier shape.
func IsValidRequestID(s string) bool {
	return requestIDPattern.MatchString(s)
}

func randomChar(alphabet string) byte {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		// fall back to the first symbol if random fails
		return alphabet[0]
	}
	return alphabet[n.Int64()]
}
