// Package variables implements the Variable Resolver of spec §4.3: the
// handful of built-in value generators a `change` action's `variable`
// field can name, falling back to the descriptor's stored value.
package variables

import (
	"crypto/rand"
	"math/big"

	"github.com/f-sync/uiflow/internal/model"
)

const (
	// DefaultLength is used when a variable spec omits length.
	DefaultLength = 10
	// minEmailLocalPartLength is the floor spec §4.3 sets for randomEmail.
	minEmailLocalPartLength = 4
	emailDomain             = "@example.com"
)

const (
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
	digits           = "0123456789"
	alphanumeric     = lowercaseLetters + digits
)

// Resolver implements the Variable Resolver contract.
type Resolver struct{}

// NewResolver constructs a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve returns the concrete string for a variable spec. Any name other
// than the four built-ins falls back to the descriptor's authored value
// (empty string if absent).
func (r *Resolver) Resolve(spec *model.VariableSpec) string {
	if spec == nil {
		return ""
	}
	length := spec.Length
	if length <= 0 {
		length = DefaultLength
	}
	switch spec.Name {
	case "randomName":
		return randomString(length, lowercaseLetters)
	case "randomNumber":
		return randomString(length, digits)
	case "randomAlphaNumeric":
		return randomString(length, alphanumeric)
	case "randomEmail":
		localLength := length
		if localLength < minEmailLocalPartLength {
			localLength = minEmailLocalPartLength
		}
		return randomString(localLength, alphanumeric) + emailDomain
	default:
		return spec.Value
	}
}

func randomString(length int, alphabet string) string {
	if length <= 0 {
		return ""
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is effectively unrecoverable for this
			// process; fall back to the first letter rather than panic,
			// keeping the character-class invariant (P6) intact.
			out[i] = alphabet[0]
			continue
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}
