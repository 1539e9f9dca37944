package jobs

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"github.com/WaffleHacks/wafflemaker/internal/service"
)

// newStreamCipherRand seeds a ChaCha8 PRNG from the system entropy
// source, mirroring the original's "deterministic stream cipher seeded
// from the system entropy source" (spec.md §4.4 S2).
func newStreamCipherRand() *rand.Rand {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("jobs: reading system entropy: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

const alphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateSecretValue produces a value for a generate{} slot per the
// generator specifics in spec.md §4.4 S2.
func generateSecretValue(r *rand.Rand, format service.Format, length int) (string, error) {
	switch format {
	case service.FormatAlphanumeric:
		out := make([]byte, length)
		for i := range out {
			out[i] = alphanumericAlphabet[r.IntN(len(alphanumericAlphabet))]
		}
		return string(out), nil
	case service.FormatBase64:
		raw := make([]byte, length)
		for i := range raw {
			raw[i] = byte(r.IntN(256))
		}
		encoded := base64.StdEncoding.EncodeToString(raw)
		if len(encoded) > length {
			encoded = encoded[:length]
		}
		return encoded, nil
	case service.FormatHex:
		raw := make([]byte, length/2)
		for i := range raw {
			raw[i] = byte(r.IntN(256))
		}
		return hex.EncodeToString(raw), nil
	default:
		return "", fmt.Errorf("jobs: unknown secret format %q", format)
	}
}
