// Package trigger produces the per-request trigger signal that the prompt
// injector writes into the system prompt and the stream parser watches for
// in the upstream's reply.
package trigger

import (
	"crypto/rand"
	"math/big"
)

const (
	prefix    = "<<CALL_"
	suffix    = ">>"
	charset   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenSize = 4
)

// New returns a fresh opaque marker of the form "<<CALL_xxxx>>" where xxxx
// is tokenSize random alphanumerics. Collision with upstream text is
// vanishingly unlikely; the marker is case-sensitive, contains no
// whitespace, and is treated as an opaque byte sequence downstream.
func New() (string, error) {
	buf := make([]byte, tokenSize)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		buf[i] = charset[n.Int64()]
	}
	return prefix + string(buf) + suffix, nil
}

// MustNew is New but panics on entropy-source failure, for call sites that
// have no meaningful recovery path (a crypto/rand failure indicates a
// broken host, not a request-level condition).
func MustNew() string {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}
